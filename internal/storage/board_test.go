/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/project"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "board"+Ext))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenFreshStore(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	v, err := s.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema = %d, %v", v, err)
	}
	view, err := s.LoadView(ctx)
	if err != nil {
		t.Fatalf("load view: %v", err)
	}
	if view.Zoom != 1 || view.Center != geom.Pt(0, 0) {
		t.Fatalf("unexpected default view %+v", view)
	}
}

func TestBoardRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	in := project.Board{
		Center: geom.Pt(50.7, -20.2),
		Zoom:   0.8,
		Items: []project.Record{
			{Path: "a.png", Image: pngBytes(t, 3, 3), Pos: geom.Pt(1.9, 2), Scale: 1, Z: 2},
			{Path: "https://example.com/b.png", Image: pngBytes(t, 2, 5), Flipped: true, Pos: geom.Pt(-4, 8), Scale: 2.5, Z: 1},
		},
	}
	var done int
	if err := s.SaveBoard(ctx, in, func(d, total int) { done = d }); err != nil {
		t.Fatalf("save: %v", err)
	}
	if done != 2 {
		t.Fatalf("progress reached %d", done)
	}
	out, rep, err := s.LoadBoard(ctx, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Loaded != 2 || out.Zoom != 0.8 || out.Center != geom.Pt(50, -20) {
		t.Fatalf("unexpected board %+v report %+v", out, rep)
	}
	if out.Items[0].Pos != geom.Pt(1, 2) || !out.Items[1].Flipped || out.Items[1].Scale != 2.5 || !bytes.Equal(out.Items[1].Image, in.Items[1].Image) {
		t.Fatalf("unexpected items %+v", out.Items)
	}

	// a second save replaces the previous content
	in.Items = in.Items[:1]
	if err := s.SaveBoard(ctx, in, nil); err != nil {
		t.Fatal(err)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Items != 1 || st.ImageBytes != int64(len(in.Items[0].Image)) {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLoadBoardSkipsEmptyPaths(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO images (id, path, x, y, z, scale, flip, image) VALUES (1, '', 0, 0, 0, 1, 0, x'00'), (2, 'b.png', 3, 4, 1, 1, 0, x'00')`); err != nil {
		t.Fatal(err)
	}
	b, rep, err := s.LoadBoard(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Items) != 1 || rep.Skipped != 1 || rep.Declared != 2 {
		t.Fatalf("unexpected %+v %+v", b.Items, rep)
	}
}

func TestMigratesSchemaOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old"+Ext)
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_ = db.Close()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if v, _ := s.SchemaVersion(ctx); v != schemaVersion {
		t.Fatalf("schema after migration = %d", v)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_images_z'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("index missing: %d %v", n, err)
	}
}
