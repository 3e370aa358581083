/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	"gorefcanvas/internal/project"
)

// View is the persisted viewport: the scene point at the viewport centre and the zoom.
type View struct {
	Center geom.Point
	Zoom   float64
}

// Stats summarises the content of a store.
type Stats struct {
	Items      int
	ImageBytes int64
	View       View
}

// LoadView reads the single view row.
func (s *Store) LoadView(ctx context.Context) (View, error) {
	var x, y int64
	var zoom float64
	if err := s.db.QueryRowContext(ctx, `SELECT x, y, scale FROM view WHERE id=0`).Scan(&x, &y, &zoom); err != nil {
		return View{}, fmt.Errorf("read view: %w", err)
	}
	return View{Center: geom.Pt(float64(x), float64(y)), Zoom: zoom}, nil
}

// SaveView replaces the view row. Coordinates are truncated to integers.
func (s *Store) SaveView(ctx context.Context, v View) error {
	return saveView(ctx, s.db, v)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveView(ctx context.Context, db execer, v View) error {
	_, err := db.ExecContext(ctx, `UPDATE view SET x=?, y=?, scale=? WHERE id=0`,
		int64(v.Center.X), int64(v.Center.Y), v.Zoom)
	if err != nil {
		return fmt.Errorf("update view: %w", err)
	}
	return nil
}

// SaveBoard replaces the whole content of the store with b in one transaction
// and compacts the file afterwards.
func (s *Store) SaveBoard(ctx context.Context, b project.Board, progress project.Progress) error {
	l := s.log.With(slog.String("path", s.path))
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &project.FileError{Op: "write", Path: s.path, Err: err}
	}
	fail := func(err error) error {
		_ = tx.Rollback()
		return &project.FileError{Op: "write", Path: s.path, Err: err}
	}
	if err := saveView(ctx, tx, View{Center: b.Center, Zoom: b.Zoom}); err != nil {
		return fail(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM images`); err != nil {
		return fail(err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO images (id, path, type, ctime, mtime, x, y, z, rotation, scale, flip, image) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fail(err)
	}
	defer stmt.Close()
	now := unixSeconds(time.Now())
	for i, r := range b.Items {
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return err
		}
		format := ""
		if img, err := imageio.Decode(r.Image); err == nil {
			format = img.Format
		}
		ctime, mtime := now, now
		if fi, err := os.Stat(r.Path); err == nil {
			mtime = unixSeconds(fi.ModTime())
			ctime = mtime
		}
		if _, err := stmt.ExecContext(ctx, i+1, r.Path, format, ctime, mtime,
			int64(r.Pos.X), int64(r.Pos.Y), r.Z, 0.0, r.Scale, r.Flipped, r.Image); err != nil {
			return fail(fmt.Errorf("insert image %d: %w", i+1, err))
		}
		if progress != nil {
			progress(i+1, len(b.Items))
		}
	}
	if err := tx.Commit(); err != nil {
		return &project.FileError{Op: "commit", Path: s.path, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		l.Warn("vacuum failed", slog.Any("err", err))
	}
	l.Info("board stored", slog.Int("items", len(b.Items)))
	return nil
}

// LoadBoard reads the board back in id order. Rows with an empty path are
// skipped and counted like placeholder records in a .riv file.
func (s *Store) LoadBoard(ctx context.Context, progress project.Progress) (project.Board, project.LoadReport, error) {
	rep := project.LoadReport{Version: project.Version}
	v, err := s.LoadView(ctx)
	if err != nil {
		return project.Board{}, rep, &project.FileError{Op: "read", Path: s.path, Err: err}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&rep.Declared); err != nil {
		return project.Board{}, rep, &project.FileError{Op: "read", Path: s.path, Err: err}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path, x, y, z, scale, flip, image FROM images ORDER BY id`)
	if err != nil {
		return project.Board{}, rep, &project.FileError{Op: "read", Path: s.path, Err: err}
	}
	defer rows.Close()

	b := project.Board{Center: v.Center, Zoom: v.Zoom}
	n := 0
	for rows.Next() {
		var (
			path     sql.NullString
			x, y     int64
			z, scale float64
			flip     bool
			img      []byte
		)
		if err := rows.Scan(&path, &x, &y, &z, &scale, &flip, &img); err != nil {
			return project.Board{}, rep, &project.FileError{Op: "read", Path: s.path, Err: err}
		}
		n++
		if path.String == "" {
			rep.Skipped++
			continue
		}
		b.Items = append(b.Items, project.Record{
			Path:    path.String,
			Image:   img,
			Flipped: flip,
			Pos:     geom.Pt(float64(x), float64(y)),
			Scale:   scale,
			Z:       z,
		})
		rep.Loaded++
		if progress != nil {
			progress(n, int(rep.Declared))
		}
	}
	if err := rows.Err(); err != nil {
		return project.Board{}, rep, &project.FileError{Op: "read", Path: s.path, Err: err}
	}
	if !(b.Zoom > 0) {
		b.Zoom = 1
	}
	return b, rep, nil
}

// Stats reports item count, total image bytes and the stored view.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(LENGTH(image)) FROM images`).Scan(&st.Items, &total); err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	st.ImageBytes = total.Int64
	v, err := s.LoadView(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.View = v
	return st, nil
}

func unixSeconds(t time.Time) float64 {
	return math.Round(float64(t.UnixNano())/1e6) / 1e3
}
