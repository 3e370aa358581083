/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorefcanvas/internal/config"
	"gorefcanvas/internal/version"
)

type noTokens struct{}

func (noTokens) Get(string, string) (string, error) { return "", os.ErrNotExist }
func (noTokens) Set(string, string, string) error   { return nil }
func (noTokens) Delete(string, string) error        { return nil }

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, filepath.Join(dir, "config"))
	t.Cleanup(config.SetTokenStore(noTokens{}))
	return dir
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if code := run(args, &out); code != 0 {
		t.Fatalf("%v exited %d: %s", args, code, out.String())
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	setup(t)
	if out := runOK(t, "version"); !strings.Contains(out, version.String()) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestUnknownCommandAndMissingArgs(t *testing.T) {
	setup(t)
	var out bytes.Buffer
	if code := run([]string{"bogus"}, &out); code != 2 {
		t.Fatalf("unknown command exited %d", code)
	}
	out.Reset()
	if code := run([]string{"render", "only-board.riv"}, &out); code != 2 {
		t.Fatalf("missing argument exited %d", code)
	}
	if !strings.Contains(out.String(), "requires") {
		t.Fatalf("missing hint in %q", out.String())
	}
}

func TestImportInfoRenderExtract(t *testing.T) {
	dir := setup(t)
	a, b := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	writeImage(t, a, 30, 20)
	writeImage(t, b, 10, 40)
	board := filepath.Join(dir, "boards", "moodboard.riv")

	if out := runOK(t, "import", board, a, b, filepath.Join(dir, "notes.txt")); !strings.Contains(out, "Added 2 of 3") {
		t.Fatalf("import output %q", out)
	}
	out := runOK(t, "info", board)
	if !strings.Contains(out, "moodboard.riv") || !strings.Contains(out, "version 100") {
		t.Fatalf("info output %q", out)
	}

	snap := filepath.Join(dir, "out", "snap.png")
	runOK(t, "render", board, snap, "320x200")
	f, err := os.Open(snap)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Fatalf("snapshot is %dx%d", cfg.Width, cfg.Height)
	}

	extracted := filepath.Join(dir, "extracted")
	if out := runOK(t, "extract", board, extracted); !strings.Contains(out, "Wrote 2 images") {
		t.Fatalf("extract output %q", out)
	}
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(extracted, name)); err != nil {
			t.Fatalf("missing extracted %s: %v", name, err)
		}
	}
}

func TestLayoutCommands(t *testing.T) {
	dir := setup(t)
	a := filepath.Join(dir, "a.png")
	writeImage(t, a, 16, 16)
	board := filepath.Join(dir, "b.riv")
	runOK(t, "import", board, a)
	layout := filepath.Join(dir, "layout.json")
	runOK(t, "export-layout", board, layout)
	if out := runOK(t, "apply-layout", board, layout); !strings.Contains(out, "Moved 1 images") {
		t.Fatalf("apply-layout output %q", out)
	}
	runOK(t, "pdf", board, filepath.Join(dir, "b.pdf"))
}

func TestInfoOnDatabaseBoard(t *testing.T) {
	dir := setup(t)
	a := filepath.Join(dir, "a.png")
	writeImage(t, a, 8, 8)
	board := filepath.Join(dir, "b.rivdb")
	runOK(t, "import", board, a)
	out := runOK(t, "info", board)
	if !strings.Contains(out, "sqlite") {
		t.Fatalf("info output %q", out)
	}
}

func TestParseSize(t *testing.T) {
	if w, h, err := parseSize("640x480"); err != nil || w != 640 || h != 480 {
		t.Fatalf("parseSize = %d, %d, %v", w, h, err)
	}
	for _, bad := range []string{"", "x", "0x10", "10"} {
		if _, _, err := parseSize(bad); err == nil {
			t.Fatalf("parseSize(%q) accepted", bad)
		}
	}
}
