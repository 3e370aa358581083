/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// halfPNG is red on the left half and blue on the right.
func halfPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderPaintsItemsThroughView(t *testing.T) {
	c := canvas.New()
	c.NewItem("red.png", solidPNG(t, 10, 10, color.RGBA{R: 255, A: 255}), 10, 10, geom.Pt(0, 0))
	v := geom.NewView()
	v.SetZoom(2)
	img, err := Render(c, v, RenderOptions{Width: 40, Height: 40})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(15, 15); got.R != 255 || got.G != 0 {
		t.Fatalf("inside item = %+v", got)
	}
	if got := img.RGBAAt(30, 30); got != DefaultBackground {
		t.Fatalf("outside item = %+v, want background", got)
	}
}

func TestRenderFlipMirrorsInPlace(t *testing.T) {
	c := canvas.New()
	it := c.NewItem("half.png", halfPNG(t, 10, 4), 10, 4, geom.Pt(0, 0))
	c.ToggleFlip([]*canvas.Item{it})
	img, err := Render(c, geom.NewView(), RenderOptions{Width: 10, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	if l := img.RGBAAt(1, 1); l.B != 255 {
		t.Fatalf("flipped left pixel = %+v, want blue", l)
	}
	if r := img.RGBAAt(8, 1); r.R != 255 {
		t.Fatalf("flipped right pixel = %+v, want red", r)
	}
}

func TestRenderGrayscaleAndSelection(t *testing.T) {
	c := canvas.New()
	it := c.NewItem("red.png", solidPNG(t, 20, 20, color.RGBA{R: 255, A: 255}), 20, 20, geom.Pt(5, 5))
	c.SelectOnly(it)
	img, err := Render(c, geom.NewView(), RenderOptions{Width: 40, Height: 40, Grayscale: true, ShowSelection: true})
	if err != nil {
		t.Fatal(err)
	}
	if p := img.RGBAAt(15, 15); p.R != p.G || p.G != p.B {
		t.Fatalf("expected gray pixel, got %+v", p)
	}
	// outline is drawn after the grayscale pass
	if p := img.RGBAAt(5, 15); p.G <= p.R {
		t.Fatalf("expected selection outline at the item edge, got %+v", p)
	}
}

func TestFitViewShowsWholeBoard(t *testing.T) {
	c := canvas.New()
	c.NewItem("a", nil, 100, 100, geom.Pt(-500, 0))
	c.NewItem("b", nil, 100, 100, geom.Pt(400, 0))
	v := FitView(c, 200, 100)
	tl := v.MapFromScene(geom.Pt(-500, 0))
	br := v.MapFromScene(geom.Pt(500, 100))
	if tl.X < -0.001 || br.X > 200.001 || tl.Y < -0.001 || br.Y > 100.001 {
		t.Fatalf("board not inside viewport: %v %v", tl, br)
	}
}

func TestExportPDF(t *testing.T) {
	c := canvas.New()
	c.NewItem("a.png", solidPNG(t, 8, 8, color.RGBA{G: 255, A: 255}), 8, 8, geom.Pt(0, 0))
	it := c.NewItem("b.png", halfPNG(t, 6, 6), 6, 6, geom.Pt(20, 10))
	c.ToggleFlip([]*canvas.Item{it})
	out := filepath.Join(t.TempDir(), "out", "board.pdf")
	if err := ExportPDF(c, out, PDFOptions{Margin: 10, Title: "test"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	if err := ExportPDF(canvas.New(), out, PDFOptions{}); !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("expected ErrEmptyCanvas, got %v", err)
	}
}

func TestExportSelectionNamesAndClashes(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("/refs/one/cat.png", []byte("A"), 1, 1, geom.Pt(0, 0))
	b := c.NewItem("/refs/two/cat.png", []byte("B"), 1, 1, geom.Pt(0, 0))
	u := c.NewItem("https://example.com/img/dog.jpg?size=large", []byte("C"), 1, 1, geom.Pt(0, 0))
	dir := t.TempDir()
	files, err := ExportSelection([]*canvas.Item{a, b, u}, dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := []string{"cat.png", "cat-1.png", "dog.jpg"}
	for i, f := range files {
		if filepath.Base(f) != want[i] {
			t.Fatalf("file %d = %s, want %s", i, filepath.Base(f), want[i])
		}
	}
	data, _ := os.ReadFile(filepath.Join(dir, "cat-1.png"))
	if string(data) != "B" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLayoutRoundTripAndApply(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("a.png", nil, 10, 10, geom.Pt(1, 2))
	c.NewItem("b.png", nil, 10, 10, geom.Pt(30, 40))
	a.Z = 3
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteLayout(path, BuildLayout(c, geom.Pt(5, 5), 1.5)); err != nil {
		t.Fatalf("write: %v", err)
	}
	lay, err := ReadLayout(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if lay.Version != LayoutVersion || len(lay.Items) != 2 || lay.View.Zoom != 1.5 {
		t.Fatalf("unexpected layout %+v", lay)
	}

	lay.Items[0].Pos = LayoutPoint{X: 100, Y: 100}
	lay.Items[0].Scale = 2
	lay.Items[0].Flipped = true
	ch := ApplyLayout(c, lay)
	if len(ch.Items) != 2 || len(ch.Flipped) != 1 {
		t.Fatalf("unexpected change %+v", ch)
	}
	if a.Pos != geom.Pt(100, 100) || a.Scale != 2 || !a.Flipped || ch.FromPos[0] != geom.Pt(1, 2) {
		t.Fatalf("layout not applied: %+v", a)
	}
}

func TestValidateLayoutRejects(t *testing.T) {
	bad := []string{
		`{"version": 1, "view": {"center": {"x": 0, "y": 0}, "zoom": 0}, "items": []}`,
		`{"version": 1, "view": {"center": {"x": 0, "y": 0}, "zoom": 1}, "items": [{"path": "", "pos": {"x": 0, "y": 0}, "scale": 1, "z": 0}]}`,
		`{"version": 2, "view": {"center": {"x": 0, "y": 0}, "zoom": 1}, "items": []}`,
		`not json`,
	}
	for _, doc := range bad {
		if err := ValidateLayout([]byte(doc)); !errors.Is(err, ErrInvalidLayout) {
			t.Fatalf("expected invalid for %s, got %v", strings.TrimSpace(doc), err)
		}
	}
}

func TestBatchExportWebPreset(t *testing.T) {
	c := canvas.New()
	c.NewItem("a.png", solidPNG(t, 4, 4, color.White), 4, 4, geom.Pt(0, 0))
	dir := t.TempDir()
	files, err := BatchExport(c, BatchOptions{Preset: PresetWeb, OutDir: dir, Width: 64, Height: 64})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	want := []string{
		filepath.Join(dir, "web", "board.png"),
		filepath.Join(dir, "web", "board.layout.json"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i, p := range want {
		if files[i] != p {
			t.Fatalf("file %d = %s, want %s", i, files[i], p)
		}
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
	if _, err := BatchExport(c, BatchOptions{Formats: []string{"cbz"}, OutDir: dir}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestRenderUsesPixelCache(t *testing.T) {
	c := canvas.New()
	c.NewItem("a.png", solidPNG(t, 4, 4, color.White), 4, 4, geom.Pt(0, 0))
	c.NewItem("b.png", solidPNG(t, 4, 4, color.White), 4, 4, geom.Pt(100, 100))
	pc := NewPixelCache()
	if _, err := Render(c, geom.NewView(), RenderOptions{Width: 10, Height: 10, Cache: pc}); err != nil {
		t.Fatal(err)
	}
	// the second item is outside the frame and never decoded
	if pc.Len() != 1 {
		t.Fatalf("cache holds %d images, want 1", pc.Len())
	}
	pc.Reset()
	if pc.Len() != 0 {
		t.Fatalf("reset left entries")
	}
}
