/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	applog "gorefcanvas/internal/log"
)

// SelectionColor outlines selected items.
const SelectionColor = "#33CCCC"

// ErrEmptyCanvas is returned when there is nothing to export.
var ErrEmptyCanvas = errors.New("canvas has no items")

// RenderOptions controls the software renderer.
type RenderOptions struct {
	Width, Height int
	// Bilinear selects bilinear filtering; nearest-neighbour otherwise.
	Bilinear  bool
	Grayscale bool
	// Background fills the viewport before items are drawn. Zero means DefaultBackground.
	Background color.Color
	// ShowSelection outlines selected items.
	ShowSelection bool
	// Cache keeps decoded pixels between renders when set.
	Cache *PixelCache
}

// PixelCache holds decoded item pixels by item ID. Item image bytes never
// change for an ID, so entries stay valid until the canvas is replaced.
type PixelCache struct {
	m map[canvas.ID]image.Image
}

// NewPixelCache returns an empty cache.
func NewPixelCache() *PixelCache { return &PixelCache{m: map[canvas.ID]image.Image{}} }

// Reset drops every entry.
func (pc *PixelCache) Reset() { pc.m = map[canvas.ID]image.Image{} }

// Len returns the number of cached images.
func (pc *PixelCache) Len() int { return len(pc.m) }

func (pc *PixelCache) decode(it *canvas.Item) (image.Image, error) {
	if pc == nil {
		return imageio.DecodePixels(it.Image)
	}
	if img, ok := pc.m[it.ID]; ok {
		return img, nil
	}
	img, err := imageio.DecodePixels(it.Image)
	if err != nil {
		return nil, err
	}
	pc.m[it.ID] = img
	return img, nil
}

// DefaultBackground is the viewport fill.
var DefaultBackground = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}

// Render paints the live items of c back to front as seen through v into a
// Width x Height image.
func Render(c *canvas.Canvas, v *geom.View, opt RenderOptions) (*image.RGBA, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", opt.Width, opt.Height)
	}
	l := applog.WithComponent("export")
	dst := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	dc := gg.NewContextForRGBA(dst)
	bg := opt.Background
	if bg == nil {
		bg = DefaultBackground
	}
	dc.SetColor(bg)
	dc.Clear()

	var interp draw.Interpolator = draw.NearestNeighbor
	if opt.Bilinear {
		interp = draw.BiLinear
	}
	frame := geom.R(0, 0, float64(opt.Width), float64(opt.Height))
	zoom := v.Zoom()
	for _, it := range c.PaintOrder() {
		r := viewRect(v, it.Bounds())
		if !r.Intersects(frame) {
			continue
		}
		src, err := opt.Cache.decode(it)
		if err != nil {
			l.Warn("skip undecodable item", slog.String("path", it.Path), slog.Any("err", err))
			continue
		}
		interp.Transform(dst, itemTransform(it, r, zoom), src, src.Bounds(), draw.Over, nil)
	}
	if opt.Grayscale {
		grayscale(dst)
	}
	if opt.ShowSelection {
		dc.SetHexColor(SelectionColor)
		dc.SetLineWidth(2)
		for _, it := range c.Selected() {
			r := viewRect(v, it.Bounds())
			dc.DrawRectangle(r.X, r.Y, r.W, r.H)
			dc.Stroke()
		}
	}
	return dst, nil
}

// FitView returns a view that shows the whole of c centred in a w x h viewport,
// never magnifying above 1.
func FitView(c *canvas.Canvas, w, h int) *geom.View {
	v := geom.NewView()
	b := c.Bounds()
	if b.IsEmpty() {
		v.CenterOn(geom.Pt(0, 0), geom.Size{W: float64(w), H: float64(h)})
		return v
	}
	z := math.Min(float64(w)/b.W, float64(h)/b.H)
	if z < 1 {
		v.SetZoom(z)
	}
	v.CenterOn(b.Center(), geom.Size{W: float64(w), H: float64(h)})
	return v
}

// RenderPNG renders c with a fitted view and writes it to path.
func RenderPNG(c *canvas.Canvas, path string, opt RenderOptions) error {
	if len(c.Live()) == 0 {
		return ErrEmptyCanvas
	}
	img, err := Render(c, FitView(c, opt.Width, opt.Height), opt)
	if err != nil {
		return err
	}
	return WritePNG(path, img)
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	applog.WithComponent("export").Info("png written", slog.String("path", path))
	return nil
}

func viewRect(v *geom.View, r geom.Rect) geom.Rect {
	return geom.RectFromPoints(v.MapFromScene(r.Min()), v.MapFromScene(r.Max()))
}

// itemTransform maps source pixels to view pixels. A flipped item mirrors
// horizontally inside its own rectangle.
func itemTransform(it *canvas.Item, r geom.Rect, zoom float64) f64.Aff3 {
	s := it.Scale * zoom
	if it.Flipped {
		return f64.Aff3{-s, 0, r.X + r.W, 0, s, r.Y}
	}
	return f64.Aff3{s, 0, r.X, 0, s, r.Y}
}

func grayscale(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBAAt(x, y)
			g := color.GrayModel.Convert(px).(color.Gray).Y
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: px.A})
		}
	}
}
