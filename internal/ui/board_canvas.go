//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gorefcanvas/internal/app"
	"gorefcanvas/internal/export"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/interaction"
	applog "gorefcanvas/internal/log"
)

// BoardCanvas shows a session's board and feeds raw pointer, wheel and key
// input into its interaction engine. Positions are widget-local fyne units,
// which is the view coordinate space of the engine.
type BoardCanvas struct {
	widget.BaseWidget

	session *app.Session
	cache   *export.PixelCache
	log     *slog.Logger

	// OnContextMenu runs on a secondary click with the widget-local and the
	// absolute (canvas) position of the pointer.
	OnContextMenu func(local, abs fyne.Position)
	// OnChanged runs after every event that may have altered the board.
	OnChanged func()

	pointer fyne.Position
}

// NewBoardCanvas binds a widget to s.
func NewBoardCanvas(s *app.Session) *BoardCanvas {
	b := &BoardCanvas{session: s, cache: export.NewPixelCache(), log: applog.WithComponent("board")}
	s.Engine().OnChange(b.changed)
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardCanvas) changed() {
	b.Refresh()
	if b.OnChanged != nil {
		b.OnChanged()
	}
}

// Reload drops decoded pixels; call it after the board has been replaced.
func (b *BoardCanvas) Reload() {
	b.cache.Reset()
	b.changed()
}

// Pointer returns the last pointer position seen by the widget.
func (b *BoardCanvas) Pointer() fyne.Position { return b.pointer }

// ScenePoint maps a widget-local position into scene units.
func (b *BoardCanvas) ScenePoint(p fyne.Position) geom.Point {
	return b.session.View().MapToScene(toPoint(p))
}

func (b *BoardCanvas) handle(ev interaction.Event) { b.session.Engine().Handle(ev) }

func toPoint(p fyne.Position) geom.Point { return geom.Pt(float64(p.X), float64(p.Y)) }

func toButton(mb desktop.MouseButton) interaction.Button {
	switch mb {
	case desktop.MouseButtonPrimary:
		return interaction.ButtonPrimary
	case desktop.MouseButtonSecondary:
		return interaction.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return interaction.ButtonMiddle
	}
	return 0
}

func toKey(k fyne.KeyName) interaction.Key {
	switch k {
	case fyne.KeySpace:
		return interaction.KeySpace
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return interaction.KeyControl
	}
	return ""
}

// MouseDown implements desktop.Mouseable.
func (b *BoardCanvas) MouseDown(e *desktop.MouseEvent) {
	b.pointer = e.Position
	btn := toButton(e.Button)
	if btn == 0 {
		return
	}
	b.handle(interaction.PointerDown{Pos: toPoint(e.Position), Button: btn})
	if btn == interaction.ButtonSecondary && b.OnContextMenu != nil {
		b.OnContextMenu(e.Position, e.AbsolutePosition)
	}
}

// MouseUp implements desktop.Mouseable.
func (b *BoardCanvas) MouseUp(e *desktop.MouseEvent) {
	b.pointer = e.Position
	if btn := toButton(e.Button); btn != 0 {
		b.handle(interaction.PointerUp{Pos: toPoint(e.Position), Button: btn})
	}
}

// MouseIn implements desktop.Hoverable.
func (b *BoardCanvas) MouseIn(e *desktop.MouseEvent) { b.pointer = e.Position }

// MouseMoved implements desktop.Hoverable.
func (b *BoardCanvas) MouseMoved(e *desktop.MouseEvent) { b.move(e.Position) }

// MouseOut implements desktop.Hoverable.
func (b *BoardCanvas) MouseOut() {}

// Dragged implements fyne.Draggable. Motion with a held button arrives here
// instead of MouseMoved.
func (b *BoardCanvas) Dragged(e *fyne.DragEvent) { b.move(e.Position) }

// DragEnd implements fyne.Draggable; the release itself arrives as MouseUp.
func (b *BoardCanvas) DragEnd() {}

func (b *BoardCanvas) move(p fyne.Position) {
	if p == b.pointer {
		return
	}
	b.pointer = p
	b.handle(interaction.PointerMove{Pos: toPoint(p)})
}

// Scrolled implements fyne.Scrollable.
func (b *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	b.pointer = e.Position
	b.handle(interaction.Wheel{Pos: toPoint(e.Position), DeltaY: float64(e.Scrolled.DY)})
}

// KeyDown forwards a physical key press. The window routes its key events
// here so the board reacts without holding focus.
func (b *BoardCanvas) KeyDown(e *fyne.KeyEvent) {
	if k := toKey(e.Name); k != "" {
		b.handle(interaction.KeyDown{Key: k})
	}
}

// KeyUp forwards a physical key release.
func (b *BoardCanvas) KeyUp(e *fyne.KeyEvent) {
	if k := toKey(e.Name); k != "" {
		b.handle(interaction.KeyUp{Key: k})
	}
}

// Drop hands dropped URIs to the engine at a widget-local position.
func (b *BoardCanvas) Drop(local fyne.Position, uris []fyne.URI) {
	payloads := make([]string, 0, len(uris))
	for _, u := range uris {
		payloads = append(payloads, u.String())
	}
	b.handle(interaction.Drop{Pos: toPoint(local), Payloads: payloads})
}

// Cursor implements desktop.Cursorable.
func (b *BoardCanvas) Cursor() desktop.Cursor {
	switch b.session.Engine().Cursor() {
	case interaction.CursorOpenHand, interaction.CursorClosedHand:
		return desktop.PointerCursor
	case interaction.CursorSizeHorizontal:
		return desktop.HResizeCursor
	}
	return desktop.DefaultCursor
}

// MinSize keeps the board usable in small windows.
func (b *BoardCanvas) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// CreateRenderer implements fyne.Widget.
func (b *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{b: b}
	r.raster = canvas.NewRaster(r.paint)
	r.band = canvas.NewRectangle(color.NRGBA{R: 0x33, G: 0xcc, B: 0xcc, A: 0x30})
	r.band.StrokeColor = color.NRGBA{R: 0x33, G: 0xcc, B: 0xcc, A: 0xff}
	r.band.StrokeWidth = 1
	r.band.Hide()
	r.objects = []fyne.CanvasObject{r.raster, r.band}
	return r
}

type boardRenderer struct {
	b       *BoardCanvas
	raster  *canvas.Raster
	band    *canvas.Rectangle
	objects []fyne.CanvasObject
	size    fyne.Size
}

func (r *boardRenderer) Destroy()                     {}
func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardRenderer) MinSize() fyne.Size           { return r.b.MinSize() }

func (r *boardRenderer) Layout(size fyne.Size) {
	r.raster.Resize(size)
	r.raster.Move(fyne.NewPos(0, 0))
	if size != r.size {
		r.size = size
		r.b.session.Engine().Handle(interaction.ViewportResized{Size: geom.Size{W: float64(size.Width), H: float64(size.Height)}})
	}
	r.layoutBand()
}

func (r *boardRenderer) layoutBand() {
	rect, ok := r.b.session.Engine().RubberBand()
	if !ok {
		r.band.Hide()
		return
	}
	v := r.b.session.View()
	lo, hi := v.MapFromScene(rect.Min()), v.MapFromScene(rect.Max())
	r.band.Move(fyne.NewPos(float32(lo.X), float32(lo.Y)))
	r.band.Resize(fyne.NewSize(float32(hi.X-lo.X), float32(hi.Y-lo.Y)))
	r.band.Show()
}

func (r *boardRenderer) Refresh() {
	r.layoutBand()
	r.raster.Refresh()
	r.band.Refresh()
}

// paint renders the board at device resolution: w x h are physical pixels,
// so the view is magnified by the pixel-per-unit ratio of the widget.
func (r *boardRenderer) paint(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	s := r.b.session
	k := 1.0
	if r.size.Width > 0 {
		k = float64(w) / float64(r.size.Width)
	}
	opt := s.RenderOptions(w, h)
	opt.Cache = r.b.cache
	img, err := export.Render(s.Canvas(), s.View().Scaled(k), opt)
	if err != nil {
		r.b.log.Warn("paint failed", slog.Any("err", err))
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return img
}
