/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"log/slog"
	"math"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/events"
	"gorefcanvas/internal/geom"
)

type dragGesture struct {
	items []*canvas.Item
	from  []geom.Point
	start geom.Point // scene position of the press
	// pressed was already selected; a click without motion narrows the selection to it.
	pressed    *canvas.Item
	wasPressed bool
	moved      bool
}

type bandGesture struct {
	anchor, current geom.Point
}

type resizeGesture struct {
	items     []*canvas.Item
	origin    geom.Point
	last      geom.Point // view position of the previous tick
	fromPos   []geom.Point
	fromScale []float64
}

func (e *Engine) beginDrag(pos geom.Point) {
	sp := e.view.MapToScene(pos)
	hit := e.canvas.ItemAt(sp)
	if hit == nil {
		e.canvas.ClearSelection()
		if e.rubberBand {
			e.band = &bandGesture{anchor: sp, current: sp}
		}
		return
	}
	wasSelected := hit.Selected
	if !wasSelected {
		e.canvas.SelectOnly(hit)
	}
	items := e.canvas.Selected()
	g := &dragGesture{items: items, from: make([]geom.Point, len(items)), start: sp, pressed: hit, wasPressed: wasSelected}
	for i, it := range items {
		e.canvas.RaiseToFront(it)
		g.from[i] = it.Pos
	}
	e.drag = g
}

func (e *Engine) dragTo(pos geom.Point) {
	sp := e.view.MapToScene(pos)
	if e.band != nil {
		e.band.current = sp
		e.canvas.SelectIntersecting(geom.RectFromPoints(e.band.anchor, sp))
		return
	}
	g := e.drag
	if g == nil {
		return
	}
	d := geom.Sub(sp, g.start)
	to := make([]geom.Point, len(g.items))
	for i := range g.items {
		to[i] = geom.Add(g.from[i], d)
	}
	e.canvas.MoveEach(g.items, to)
	for _, it := range g.items {
		e.canvas.RaiseToFront(it)
	}
	g.moved = true
}

func (e *Engine) endDrag() {
	if g := e.drag; g != nil && !g.moved && g.wasPressed {
		e.canvas.SelectOnly(g.pressed)
	}
	e.finishDrag()
	e.finishBand()
	e.canvas.Recompute()
}

// finishDrag publishes the move of an active drag, if anything moved.
func (e *Engine) finishDrag() {
	g := e.drag
	e.drag = nil
	if g == nil {
		return
	}
	to := make([]geom.Point, len(g.items))
	changed := false
	for i, it := range g.items {
		to[i] = it.Pos
		if it.Pos != g.from[i] {
			changed = true
		}
	}
	if !changed {
		return
	}
	e.log.Debug("items moved", slog.Int("count", len(g.items)))
	e.bus.Publish(events.ItemsMoved{Items: g.items, From: g.from, To: to})
}

func (e *Engine) finishBand() { e.band = nil }

func (e *Engine) pan(pos geom.Point) {
	e.growScene()
	e.cursor = CursorClosedHand
	prev := e.view.MapToScene(e.lastPan)
	cur := e.view.MapToScene(pos)
	e.view.Translate(geom.Sub(cur, prev))
	e.lastPan = pos
}

func (e *Engine) zoom(ev Wheel) {
	if ev.DeltaY == 0 {
		return
	}
	e.growScene()
	f := e.cfg.ZoomFactor
	if ev.DeltaY < 0 {
		f = 1 / f
	}
	before := e.view.MapToScene(ev.Pos)
	e.view.ScaleBy(f)
	after := e.view.MapToScene(ev.Pos)
	e.view.Translate(geom.Sub(after, before))
	e.canvas.Recompute()
}

func (e *Engine) beginResize(pos geom.Point) {
	items := e.canvas.Selected()
	if len(items) == 0 {
		e.resize = nil
		return
	}
	rects := make([]geom.Rect, len(items))
	g := &resizeGesture{items: items, last: pos, fromPos: make([]geom.Point, len(items)), fromScale: make([]float64, len(items))}
	for i, it := range items {
		rects[i] = it.Bounds()
		g.fromPos[i] = it.Pos
		g.fromScale[i] = it.Scale
	}
	g.origin = geom.UnionAll(rects).Center()
	e.resize = g
}

// ResizeFactor is the scale applied to the group for one resize tick, given
// the previous and current pointer positions in view pixels. The group is
// rebuilt every tick so its own scale starts at 1.
func ResizeFactor(last, cur geom.Point, inverseZoom, gain, floor float64) float64 {
	delta := geom.Sub(last, cur)
	pull := -delta.X
	sign := 0.0
	switch {
	case pull > 0:
		sign = 1
	case pull < 0:
		sign = -1
	}
	f := 1 + geom.Manhattan(delta)*inverseZoom*gain*sign
	return math.Max(f, floor*inverseZoom)
}

func (e *Engine) resizeTo(pos geom.Point) {
	g := e.resize
	if g == nil {
		return
	}
	f := ResizeFactor(g.last, pos, e.view.InverseZoom(), e.cfg.ResizeGain, e.cfg.MinScale)
	e.canvas.ScaleGroup(g.items, g.origin, f)
	g.last = pos
}

// finishResize publishes the active resize, if anything changed.
func (e *Engine) finishResize() {
	g := e.resize
	e.resize = nil
	if g == nil {
		return
	}
	n := len(g.items)
	toPos := make([]geom.Point, n)
	toScale := make([]float64, n)
	changed := false
	for i, it := range g.items {
		toPos[i], toScale[i] = it.Pos, it.Scale
		if it.Pos != g.fromPos[i] || it.Scale != g.fromScale[i] {
			changed = true
		}
	}
	if !changed {
		return
	}
	e.bus.Publish(events.ItemsResized{Items: g.items, FromPos: g.fromPos, ToPos: toPos, FromScale: g.fromScale, ToScale: toScale})
}
