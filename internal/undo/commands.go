/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

// Move restores item positions.
type Move struct {
	Canvas   *canvas.Canvas
	Items    []*canvas.Item
	From, To []geom.Point
}

func (m *Move) Name() string { return "Move" }
func (m *Move) Undo()        { m.Canvas.MoveEach(m.Items, m.From) }
func (m *Move) Redo()        { m.Canvas.MoveEach(m.Items, m.To) }

// Delete toggles the tombstone of its items. Undo re-attaches items that a save
// evicted in the meantime.
type Delete struct {
	Canvas *canvas.Canvas
	Items  []*canvas.Item
}

func (d *Delete) Name() string { return "Delete" }
func (d *Delete) Undo()        { d.Canvas.Restore(d.Items) }
func (d *Delete) Redo()        { d.Canvas.Tombstone(d.Items) }

// Flip mirrors its items; undo and redo are the same toggle.
type Flip struct {
	Canvas *canvas.Canvas
	Items  []*canvas.Item
}

func (f *Flip) Name() string { return "Flip" }
func (f *Flip) Undo()        { f.Canvas.ToggleFlip(f.Items) }
func (f *Flip) Redo()        { f.Canvas.ToggleFlip(f.Items) }

// Resize restores position and scale of a group resize.
type Resize struct {
	Canvas             *canvas.Canvas
	Items              []*canvas.Item
	FromPos, ToPos     []geom.Point
	FromScale, ToScale []float64
}

func (r *Resize) Name() string { return "Resize" }
func (r *Resize) Undo()        { r.apply(r.FromPos, r.FromScale) }
func (r *Resize) Redo()        { r.apply(r.ToPos, r.ToScale) }

func (r *Resize) apply(ps []geom.Point, scales []float64) {
	for i, it := range r.Items {
		r.Canvas.Place(it, ps[i], scales[i])
	}
}

// Arrange restores placement, z and flip state of an applied layout as a
// single step.
type Arrange struct {
	Canvas             *canvas.Canvas
	Items              []*canvas.Item
	FromPos, ToPos     []geom.Point
	FromScale, ToScale []float64
	FromZ, ToZ         []float64
	Flipped            []*canvas.Item
}

func (a *Arrange) Name() string { return "Apply layout" }
func (a *Arrange) Undo()        { a.apply(a.FromPos, a.FromScale, a.FromZ) }
func (a *Arrange) Redo()        { a.apply(a.ToPos, a.ToScale, a.ToZ) }

func (a *Arrange) apply(ps []geom.Point, scales, zs []float64) {
	for i, it := range a.Items {
		it.Z = zs[i]
		a.Canvas.Place(it, ps[i], scales[i])
	}
	a.Canvas.ToggleFlip(a.Flipped)
}
