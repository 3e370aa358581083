/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "gorefcanvas/internal/geom"

// ID identifies an item for the lifetime of a session.
type ID uint64

// Item is one placed image layer.
// Fields are readable by anyone; mutations go through Canvas so the bounding box
// and the spatial index stay in sync.
type Item struct {
	ID ID
	// Path is the source path or URL the image came from.
	Path string
	// Image holds the encoded image bytes exactly as imported (png, jpeg, ...).
	Image []byte
	// Width and Height are the decoded pixel dimensions.
	Width, Height int

	Pos   geom.Point
	Scale float64
	Z     float64

	Flipped bool
	// Deleted marks a tombstone: hidden and skipped by hit-testing, paint and save,
	// but kept in memory so undo can bring it back.
	Deleted bool
	// Selected is transient and never persisted.
	Selected bool

	order    uint64
	attached bool
}

// Bounds returns the scene-space bounding rectangle. Flipping mirrors the image
// inside the same rectangle.
func (it *Item) Bounds() geom.Rect {
	return geom.Rect{X: it.Pos.X, Y: it.Pos.Y, W: it.EffectiveWidth(), H: it.EffectiveHeight()}
}

// EffectiveWidth is the on-screen width in scene units (pixels times scale).
func (it *Item) EffectiveWidth() float64 { return float64(it.Width) * it.Scale }

// EffectiveHeight is the on-screen height in scene units.
func (it *Item) EffectiveHeight() float64 { return float64(it.Height) * it.Scale }

// Visible reports whether the item takes part in hit-testing and paint.
func (it *Item) Visible() bool { return it.attached && !it.Deleted }
