/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pack lays a set of items out in rows relative to an origin point.
//
// The layout is deterministic: items are stable-sorted by effective height
// (tallest first) and walked left to right. The row cap is twice the widest
// effective width. A row wraps when the running x plus the next item's height
// would exceed the cap, and the block is anchored so that it grows up and to
// the left of the origin. Row accumulators are integers, so fractional
// widths and heights are truncated as they are added.
package pack

import (
	"sort"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

// Cap returns the row cap for sizes: twice the largest width.
func Cap(sizes []geom.Size) float64 {
	w := 0.0
	for _, s := range sizes {
		if s.W > w {
			w = s.W
		}
	}
	return 2 * w
}

// Layout returns one position per entry of sizes, in input order.
func Layout(origin geom.Point, sizes []geom.Size) []geom.Point {
	out := make([]geom.Point, len(sizes))
	if len(sizes) == 0 {
		return out
	}
	limit := Cap(sizes)

	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sizes[order[a]].H > sizes[order[b]].H })

	x, y, rowH := 0, 0, 0
	for _, i := range order {
		s := sizes[i]
		if float64(x)+s.H > limit {
			x = 0
			y += rowH
			rowH = 0
		}
		out[i] = geom.Pt(origin.X+(float64(x)-limit), origin.Y+(float64(y)-limit))
		x = int(float64(x) + s.W)
		if s.H > float64(rowH) {
			rowH = int(s.H)
		}
	}
	return out
}

// Items packs items around origin and moves them on c.
// It returns the previous positions in the same order as items.
func Items(c *canvas.Canvas, items []*canvas.Item, origin geom.Point) []geom.Point {
	sizes := make([]geom.Size, len(items))
	old := make([]geom.Point, len(items))
	for i, it := range items {
		sizes[i] = geom.Size{W: it.EffectiveWidth(), H: it.EffectiveHeight()}
		old[i] = it.Pos
	}
	c.MoveEach(items, Layout(origin, sizes))
	return old
}
