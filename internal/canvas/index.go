/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"

	"gorefcanvas/internal/geom"
)

const (
	cellSize = 256.0
	// items spanning more cells than this live in the oversized list and are
	// checked on every query instead of being spread over the grid.
	maxCellsPerItem = 4096
)

type cellKey struct{ x, y int64 }

// spatialIndex is a uniform grid over scene space. Queries touch only the cells
// a rectangle covers, so overlap lookups scale with local density rather than
// with the total number of items.
type spatialIndex struct {
	cells     map[cellKey]map[ID]*Item
	oversized map[ID]*Item
	spans     map[ID][]cellKey
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		cells:     make(map[cellKey]map[ID]*Item),
		oversized: make(map[ID]*Item),
		spans:     make(map[ID][]cellKey),
	}
}

func cellRange(r geom.Rect) (x0, y0, x1, y1 int64) {
	x0 = int64(math.Floor(r.X / cellSize))
	y0 = int64(math.Floor(r.Y / cellSize))
	x1 = int64(math.Floor((r.X + r.W) / cellSize))
	y1 = int64(math.Floor((r.Y + r.H) / cellSize))
	return
}

func (s *spatialIndex) insert(it *Item) {
	s.remove(it)
	x0, y0, x1, y1 := cellRange(it.Bounds())
	if (x1-x0+1)*(y1-y0+1) > maxCellsPerItem {
		s.oversized[it.ID] = it
		return
	}
	keys := make([]cellKey, 0, (x1-x0+1)*(y1-y0+1))
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			k := cellKey{x, y}
			m := s.cells[k]
			if m == nil {
				m = make(map[ID]*Item)
				s.cells[k] = m
			}
			m[it.ID] = it
			keys = append(keys, k)
		}
	}
	s.spans[it.ID] = keys
}

func (s *spatialIndex) remove(it *Item) {
	delete(s.oversized, it.ID)
	for _, k := range s.spans[it.ID] {
		if m := s.cells[k]; m != nil {
			delete(m, it.ID)
			if len(m) == 0 {
				delete(s.cells, k)
			}
		}
	}
	delete(s.spans, it.ID)
}

// query returns the indexed items whose bounds strictly intersect r.
func (s *spatialIndex) query(r geom.Rect) []*Item {
	seen := make(map[ID]struct{})
	var out []*Item
	consider := func(it *Item) {
		if _, ok := seen[it.ID]; ok {
			return
		}
		seen[it.ID] = struct{}{}
		if it.Bounds().Intersects(r) {
			out = append(out, it)
		}
	}
	x0, y0, x1, y1 := cellRange(r)
	if (x1-x0+1)*(y1-y0+1) > maxCellsPerItem {
		// a huge query rect is cheaper to answer from the span table
		for id := range s.spans {
			for _, k := range s.spans[id] {
				if it := s.cells[k][id]; it != nil {
					consider(it)
					break
				}
			}
		}
	} else {
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				for _, it := range s.cells[cellKey{x, y}] {
					consider(it)
				}
			}
		}
	}
	for _, it := range s.oversized {
		consider(it)
	}
	return out
}

// at returns the indexed items whose bounds contain p.
func (s *spatialIndex) at(p geom.Point) []*Item {
	var out []*Item
	k := cellKey{int64(math.Floor(p.X / cellSize)), int64(math.Floor(p.Y / cellSize))}
	for _, it := range s.cells[k] {
		if it.Bounds().Contains(p) {
			out = append(out, it)
		}
	}
	for _, it := range s.oversized {
		if it.Bounds().Contains(p) {
			out = append(out, it)
		}
	}
	return out
}

func (s *spatialIndex) reset() {
	s.cells = make(map[cellKey]map[ID]*Item)
	s.oversized = make(map[ID]*Item)
	s.spans = make(map[ID][]cellKey)
}
