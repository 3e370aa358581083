/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas owns the placed items of a board: insertion order, z-order,
// soft deletion, the aggregate bounding box and the selection flags.
//
// The canvas is mutated from a single event thread and does no locking.
package canvas

import (
	"log/slog"
	"sort"

	"gorefcanvas/internal/geom"
	applog "gorefcanvas/internal/log"
)

// Canvas is the insertion-ordered set of items under one logical layer.
type Canvas struct {
	items  []*Item
	nextID ID
	order  uint64
	bounds geom.Rect
	index  *spatialIndex
	log    *slog.Logger
}

// New returns an empty canvas.
func New() *Canvas {
	return &Canvas{nextID: 1, index: newSpatialIndex(), log: applog.WithComponent("canvas")}
}

// NewItem creates an item at pos with unit scale and z 0 and adds it to the canvas.
func (c *Canvas) NewItem(path string, img []byte, w, h int, pos geom.Point) *Item {
	return c.Add(&Item{Path: path, Image: img, Width: w, Height: h, Pos: pos, Scale: 1})
}

// Add appends it, assigning an ID if it has none. A zero scale is treated as 1.
func (c *Canvas) Add(it *Item) *Item {
	if it.ID == 0 {
		it.ID = c.nextID
		c.nextID++
	} else if it.ID >= c.nextID {
		c.nextID = it.ID + 1
	}
	if it.Scale == 0 {
		it.Scale = 1
	}
	c.attach(it)
	c.Recompute()
	return it
}

func (c *Canvas) attach(it *Item) {
	c.order++
	it.order = c.order
	it.attached = true
	c.items = append(c.items, it)
	if !it.Deleted {
		c.index.insert(it)
	}
}

// Items returns every attached item in insertion order, tombstones included.
func (c *Canvas) Items() []*Item { return append([]*Item(nil), c.items...) }

// Live returns the non-deleted items in insertion order.
func (c *Canvas) Live() []*Item {
	out := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		if !it.Deleted {
			out = append(out, it)
		}
	}
	return out
}

// PaintOrder returns the live items back to front: ascending z, ties in
// insertion order.
func (c *Canvas) PaintOrder() []*Item {
	out := c.Live()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// Len returns the number of attached items, tombstones included.
func (c *Canvas) Len() int { return len(c.items) }

// Contains reports whether it is attached to this canvas.
func (c *Canvas) Contains(it *Item) bool { return it != nil && it.attached && c.indexOf(it) >= 0 }

func (c *Canvas) indexOf(it *Item) int {
	for i, x := range c.items {
		if x == it {
			return i
		}
	}
	return -1
}

// Bounds returns the union of all non-deleted item bounds as of the last Recompute.
func (c *Canvas) Bounds() geom.Rect { return c.bounds }

// Recompute refreshes the aggregate bounding box. O(non-deleted items).
func (c *Canvas) Recompute() {
	first := true
	var b geom.Rect
	for _, it := range c.items {
		if it.Deleted {
			continue
		}
		if first {
			b = it.Bounds()
			first = false
			continue
		}
		b = b.Union(it.Bounds())
	}
	c.bounds = b
}

// Selected returns the visible items whose selected flag is set, in insertion order.
// It is computed on every call.
func (c *Canvas) Selected() []*Item {
	var out []*Item
	for _, it := range c.items {
		if it.Selected && !it.Deleted {
			out = append(out, it)
		}
	}
	return out
}

// ClearSelection deselects every item.
func (c *Canvas) ClearSelection() {
	for _, it := range c.items {
		it.Selected = false
	}
}

// SelectAll selects every visible item.
func (c *Canvas) SelectAll() {
	for _, it := range c.items {
		it.Selected = !it.Deleted
	}
}

// SelectOnly makes it the sole selected item.
func (c *Canvas) SelectOnly(it *Item) {
	c.ClearSelection()
	if it != nil && !it.Deleted {
		it.Selected = true
	}
}

// SelectIntersecting replaces the selection with the visible items whose bounds
// intersect r (rubber-band selection).
func (c *Canvas) SelectIntersecting(r geom.Rect) []*Item {
	hit := make(map[ID]struct{})
	for _, it := range c.index.query(r) {
		hit[it.ID] = struct{}{}
	}
	var out []*Item
	for _, it := range c.items {
		_, ok := hit[it.ID]
		it.Selected = ok && !it.Deleted
		if it.Selected {
			out = append(out, it)
		}
	}
	return out
}

// ItemAt returns the top-most visible item containing p, or nil.
// Equal z values resolve to the later-inserted item.
func (c *Canvas) ItemAt(p geom.Point) *Item {
	var top *Item
	for _, it := range c.index.at(p) {
		if top == nil || it.Z > top.Z || (it.Z == top.Z && it.order > top.order) {
			top = it
		}
	}
	return top
}

// Overlapping returns the visible items, other than it, whose bounds intersect it.
func (c *Canvas) Overlapping(it *Item) []*Item {
	cands := c.index.query(it.Bounds())
	out := cands[:0]
	for _, o := range cands {
		if o != it {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// RaiseToFront sets it.Z one above the highest z among its current overlaps
// (floor 0). Items that do not overlap it are not consulted.
func (c *Canvas) RaiseToFront(it *Item) {
	maxZ := 0.0
	for _, o := range c.Overlapping(it) {
		if o.Z > maxZ {
			maxZ = o.Z
		}
	}
	it.Z = maxZ + 1
}

// MoveTo places it at p.
func (c *Canvas) MoveTo(it *Item, p geom.Point) {
	it.Pos = p
	c.reindex(it)
	c.Recompute()
}

// MoveEach places items[i] at ps[i] and recomputes the bounds once.
func (c *Canvas) MoveEach(items []*Item, ps []geom.Point) {
	for i, it := range items {
		it.Pos = ps[i]
		c.reindex(it)
	}
	c.Recompute()
}

// Place sets both position and scale of it.
func (c *Canvas) Place(it *Item, p geom.Point, scale float64) {
	it.Pos = p
	it.Scale = scale
	c.reindex(it)
	c.Recompute()
}

// ScaleGroup scales items rigidly by f about origin: every position is pushed
// away from (or pulled towards) origin and every item scale is multiplied by f.
// The group exists only for the duration of the call.
func (c *Canvas) ScaleGroup(items []*Item, origin geom.Point, f float64) {
	if f <= 0 || len(items) == 0 {
		return
	}
	for _, it := range items {
		it.Pos = geom.Add(origin, geom.Scale(f, geom.Sub(it.Pos, origin)))
		it.Scale *= f
		c.reindex(it)
	}
	c.Recompute()
}

// ToggleFlip mirrors each item horizontally.
func (c *Canvas) ToggleFlip(items []*Item) {
	for _, it := range items {
		it.Flipped = !it.Flipped
	}
}

// Tombstone soft-deletes items: they are deselected, hidden and excluded from
// hit-testing but stay attached until Purge.
func (c *Canvas) Tombstone(items []*Item) {
	for _, it := range items {
		it.Deleted = true
		it.Selected = false
		c.index.remove(it)
	}
	c.Recompute()
}

// Restore clears the tombstone on items and re-attaches any that a Purge evicted.
func (c *Canvas) Restore(items []*Item) {
	for _, it := range items {
		it.Deleted = false
		if !c.Contains(it) {
			c.attach(it)
			c.log.Debug("item re-attached", slog.Uint64("id", uint64(it.ID)))
			continue
		}
		c.index.insert(it)
	}
	c.Recompute()
}

// Purge physically drops tombstoned items and returns them.
func (c *Canvas) Purge() []*Item {
	var evicted []*Item
	kept := c.items[:0]
	for _, it := range c.items {
		if it.Deleted {
			it.attached = false
			c.index.remove(it)
			evicted = append(evicted, it)
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = nil
	}
	c.items = kept
	if len(evicted) > 0 {
		c.log.Debug("tombstones evicted", slog.Int("count", len(evicted)))
	}
	c.Recompute()
	return evicted
}

// Clear removes every item.
func (c *Canvas) Clear() {
	for _, it := range c.items {
		it.attached = false
	}
	c.items = nil
	c.index.reset()
	c.bounds = geom.Rect{}
}

func (c *Canvas) reindex(it *Item) {
	if it.attached && !it.Deleted {
		c.index.insert(it)
	}
}
