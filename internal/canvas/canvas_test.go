/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"testing"

	"gorefcanvas/internal/geom"
)

func addSquare(c *Canvas, x, y float64, size int) *Item {
	return c.NewItem("sq.png", nil, size, size, geom.Pt(x, y))
}

func TestBoundsTrackLiveItems(t *testing.T) {
	c := New()
	if !c.Bounds().IsEmpty() {
		t.Fatalf("empty canvas should have empty bounds, got %+v", c.Bounds())
	}
	a := addSquare(c, 0, 0, 10)
	b := addSquare(c, 100, 50, 20)
	want := geom.Rect{X: 0, Y: 0, W: 120, H: 70}
	if c.Bounds() != want {
		t.Fatalf("bounds = %+v, want %+v", c.Bounds(), want)
	}
	c.Tombstone([]*Item{b})
	if c.Bounds() != a.Bounds() {
		t.Fatalf("bounds after delete = %+v, want %+v", c.Bounds(), a.Bounds())
	}
	c.Restore([]*Item{b})
	if c.Bounds() != want {
		t.Fatalf("bounds after restore = %+v", c.Bounds())
	}
}

func TestRaiseToFrontOnlyConsultsOverlaps(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 100)
	far := addSquare(c, 5000, 5000, 10)
	far.Z = 40
	b := addSquare(c, 50, 50, 100)
	b.Z = 3

	c.RaiseToFront(a)
	if a.Z != 4 {
		t.Fatalf("a.Z = %v, want 4", a.Z)
	}
	lonely := addSquare(c, -900, -900, 10)
	c.RaiseToFront(lonely)
	if lonely.Z != 1 {
		t.Fatalf("isolated raise should give z=1, got %v", lonely.Z)
	}
}

func TestItemAtPrefersHigherZThenLaterInsert(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 100)
	b := addSquare(c, 10, 10, 100)
	if got := c.ItemAt(geom.Pt(50, 50)); got != b {
		t.Fatalf("equal z should pick later item, got %v", got.ID)
	}
	a.Z = 2
	if got := c.ItemAt(geom.Pt(50, 50)); got != a {
		t.Fatalf("higher z should win, got %v", got.ID)
	}
	c.Tombstone([]*Item{a})
	if got := c.ItemAt(geom.Pt(5, 5)); got != nil {
		t.Fatalf("tombstone must not be hit, got %v", got.ID)
	}
	if got := c.ItemAt(geom.Pt(-5, -5)); got != nil {
		t.Fatalf("empty point hit %v", got.ID)
	}
}

func TestSelectionHelpers(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 10)
	b := addSquare(c, 20, 0, 10)
	d := addSquare(c, 400, 400, 10)
	c.SelectAll()
	if len(c.Selected()) != 3 {
		t.Fatalf("select all: %d", len(c.Selected()))
	}
	c.SelectOnly(b)
	if sel := c.Selected(); len(sel) != 1 || sel[0] != b {
		t.Fatalf("select only: %+v", sel)
	}
	got := c.SelectIntersecting(geom.RectFromPoints(geom.Pt(-1, -1), geom.Pt(25, 5)))
	if len(got) != 2 || got[0] != a || got[1] != b || d.Selected {
		t.Fatalf("rubber band selection wrong: %+v", got)
	}
	c.Tombstone([]*Item{a})
	if a.Selected {
		t.Fatalf("deleted item stays selected")
	}
	c.ClearSelection()
	if len(c.Selected()) != 0 {
		t.Fatalf("clear selection failed")
	}
}

func TestScaleGroupAboutOrigin(t *testing.T) {
	c := New()
	a := addSquare(c, 10, 10, 10)
	b := addSquare(c, 30, 10, 10)
	c.ScaleGroup([]*Item{a, b}, geom.Pt(10, 10), 2)
	if a.Pos != geom.Pt(10, 10) || b.Pos != geom.Pt(50, 10) {
		t.Fatalf("positions after scale: %v %v", a.Pos, b.Pos)
	}
	if a.Scale != 2 || b.Scale != 2 {
		t.Fatalf("scales after scale: %v %v", a.Scale, b.Scale)
	}
	if got := c.ItemAt(geom.Pt(68, 28)); got != b {
		t.Fatalf("index not refreshed after scale")
	}
}

func TestPurgeAndReattach(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 10)
	b := addSquare(c, 20, 0, 10)
	c.Tombstone([]*Item{a})
	ev := c.Purge()
	if len(ev) != 1 || ev[0] != a || c.Len() != 1 || c.Contains(a) {
		t.Fatalf("purge: evicted=%v len=%d", ev, c.Len())
	}
	if a.Visible() {
		t.Fatalf("evicted item reports visible")
	}
	c.Restore([]*Item{a})
	if !c.Contains(a) || !a.Visible() || c.Len() != 2 {
		t.Fatalf("restore did not re-attach")
	}
	if got := c.ItemAt(geom.Pt(5, 5)); got != a {
		t.Fatalf("re-attached item not hit-testable")
	}
	if items := c.Items(); items[0] != b || items[1] != a {
		t.Fatalf("re-attached item should go to the end of insertion order")
	}
}

func TestFlipToggles(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 10)
	c.ToggleFlip([]*Item{a})
	c.ToggleFlip([]*Item{a})
	if a.Flipped {
		t.Fatalf("double flip should be identity")
	}
}

func TestOversizedItemsStillIndexed(t *testing.T) {
	c := New()
	huge := addSquare(c, 0, 0, 100000)
	small := addSquare(c, 50000, 50000, 10)
	c.RaiseToFront(small)
	if small.Z != 1 {
		t.Fatalf("small.Z = %v", small.Z)
	}
	huge.Z = 5
	c.RaiseToFront(small)
	if small.Z != 6 {
		t.Fatalf("small should rise above huge, got %v", small.Z)
	}
}

func TestPaintOrder(t *testing.T) {
	c := New()
	a := addSquare(c, 0, 0, 10)
	b := addSquare(c, 5, 5, 10)
	d := addSquare(c, 50, 50, 10)
	a.Z = 2
	got := c.PaintOrder()
	if len(got) != 3 || got[0] != b || got[1] != d || got[2] != a {
		t.Fatalf("unexpected paint order %v", []ID{got[0].ID, got[1].ID, got[2].ID})
	}
	c.Tombstone([]*Item{d})
	if len(c.PaintOrder()) != 2 {
		t.Fatalf("tombstones must not be painted")
	}
}
