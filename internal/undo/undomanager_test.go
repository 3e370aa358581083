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
	"testing"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/events"
	"gorefcanvas/internal/geom"
)

type countCmd struct {
	name string
	n    *int
}

func (c countCmd) Name() string { return c.name }
func (c countCmd) Undo()        { *c.n-- }
func (c countCmd) Redo()        { *c.n++ }

func TestUndoRedoBasic(t *testing.T) {
	s := NewStack(Config{})
	v := 0
	for _, name := range []string{"a", "b"} {
		v++
		s.Push(countCmd{name: name, n: &v})
	}
	if total, applied := s.Stats(); total != 2 || applied != 2 {
		t.Fatalf("expected 2 commands, got total=%d applied=%d", total, applied)
	}
	if s.UndoName() != "b" || !s.Undo() || v != 1 {
		t.Fatalf("undo expected to revert 'b', v=%d", v)
	}
	if s.RedoName() != "b" || !s.Redo() || v != 2 {
		t.Fatalf("redo expected to reapply 'b', v=%d", v)
	}
	if s.Redo() {
		t.Fatalf("redo past the end should report false")
	}
}

func TestPushDiscardsRedoTail(t *testing.T) {
	s := NewStack(Config{})
	v := 0
	s.Push(countCmd{name: "a", n: &v})
	s.Push(countCmd{name: "b", n: &v})
	s.Undo()
	s.Push(countCmd{name: "c", n: &v})
	if s.CanRedo() {
		t.Fatalf("redo tail survived a push")
	}
	if total, _ := s.Stats(); total != 2 || s.UndoName() != "c" {
		t.Fatalf("unexpected stack after push: total=%d top=%q", total, s.UndoName())
	}
}

func TestCaps(t *testing.T) {
	s := NewStack(Config{Limit: 2})
	v := 0
	for i := 0; i < 10; i++ {
		s.Push(countCmd{name: "x", n: &v})
	}
	total, applied := s.Stats()
	if total != 2 || applied != 2 {
		t.Fatalf("expected limit to keep 2, got total=%d applied=%d", total, applied)
	}
	if NewStack(Config{}).cfg.Limit != DefaultLimit {
		t.Fatalf("default limit not applied")
	}
}

func TestCleanTracking(t *testing.T) {
	s := NewStack(Config{})
	var changes []bool
	s.OnCleanChanged(func(c bool) { changes = append(changes, c) })
	v := 0
	if !s.IsClean() {
		t.Fatalf("new stack should be clean")
	}
	s.Push(countCmd{name: "a", n: &v})
	s.Undo()
	s.Redo()
	s.SetClean()
	s.Undo()
	s.Push(countCmd{name: "b", n: &v})
	// the saved state was in the discarded redo tail
	s.Undo()
	s.Redo()
	if s.IsClean() {
		t.Fatalf("clean state should be unreachable after its redo tail was dropped")
	}
	want := []bool{false, true, false, true, false}
	if len(changes) != len(want) {
		t.Fatalf("clean changes %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("clean changes %v, want %v", changes, want)
		}
	}
}

func TestResetCleanAndEviction(t *testing.T) {
	s := NewStack(Config{Limit: 1})
	v := 0
	s.ResetClean()
	if s.IsClean() {
		t.Fatalf("reset clean should leave the stack dirty")
	}
	s.SetClean()
	s.Push(countCmd{name: "a", n: &v})
	s.Push(countCmd{name: "b", n: &v})
	s.Undo()
	if s.IsClean() {
		t.Fatalf("evicted clean state must not become clean again")
	}
	s.Clear()
	if !s.IsClean() || s.CanUndo() {
		t.Fatalf("clear should leave an empty clean stack")
	}
}

func TestMoveInverseLaw(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("a.png", nil, 10, 10, geom.Pt(1, 2))
	b := c.NewItem("b.png", nil, 10, 10, geom.Pt(3, 4))
	from := []geom.Point{a.Pos, b.Pos}
	to := []geom.Point{geom.Pt(100.5, 7), geom.Pt(-3, 44)}
	c.MoveTo(a, to[0])
	c.MoveTo(b, to[1])

	s := NewStack(Config{})
	s.Push(&Move{Canvas: c, Items: []*canvas.Item{a, b}, From: from, To: to})
	s.Undo()
	if a.Pos != from[0] || b.Pos != from[1] {
		t.Fatalf("undo did not restore pre-move positions: %v %v", a.Pos, b.Pos)
	}
	s.Redo()
	if a.Pos != to[0] || b.Pos != to[1] {
		t.Fatalf("redo did not restore post-move positions: %v %v", a.Pos, b.Pos)
	}
	if c.Bounds() != geom.R(-3, 7, 113.5, 47) {
		t.Fatalf("bounds not refreshed: %+v", c.Bounds())
	}
}

func TestDeleteUndoIdempotence(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("a.png", []byte{1, 2, 3}, 10, 10, geom.Pt(5, 5))
	a.Z = 3
	a.Scale = 1.5
	before := *a

	bus := events.NewBus()
	s := NewStack(Config{})
	rec := NewRecorder(s, c, bus)
	defer rec.Close()

	c.Tombstone([]*canvas.Item{a})
	bus.Publish(events.ItemsDeleted{Items: []*canvas.Item{a}})
	if a.Visible() || c.ItemAt(geom.Pt(6, 6)) != nil {
		t.Fatalf("deleted item still visible")
	}
	s.Undo()
	if !a.Visible() || a.Path != before.Path || a.Pos != before.Pos || a.Scale != before.Scale ||
		a.Z != before.Z || a.Flipped != before.Flipped || string(a.Image) != string(before.Image) {
		t.Fatalf("undo changed persisted fields: %+v vs %+v", *a, before)
	}
	s.Redo()
	if a.Visible() {
		t.Fatalf("redo should hide the item again")
	}
	// a save evicts the tombstone; undo must bring it back onto the canvas
	c.Purge()
	s.Undo()
	if !c.Contains(a) || c.ItemAt(geom.Pt(6, 6)) != a {
		t.Fatalf("undo after purge did not re-attach the item")
	}
}

func TestRecorderFlipAndResize(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("a.png", nil, 10, 10, geom.Pt(0, 0))
	bus := events.NewBus()
	s := NewStack(Config{})
	NewRecorder(s, c, bus)

	c.ToggleFlip([]*canvas.Item{a})
	bus.Publish(events.ItemsFlipped{Items: []*canvas.Item{a}})
	c.Place(a, geom.Pt(-5, -5), 2)
	bus.Publish(events.ItemsResized{
		Items:   []*canvas.Item{a},
		FromPos: []geom.Point{geom.Pt(0, 0)}, ToPos: []geom.Point{geom.Pt(-5, -5)},
		FromScale: []float64{1}, ToScale: []float64{2},
	})
	bus.Publish(events.ItemsMoved{})

	if total, _ := s.Stats(); total != 2 {
		t.Fatalf("expected 2 recorded commands, got %d", total)
	}
	s.Undo()
	if a.Scale != 1 || a.Pos != geom.Pt(0, 0) {
		t.Fatalf("resize undo: pos=%v scale=%v", a.Pos, a.Scale)
	}
	s.Undo()
	if a.Flipped {
		t.Fatalf("flip undo should toggle back")
	}
	s.Redo()
	if !a.Flipped {
		t.Fatalf("flip redo should toggle again")
	}
}

func TestRecorderArrangeIsOneStep(t *testing.T) {
	c := canvas.New()
	a := c.NewItem("a.png", nil, 10, 10, geom.Pt(500, 500))
	a.Z = 42
	a.Flipped = true
	bus := events.NewBus()
	s := NewStack(Config{})
	NewRecorder(s, c, bus)

	a.Z = 0
	c.ToggleFlip([]*canvas.Item{a})
	c.Place(a, geom.Pt(0, 0), 2)
	bus.Publish(events.ItemsArranged{
		Items: []*canvas.Item{a}, Flipped: []*canvas.Item{a},
		FromPos: []geom.Point{geom.Pt(500, 500)}, ToPos: []geom.Point{geom.Pt(0, 0)},
		FromScale: []float64{1}, ToScale: []float64{2},
		FromZ: []float64{42}, ToZ: []float64{0},
	})

	if total, _ := s.Stats(); total != 1 {
		t.Fatalf("expected 1 recorded command, got %d", total)
	}
	s.Undo()
	if a.Pos != geom.Pt(500, 500) || a.Scale != 1 || a.Z != 42 || !a.Flipped {
		t.Fatalf("undo: pos=%v scale=%v z=%v flipped=%v", a.Pos, a.Scale, a.Z, a.Flipped)
	}
	if c.ItemAt(geom.Pt(505, 505)) != a {
		t.Fatalf("undo did not reindex the item")
	}
	s.Redo()
	if a.Pos != geom.Pt(0, 0) || a.Scale != 2 || a.Z != 0 || a.Flipped {
		t.Fatalf("redo: pos=%v scale=%v z=%v flipped=%v", a.Pos, a.Scale, a.Z, a.Flipped)
	}
}
