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
	"gorefcanvas/internal/events"
)

// Recorder turns published edit events into commands on a Stack.
type Recorder struct {
	stack  *Stack
	canvas *canvas.Canvas
	stop   func()
}

// NewRecorder subscribes to bus and records moves, deletes, flips, resizes and
// applied layouts of c onto s.
func NewRecorder(s *Stack, c *canvas.Canvas, bus *events.Bus) *Recorder {
	r := &Recorder{stack: s, canvas: c}
	r.stop = bus.Subscribe(r.handle)
	return r
}

// Close stops recording.
func (r *Recorder) Close() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

func (r *Recorder) handle(e events.Event) {
	switch ev := e.(type) {
	case events.ItemsMoved:
		if len(ev.Items) == 0 {
			return
		}
		r.stack.Push(&Move{Canvas: r.canvas, Items: ev.Items, From: ev.From, To: ev.To})
	case events.ItemsDeleted:
		if len(ev.Items) == 0 {
			return
		}
		r.stack.Push(&Delete{Canvas: r.canvas, Items: ev.Items})
	case events.ItemsFlipped:
		if len(ev.Items) == 0 {
			return
		}
		r.stack.Push(&Flip{Canvas: r.canvas, Items: ev.Items})
	case events.ItemsResized:
		if len(ev.Items) == 0 {
			return
		}
		r.stack.Push(&Resize{
			Canvas: r.canvas, Items: ev.Items,
			FromPos: ev.FromPos, ToPos: ev.ToPos,
			FromScale: ev.FromScale, ToScale: ev.ToScale,
		})
	case events.ItemsArranged:
		if len(ev.Items) == 0 {
			return
		}
		r.stack.Push(&Arrange{
			Canvas: r.canvas, Items: ev.Items,
			FromPos: ev.FromPos, ToPos: ev.ToPos,
			FromScale: ev.FromScale, ToScale: ev.ToScale,
			FromZ: ev.FromZ, ToZ: ev.ToZ, Flipped: ev.Flipped,
		})
	}
}
