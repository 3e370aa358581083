/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
)

// Button identifies a pointer button.
type Button uint8

const (
	ButtonPrimary Button = 1 << iota
	ButtonSecondary
	ButtonMiddle
)

// Key names the keys the engine reacts to. Any other key is ignored.
type Key string

const (
	KeySpace   Key = "Space"
	KeyControl Key = "Control"
)

// Cursor is the pointer affordance the frontend should show.
type Cursor int

const (
	CursorArrow Cursor = iota
	CursorOpenHand
	CursorClosedHand
	CursorSizeHorizontal
)

func (c Cursor) String() string {
	switch c {
	case CursorOpenHand:
		return "open-hand"
	case CursorClosedHand:
		return "closed-hand"
	case CursorSizeHorizontal:
		return "size-hor"
	default:
		return "arrow"
	}
}

// Event is one raw input or completion event. Positions are view pixels.
type Event interface{ input() }

// PointerDown is a button press.
type PointerDown struct {
	Pos    geom.Point
	Button Button
}

// PointerMove is a pointer motion; held buttons are tracked by the engine.
type PointerMove struct{ Pos geom.Point }

// PointerUp is a button release.
type PointerUp struct {
	Pos    geom.Point
	Button Button
}

// KeyDown is a key press; Repeat marks auto-repeat.
type KeyDown struct {
	Key    Key
	Repeat bool
}

// KeyUp is a key release; Repeat marks auto-repeat.
type KeyUp struct {
	Key    Key
	Repeat bool
}

// Wheel is a vertical wheel step; positive DeltaY zooms in.
type Wheel struct {
	Pos    geom.Point
	DeltaY float64
}

// Drop delivers dropped payloads: local paths, file:// or http(s) URLs.
type Drop struct {
	Pos      geom.Point
	Payloads []string
}

// FetchCompleted re-injects the result of a remote image acquisition.
// At is the scene point of the originating drop.
type FetchCompleted struct {
	URL   string
	At    geom.Point
	Image imageio.Image
	Err   error
}

// ViewportResized reports the size of the widget in pixels.
type ViewportResized struct{ Size geom.Size }

func (PointerDown) input()     {}
func (PointerMove) input()     {}
func (PointerUp) input()       {}
func (KeyDown) input()         {}
func (KeyUp) input()           {}
func (Wheel) input()           {}
func (Drop) input()            {}
func (FetchCompleted) input()  {}
func (ViewportResized) input() {}

// Acquirer fetches remote images out of band. Every request must eventually
// come back as a FetchCompleted handed to Engine.Handle on the event thread.
type Acquirer interface {
	Acquire(url string, at geom.Point)
}
