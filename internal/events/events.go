/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package events carries domain events from the interaction engine to its
// subscribers (undo recorder, session bookkeeping). Delivery is synchronous on
// the publishing goroutine, in subscription order.
package events

import (
	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

// Event is any value published on a Bus.
type Event interface{ Kind() string }

// ItemsMoved reports a finished drag. From and To are parallel to Items.
type ItemsMoved struct {
	Items    []*canvas.Item
	From, To []geom.Point
}

// ItemsDeleted reports a soft delete that has already been applied.
type ItemsDeleted struct{ Items []*canvas.Item }

// ItemsFlipped reports a horizontal flip toggle that has already been applied.
type ItemsFlipped struct{ Items []*canvas.Item }

// ItemsResized reports a finished group resize.
type ItemsResized struct {
	Items              []*canvas.Item
	FromPos, ToPos     []geom.Point
	FromScale, ToScale []float64
}

// ItemsArranged reports a layout applied in one step: placement, stacking
// order and flip state of Items changed together. Flipped lists the items whose
// flip state was toggled.
type ItemsArranged struct {
	Items              []*canvas.Item
	FromPos, ToPos     []geom.Point
	FromScale, ToScale []float64
	FromZ, ToZ         []float64
	Flipped            []*canvas.Item
}

// ItemsAdded reports new items from a drop, an import or a completed fetch.
type ItemsAdded struct {
	Items  []*canvas.Item
	Source string
}

// AcquisitionFailed reports a remote image that could not be fetched or decoded.
type AcquisitionFailed struct {
	URL string
	Err error
}

func (ItemsMoved) Kind() string        { return "items_moved" }
func (ItemsDeleted) Kind() string      { return "items_deleted" }
func (ItemsFlipped) Kind() string      { return "items_flipped" }
func (ItemsResized) Kind() string      { return "items_resized" }
func (ItemsArranged) Kind() string     { return "items_arranged" }
func (ItemsAdded) Kind() string        { return "items_added" }
func (AcquisitionFailed) Kind() string { return "acquisition_failed" }

// Handler receives published events.
type Handler func(Event)

// Bus is a synchronous publish/subscribe dispatcher. It is owned by the event
// thread and is not safe for concurrent use.
type Bus struct {
	next uint64
	subs []subscription
}

type subscription struct {
	id uint64
	h  Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers h and returns a function that removes it again.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, h: h})
	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	subs := b.subs
	for _, s := range subs {
		s.h(e)
	}
}
