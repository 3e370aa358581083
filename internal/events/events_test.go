/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package events

import "testing"

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe(func(e Event) { got = append(got, "a:"+e.Kind()) })
	stop := b.Subscribe(func(e Event) { got = append(got, "b:"+e.Kind()) })
	b.Publish(ItemsFlipped{})
	stop()
	b.Publish(ItemsDeleted{})
	want := []string{"a:items_flipped", "b:items_flipped", "a:items_deleted"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	calls := 0
	var stop func()
	stop = b.Subscribe(func(Event) { calls++; stop() })
	b.Subscribe(func(Event) { calls++ })
	b.Publish(ItemsMoved{})
	b.Publish(ItemsMoved{})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(AcquisitionFailed{URL: "http://x"})
}
