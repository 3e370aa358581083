/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"log/slog"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/events"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	"gorefcanvas/internal/pack"
)

func (e *Engine) drop(ev Drop) {
	at := e.view.MapToScene(ev.Pos)
	var local []string
	for _, p := range ev.Payloads {
		kind, target := imageio.Classify(p)
		switch kind {
		case imageio.LocalImage:
			local = append(local, target)
		case imageio.RemoteURL:
			if e.acquirer == nil {
				e.log.Warn("no acquirer for remote drop", slog.String("url", target))
				continue
			}
			e.log.Info("fetching", slog.String("url", target))
			e.acquirer.Acquire(target, at)
		default:
			e.log.Debug("ignored drop payload", slog.String("payload", p))
		}
	}
	if len(local) > 0 {
		e.ImportFiles(local, at)
	}
}

// ImportFiles loads paths as new items, selects exactly those items and packs
// them around the scene point at. Files that fail to load are skipped.
func (e *Engine) ImportFiles(paths []string, at geom.Point) []*canvas.Item {
	e.canvas.ClearSelection()
	var added []*canvas.Item
	for _, p := range paths {
		img, err := e.loader.Load(p)
		if err != nil {
			e.log.Warn("import skipped", slog.String("path", p), slog.Any("err", err))
			continue
		}
		it := e.canvas.NewItem(p, img.Data, img.Width, img.Height, at)
		it.Selected = true
		added = append(added, it)
	}
	if len(added) == 0 {
		return nil
	}
	pack.Items(e.canvas, added, at)
	e.log.Info("imported", slog.Int("count", len(added)))
	e.bus.Publish(events.ItemsAdded{Items: added, Source: "import"})
	e.changed()
	return added
}

func (e *Engine) fetchCompleted(ev FetchCompleted) {
	if ev.Err != nil {
		e.log.Warn("acquisition failed", slog.String("url", ev.URL), slog.Any("err", ev.Err))
		e.bus.Publish(events.AcquisitionFailed{URL: ev.URL, Err: ev.Err})
		return
	}
	it := e.canvas.NewItem(ev.URL, ev.Image.Data, ev.Image.Width, ev.Image.Height, ev.At)
	e.bus.Publish(events.ItemsAdded{Items: []*canvas.Item{it}, Source: "fetch"})
}

// DeleteSelection soft-deletes the selected items.
func (e *Engine) DeleteSelection() {
	items := e.canvas.Selected()
	if len(items) == 0 {
		return
	}
	e.canvas.Tombstone(items)
	e.bus.Publish(events.ItemsDeleted{Items: items})
	e.changed()
}

// FlipSelection mirrors the selected items horizontally.
func (e *Engine) FlipSelection() {
	items := e.canvas.Selected()
	if len(items) == 0 {
		return
	}
	e.canvas.ToggleFlip(items)
	e.bus.Publish(events.ItemsFlipped{Items: items})
	e.changed()
}

// SelectAll selects every visible item.
func (e *Engine) SelectAll() {
	e.canvas.SelectAll()
	e.changed()
}

// PackSelection packs the selected items around the scene point at and
// publishes the result as a move.
func (e *Engine) PackSelection(at geom.Point) {
	items := e.canvas.Selected()
	if len(items) == 0 {
		return
	}
	from := pack.Items(e.canvas, items, at)
	to := make([]geom.Point, len(items))
	for i, it := range items {
		to[i] = it.Pos
	}
	e.bus.Publish(events.ItemsMoved{Items: items, From: from, To: to})
	e.changed()
}

// ResetView restores the identity zoom and centers the scene origin.
func (e *Engine) ResetView() {
	e.view.Reset()
	e.centerOn(geom.Pt(0, 0))
	e.growScene()
	e.changed()
}

// SetView replaces zoom and center, as done after loading a board.
func (e *Engine) SetView(zoom float64, center geom.Point) {
	e.view.Reset()
	e.view.SetZoom(zoom)
	e.centerOn(center)
	e.growScene()
	e.canvas.Recompute()
	e.changed()
}

// centerOn centres the view on p now and, while the viewport is still empty,
// again once the first real size is reported.
func (e *Engine) centerOn(p geom.Point) {
	e.view.CenterOn(p, e.viewport)
	e.pendingCenter = nil
	if e.viewport.IsEmpty() {
		e.pendingCenter = &p
	}
}

// Reset returns the engine to Idle and drops every in-flight gesture without
// publishing it, as needed when the board is replaced.
func (e *Engine) Reset() {
	e.drag, e.band, e.resize = nil, nil, nil
	e.down = 0
	e.state = Idle
	e.cursor = CursorArrow
	e.rubberBand = true
	e.sceneRect = geom.Rect{}
	e.pendingCenter = nil
	e.growScene()
}
