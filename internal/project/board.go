/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
)

// UntitledPath replaces an empty source path on save, since an empty path
// marks a placeholder record.
const UntitledPath = "untitled"

// Snapshot captures the live items of c in insertion order. Tombstones are never
// included.
func Snapshot(c *canvas.Canvas, center geom.Point, zoom float64) Board {
	b := Board{Center: center, Zoom: zoom}
	for _, it := range c.Live() {
		path := it.Path
		if path == "" {
			path = UntitledPath
		}
		b.Items = append(b.Items, Record{
			Path:    path,
			Image:   it.Image,
			Flipped: it.Flipped,
			Pos:     it.Pos,
			Scale:   it.Scale,
			Z:       it.Z,
		})
	}
	return b
}

// Populate replaces the content of c with the records of b. Records whose image
// cannot be decoded keep zero dimensions and are returned so the caller can
// report them.
func Populate(c *canvas.Canvas, b Board) (undecodable []string) {
	c.Clear()
	for _, r := range b.Items {
		it := &canvas.Item{
			Path:    r.Path,
			Image:   r.Image,
			Pos:     r.Pos,
			Scale:   r.Scale,
			Z:       r.Z,
			Flipped: r.Flipped,
		}
		if img, err := imageio.Decode(r.Image); err == nil {
			it.Width, it.Height = img.Width, img.Height
		} else {
			undecodable = append(undecodable, r.Path)
		}
		c.Add(it)
	}
	return undecodable
}
