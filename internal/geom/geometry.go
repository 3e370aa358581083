/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the scene geometry shared by the canvas, the packer and the
// interaction engine: points, axis-aligned rectangles and the view transform.
// All values are float64 scene units unless a name says otherwise.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D scene or view position.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func Add(p, q Point) Point { return r2.Add(p, q) }

// Sub returns p-q.
func Sub(p, q Point) Point { return r2.Sub(p, q) }

// Scale returns f*p.
func Scale(f float64, p Point) Point { return r2.Scale(f, p) }

// Manhattan returns |p.X| + |p.Y|.
func Manhattan(p Point) float64 { return math.Abs(p.X) + math.Abs(p.Y) }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// IsEmpty reports whether s has no area.
func (s Size) IsEmpty() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle defined by its min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// RectFromPoints returns the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Min() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Max() Point { return Point{X: r.X + r.W, Y: r.Y + r.H} }

func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Intersects reports whether r and o share a non-empty area. Touching edges do not count.
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Translate returns r moved by d.
func (r Rect) Translate(d Point) Rect { return Rect{X: r.X + d.X, Y: r.Y + d.Y, W: r.W, H: r.H} }

// UnionAll folds Union over rs. The zero Rect is returned for an empty slice.
func UnionAll(rs []Rect) Rect {
	var b Rect
	for i, r := range rs {
		if i == 0 {
			b = r
			continue
		}
		b = b.Union(r)
	}
	return b
}
