/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// View maps scene coordinates to view (widget pixel) coordinates with a uniform
// scale and a translation: view = scale*scene + offset. There is no rotation.
type View struct {
	scale  float64
	offset Point
}

// NewView returns the identity view.
func NewView() *View { return &View{scale: 1} }

// Zoom returns the current scale factor (the transform's m11).
func (v *View) Zoom() float64 { return v.scale }

// InverseZoom returns 1/Zoom.
func (v *View) InverseZoom() float64 { return 1 / v.scale }

// Offset returns the translation part in view pixels.
func (v *View) Offset() Point { return v.offset }

// MapToScene converts a view position to scene coordinates.
func (v *View) MapToScene(p Point) Point {
	return Scale(1/v.scale, Sub(p, v.offset))
}

// MapFromScene converts a scene position to view coordinates.
func (v *View) MapFromScene(p Point) Point {
	return Add(Scale(v.scale, p), v.offset)
}

// Translate shifts the view by d expressed in scene units, so a scene point p
// subsequently maps to where p+d mapped before.
func (v *View) Translate(d Point) {
	v.offset = Add(v.offset, Scale(v.scale, d))
}

// ScaleBy multiplies the zoom by f without moving the view origin.
func (v *View) ScaleBy(f float64) {
	if f <= 0 {
		return
	}
	v.scale *= f
}

// SetZoom replaces the zoom factor, keeping the view origin fixed.
func (v *View) SetZoom(z float64) {
	if z <= 0 {
		return
	}
	v.scale = z
}

// Scaled returns a copy of v whose output is magnified by k, as needed to
// render into a device with k physical pixels per view unit.
func (v *View) Scaled(k float64) *View {
	return &View{scale: v.scale * k, offset: Scale(k, v.offset)}
}

// Reset restores the identity transform.
func (v *View) Reset() {
	v.scale = 1
	v.offset = Point{}
}

// CenterOn translates the view so scene point p sits at the viewport center.
func (v *View) CenterOn(p Point, viewport Size) {
	c := Point{X: viewport.W / 2, Y: viewport.H / 2}
	v.offset = Sub(c, Scale(v.scale, p))
}

// Center returns the scene point at the viewport center.
func (v *View) Center(viewport Size) Point {
	return v.MapToScene(Point{X: viewport.W / 2, Y: viewport.H / 2})
}

// ScenePad is how far, in view pixels, the virtual scene is kept ahead of the
// viewport so panning never runs into a scene edge.
const ScenePad = 16000

// GrowSceneRect expands scene so it covers the viewport mapped into the scene
// and padded by pad view pixels on each side. The scene rect never shrinks.
func GrowSceneRect(scene Rect, v *View, viewport Size, pad float64) Rect {
	tl := v.MapToScene(Point{X: -pad, Y: -pad})
	br := v.MapToScene(Point{X: viewport.W + pad, Y: viewport.H + pad})
	want := RectFromPoints(tl, br)
	if scene.W == 0 && scene.H == 0 {
		return want
	}
	return scene.Union(want)
}
