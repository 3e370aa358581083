/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

// LayoutVersion is the manifest format version.
const LayoutVersion = 1

//go:embed layout.schema.json
var layoutSchema []byte

// ErrInvalidLayout is returned when a manifest does not conform to the schema.
var ErrInvalidLayout = errors.New("invalid layout manifest")

// Layout is the arrangement of a board without image bytes.
type Layout struct {
	Version int          `json:"version"`
	View    LayoutView   `json:"view"`
	Items   []LayoutItem `json:"items"`
}

type LayoutView struct {
	Center LayoutPoint `json:"center"`
	Zoom   float64     `json:"zoom"`
}

type LayoutPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type LayoutItem struct {
	Path    string      `json:"path"`
	Pos     LayoutPoint `json:"pos"`
	Scale   float64     `json:"scale"`
	Z       float64     `json:"z"`
	Flipped bool        `json:"flipped,omitempty"`
	Width   int         `json:"width,omitempty"`
	Height  int         `json:"height,omitempty"`
}

// BuildLayout captures the live items of c in insertion order.
func BuildLayout(c *canvas.Canvas, center geom.Point, zoom float64) Layout {
	lay := Layout{
		Version: LayoutVersion,
		View:    LayoutView{Center: LayoutPoint{X: center.X, Y: center.Y}, Zoom: zoom},
		Items:   []LayoutItem{},
	}
	for _, it := range c.Live() {
		path := it.Path
		if path == "" {
			path = fmt.Sprintf("item-%d", it.ID)
		}
		lay.Items = append(lay.Items, LayoutItem{
			Path:    path,
			Pos:     LayoutPoint{X: it.Pos.X, Y: it.Pos.Y},
			Scale:   it.Scale,
			Z:       it.Z,
			Flipped: it.Flipped,
			Width:   it.Width,
			Height:  it.Height,
		})
	}
	return lay
}

// ValidateLayout checks data against the embedded manifest schema.
func ValidateLayout(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(layoutSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(msgs, "; "))
	}
	return nil
}

// WriteLayout writes lay as indented JSON after validating it.
func WriteLayout(path string, lay Layout) error {
	data, err := json.MarshalIndent(lay, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	if err := ValidateLayout(data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadLayout reads and validates a manifest.
func ReadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	if err := ValidateLayout(data); err != nil {
		return Layout{}, err
	}
	var lay Layout
	if err := json.Unmarshal(data, &lay); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	return lay, nil
}

// LayoutChange records what ApplyLayout did so it can be undone.
type LayoutChange struct {
	Items              []*canvas.Item
	FromPos, ToPos     []geom.Point
	FromScale, ToScale []float64
	FromZ, ToZ         []float64
	// Flipped lists the items whose flip state was toggled.
	Flipped []*canvas.Item
}

// ApplyLayout moves the live items of c onto the placements of lay, matching by
// path in order: the n-th item with a given path takes the n-th entry with that
// path. Position, scale, z and flip are applied.
func ApplyLayout(c *canvas.Canvas, lay Layout) LayoutChange {
	queue := map[string][]LayoutItem{}
	for _, li := range lay.Items {
		queue[li.Path] = append(queue[li.Path], li)
	}
	var ch LayoutChange
	for _, it := range c.Live() {
		q := queue[it.Path]
		if len(q) == 0 {
			continue
		}
		li := q[0]
		queue[it.Path] = q[1:]
		ch.Items = append(ch.Items, it)
		ch.FromPos = append(ch.FromPos, it.Pos)
		ch.FromScale = append(ch.FromScale, it.Scale)
		ch.ToPos = append(ch.ToPos, geom.Pt(li.Pos.X, li.Pos.Y))
		ch.ToScale = append(ch.ToScale, li.Scale)
		ch.FromZ = append(ch.FromZ, it.Z)
		ch.ToZ = append(ch.ToZ, li.Z)
		it.Z = li.Z
		if li.Flipped != it.Flipped {
			ch.Flipped = append(ch.Flipped, it)
		}
		c.Place(it, geom.Pt(li.Pos.X, li.Pos.Y), li.Scale)
	}
	c.ToggleFlip(ch.Flipped)
	return ch
}
