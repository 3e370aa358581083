/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/geom"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a multi-format export of one board.
//
// Outputs are named <Name>.<ext> under OutDir/<preset>/.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: png, pdf, layout; empty means preset defaults
	OutDir  string
	Name    string
	// Width and Height override the preset raster size when > 0.
	Width, Height int
	Bilinear      bool
	Grayscale     bool
	// Center and Zoom are recorded in the layout manifest.
	Center geom.Point
	Zoom   float64
}

// BatchExport runs the exports of the preset and returns the written files.
func BatchExport(c *canvas.Canvas, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	name := opt.Name
	if name == "" {
		name = "board"
	}
	base := opt.OutDir
	if opt.Preset != "" {
		base = filepath.Join(base, string(opt.Preset))
	}
	w, h := presetSize(opt.Preset)
	if opt.Width > 0 && opt.Height > 0 {
		w, h = opt.Width, opt.Height
	}
	zoom := opt.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "png":
			out := filepath.Join(base, name+".png")
			ro := RenderOptions{Width: w, Height: h, Bilinear: opt.Bilinear, Grayscale: opt.Grayscale}
			if err := RenderPNG(c, out, ro); err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
			written = append(written, out)
		case "pdf":
			out := filepath.Join(base, name+".pdf")
			if err := ExportPDF(c, out, PDFOptions{Margin: 36, Title: name}); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "layout":
			out := filepath.Join(base, name+".layout.json")
			if err := WriteLayout(out, BuildLayout(c, opt.Center, zoom)); err != nil {
				return written, fmt.Errorf("layout: %w", err)
			}
			written = append(written, out)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "layout"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetSize(p PresetName) (int, int) {
	switch p {
	case PresetPrint:
		return 4096, 4096
	default:
		return 1920, 1080
	}
}
