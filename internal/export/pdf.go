/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/draw"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/imageio"
	applog "gorefcanvas/internal/log"
)

// PDFOptions controls PDF export. Units are points; one scene unit is one point.
type PDFOptions struct {
	// Margin surrounds the board bounds on every side.
	Margin float64
	Title  string
}

// ExportPDF writes the live items of c onto a single page sized to the board
// bounds. Items are placed back to front with their scale and flip applied.
func ExportPDF(c *canvas.Canvas, outPath string, opt PDFOptions) error {
	items := c.PaintOrder()
	if len(items) == 0 {
		return ErrEmptyCanvas
	}
	l := applog.WithOperation(applog.WithComponent("export"), "pdf").With(slog.String("path", outPath))
	b := c.Bounds()
	m := opt.Margin
	if m < 0 {
		m = 0
	}
	pageW, pageH := b.W+2*m, b.H+2*m

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetAuthor("GoRefCanvas", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	for i, it := range items {
		data, err := pdfImage(it)
		if err != nil {
			l.Warn("skip undecodable item", slog.String("item", it.Path), slog.Any("err", err))
			continue
		}
		name := fmt.Sprintf("item-%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		x := it.Pos.X - b.X + m
		y := it.Pos.Y - b.Y + m
		pdf.ImageOptions(name, x, y, it.EffectiveWidth(), it.EffectiveHeight(), false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("pdf written", slog.Int("items", len(items)))
	return nil
}

// pdfImage re-encodes the item as PNG, mirrored when flipped, so every decodable
// format can be embedded.
func pdfImage(it *canvas.Item) ([]byte, error) {
	src, err := imageio.DecodePixels(it.Image)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	if it.Flipped {
		mirror(rgba)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mirror(img *image.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			a, b := img.NRGBAAt(x, y), img.NRGBAAt(w-1-x, y)
			img.SetNRGBA(x, y, b)
			img.SetNRGBA(w-1-x, y, a)
		}
	}
}
