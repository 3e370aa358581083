/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/imageio"
	applog "gorefcanvas/internal/log"
)

// ExportSelection writes the original image bytes of items into dir, each named
// after the base name of its source. Name clashes get a numeric suffix. A
// failing item does not stop the others; all failures are returned joined.
func ExportSelection(items []*canvas.Item, dir string) ([]string, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "selection").With(slog.String("dir", dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	used := map[string]bool{}
	var written []string
	var errs []error
	for _, it := range items {
		name := uniqueName(dir, exportName(it), used)
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, it.Image, 0o644); err != nil {
			l.Warn("failed to save", slog.String("file", dst), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", dst, err))
			continue
		}
		written = append(written, dst)
	}
	l.Info("selection exported", slog.Int("files", len(written)), slog.Int("failed", len(errs)))
	return written, errors.Join(errs...)
}

func exportName(it *canvas.Item) string {
	p := it.Path
	if u, err := url.Parse(p); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		p = path.Base(u.Path)
	} else {
		p = filepath.Base(p)
	}
	if p == "" || p == "." || p == "/" || p == string(filepath.Separator) {
		p = fmt.Sprintf("image-%d", it.ID)
	}
	if filepath.Ext(p) == "" {
		if img, err := imageio.Decode(it.Image); err == nil {
			p += "." + img.Format
		}
	}
	return p
}

func uniqueName(dir, name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	cand := name
	for i := 1; ; i++ {
		if !used[cand] {
			if _, err := os.Stat(filepath.Join(dir, cand)); err != nil {
				used[cand] = true
				return cand
			}
		}
		cand = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}
