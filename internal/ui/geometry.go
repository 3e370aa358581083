/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"

	"gorefcanvas/internal/config"
)

const (
	defaultWidth, defaultHeight = 1200, 800
	minWidth, minHeight         = 800, 600
)

// windowGeometry returns the remembered window size, falling back to the
// default for missing or malformed values and never going below the minimum.
func windowGeometry(st *config.Settings) (w, h int) {
	w, h = defaultWidth, defaultHeight
	if st != nil {
		if v, ok := st.Get(config.KeyWindowGeometry); ok {
			var gw, gh int
			if n, err := fmt.Sscanf(v, "%dx%d", &gw, &gh); err == nil && n == 2 {
				w, h = gw, gh
			}
		}
	}
	return max(w, minWidth), max(h, minHeight)
}

func formatGeometry(w, h int) string { return fmt.Sprintf("%dx%d", w, h) }
