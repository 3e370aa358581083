/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"path/filepath"
	"testing"

	"gorefcanvas/internal/config"
)

func TestWindowGeometry(t *testing.T) {
	if w, h := windowGeometry(nil); w != defaultWidth || h != defaultHeight {
		t.Fatalf("nil settings: got %dx%d", w, h)
	}
	st, err := config.OpenSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		stored string
		w, h   int
	}{
		{formatGeometry(1500, 900), 1500, 900},
		{"640x480", minWidth, minHeight},
		{"garbage", defaultWidth, defaultHeight},
	}
	for _, c := range cases {
		st.Set(config.KeyWindowGeometry, c.stored)
		if w, h := windowGeometry(st); w != c.w || h != c.h {
			t.Fatalf("%q: got %dx%d, want %dx%d", c.stored, w, h, c.w, c.h)
		}
	}
}
