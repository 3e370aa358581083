/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version exposes build information. Version can be overridden at link time:
//
//	go build -ldflags "-X gorefcanvas/internal/version.Version=1.2.3"
package version

import "runtime/debug"

// Version is the semantic version of the build.
var Version = "0.1.0-dev"

// Commit is the VCS revision, filled from build info when available.
var Commit = ""

// String returns the version with an optional short commit suffix.
func String() string {
	c := Commit
	if c == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
					break
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	if c == "" {
		return Version
	}
	return Version + "+" + c
}
