/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"errors"
	"fmt"
)

var (
	// ErrFileOpen marks I/O failures while opening, reading or writing a board file.
	ErrFileOpen = errors.New("board file i/o failed")
	// ErrFormatVersion marks a board file written in an unsupported format version.
	ErrFormatVersion = errors.New("unsupported board format version")
	// ErrCorrupt marks a stream that ends early or carries impossible values.
	ErrCorrupt = errors.New("corrupt board data")
)

// FileError describes a failed file operation. It matches ErrFileOpen.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }
func (e *FileError) Is(target error) bool {
	return target == ErrFileOpen
}

// VersionError reports the version found in a rejected header. It matches ErrFormatVersion.
type VersionError struct {
	Got, Want int32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("board format version %d, want %d", e.Got, e.Want)
}
func (e *VersionError) Is(target error) bool { return target == ErrFormatVersion }
