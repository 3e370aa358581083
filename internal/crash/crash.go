/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a crash report and a last-chance
// autosave of the open board.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "gorefcanvas/internal/log"
	"gorefcanvas/internal/project"
	"gorefcanvas/internal/version"
)

// Autosaver is the session side of crash handling.
type Autosaver interface {
	// BoardPath returns the path of the open board file, or "" for an unsaved board.
	BoardPath() string
	// AutosaveCrash writes a snapshot next to the board without touching the
	// board file itself and returns its path.
	AutosaveCrash() (string, error)
}

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes a crash report and
// asks s (when not nil) for an autosave before exiting with code 2.
//
// Usage: defer crash.Recover(session)
func Recover(s Autosaver) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(s, r, stack)
		if err != nil {
			l.Error("crash report failed", slog.Any("err", err))
		}
		if s != nil {
			if path, err := s.AutosaveCrash(); err != nil {
				l.Error("autosave crash snapshot failed", slog.Any("err", err))
			} else {
				l.Info("autosave crash snapshot written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// reportDir is the backups directory of the open board, or the temp dir.
func reportDir(s Autosaver) string {
	if s != nil {
		if p := s.BoardPath(); p != "" {
			dir := filepath.Join(filepath.Dir(p), project.BackupsDirName)
			if err := os.MkdirAll(dir, 0o755); err == nil {
				return dir
			}
		}
	}
	return os.TempDir()
}

func writeReport(s Autosaver, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(s), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "GoRefCanvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil && s.BoardPath() != "" {
		_, _ = fmt.Fprintf(&buf, "Board: %s\n", s.BoardPath())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
