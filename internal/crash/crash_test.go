/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorefcanvas/internal/project"
)

type fakeSession struct {
	path    string
	saved   int
	saveErr error
}

func (f *fakeSession) BoardPath() string { return f.path }
func (f *fakeSession) AutosaveCrash() (string, error) {
	f.saved++
	return f.path + ".crash", f.saveErr
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "GoRefCanvas Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInBoardBackups(t *testing.T) {
	root := t.TempDir()
	fs := &fakeSession{path: filepath.Join(root, "board"+project.Ext)}
	path, err := writeReport(fs, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, project.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Board: "+fs.path) {
		t.Fatalf("board path missing from report")
	}
}

func TestRecoverAutosavesAndExits(t *testing.T) {
	oldStderr := os.Stderr
	devnull, _ := os.Open(os.DevNull)
	os.Stderr = devnull
	defer func() {
		os.Stderr = oldStderr
		_ = devnull.Close()
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	fs := &fakeSession{path: filepath.Join(t.TempDir(), "board"+project.Ext), saveErr: errors.New("disk full")}
	func() {
		defer Recover(fs)
		panic("boom")
	}()
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if fs.saved != 1 {
		t.Fatalf("expected one autosave attempt, got %d", fs.saved)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code := -1
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if code != -1 {
		t.Fatalf("exit called without panic")
	}
}
