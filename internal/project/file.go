/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	applog "gorefcanvas/internal/log"
)

const (
	// Ext is the board file extension.
	Ext            = ".riv"
	BackupsDirName = "backups"
	DefaultBackups = 3
)

// SaveOptions tunes Save.
type SaveOptions struct {
	// Backups is how many timestamped copies of the previous file to keep.
	// Zero disables backups.
	Backups  int
	Progress Progress
}

// Save writes b to path. The previous file, if any, is copied to
// backups/<name>.<stamp>.bak next to it first. The new content goes to a
// temp file in the same directory that is renamed over path, so a failed save
// leaves the previous file intact.
func Save(ctx context.Context, path string, b Board, opts SaveOptions) error {
	if strings.TrimSpace(path) == "" {
		return &FileError{Op: "save", Path: path, Err: errors.New("empty path")}
	}
	lg := applog.WithComponent("project").With(slog.String("path", path))
	var buf bytes.Buffer
	if err := Encode(ctx, &buf, b, opts.Progress); err != nil {
		return fmt.Errorf("encode board: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Op: "save", Path: path, Err: err}
	}
	if opts.Backups > 0 {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := backup(path, opts.Backups); err != nil {
				return &FileError{Op: "backup", Path: path, Err: err}
			}
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, buf.Bytes()); err != nil {
		_ = os.Remove(temp)
		return &FileError{Op: "write", Path: path, Err: err}
	}
	if err := replaceFile(temp, path); err != nil {
		_ = os.Remove(temp)
		return &FileError{Op: "replace", Path: path, Err: err}
	}
	lg.Info("board saved", slog.Int("items", len(b.Items)), slog.Int("bytes", buf.Len()))
	return nil
}

// Load reads the board at path. Nothing outside the returned values is touched,
// so callers can keep their current state on error.
func Load(ctx context.Context, path string, progress Progress) (Board, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return Board{}, LoadReport{}, &FileError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	b, rep, err := Decode(ctx, f, progress)
	if err != nil {
		var ve *VersionError
		if errors.As(err, &ve) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Board{}, rep, err
		}
		return Board{}, rep, &FileError{Op: "read", Path: path, Err: err}
	}
	lg := applog.WithComponent("project")
	lg.Info("board loaded", slog.String("path", path), slog.Int("items", rep.Loaded), slog.Int("skipped", rep.Skipped))
	return b, rep, nil
}

// Backups lists the backup files of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// timestamp in the name sorts lexicographically
	sort.Strings(out)
	return out, nil
}

// LoadLatestBackup loads the newest backup of path.
func LoadLatestBackup(ctx context.Context, path string) (Board, LoadReport, error) {
	list, err := Backups(path)
	if err != nil {
		return Board{}, LoadReport{}, &FileError{Op: "list backups", Path: path, Err: err}
	}
	if len(list) == 0 {
		return Board{}, LoadReport{}, &FileError{Op: "list backups", Path: path, Err: os.ErrNotExist}
	}
	return Load(ctx, list[len(list)-1], nil)
}

func backup(path string, keep int) error {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102-150405.000")
	dst := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := copyFile(path, dst); err != nil {
		return err
	}
	list, err := Backups(path)
	if err != nil {
		return err
	}
	for len(list) > keep {
		if err := os.Remove(list[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		list = list[1:]
	}
	return nil
}

// replaceFile renames temp over path. Where the platform refuses to rename onto
// an existing file, the old file is parked next to it and put back if the
// second rename fails, so path is never left missing.
func replaceFile(temp, path string) error {
	err := os.Rename(temp, path)
	if err == nil || runtime.GOOS != "windows" {
		return err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return err
	}
	aside := temp + ".old"
	if err := os.Rename(path, aside); err != nil {
		return err
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Rename(aside, path)
		return err
	}
	_ = os.Remove(aside)
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
