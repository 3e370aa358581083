/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(EnvConfigDir, t.TempDir())
	toks := memTokens{}
	t.Cleanup(SetTokenStore(toks))
	return toks
}

func TestEnvOverridesUndoDepth(t *testing.T) {
	isolate(t)
	t.Setenv(EnvUndoDepth, "7")
	t.Setenv(EnvZoomFactor, "0.5") // ignored: must zoom in
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.General.UndoDepth != 7 {
		t.Fatalf("UndoDepth = %d, want 7", cfg.General.UndoDepth)
	}
	if cfg.General.ZoomFactor != 1.2 {
		t.Fatalf("ZoomFactor = %v, want default 1.2", cfg.General.ZoomFactor)
	}
	if env, ok := EnvOverrideFor("general.undo_depth"); !ok || env != EnvUndoDepth {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Project.Backups = 9
	cfg.General.Grayscale = true
	cfg.Fetch.TimeoutMs = 1500
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Project.Backups != 9 || !got.General.Grayscale || got.Fetch.Timeout() != 1500*time.Millisecond {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if tok != "s3cret" || FetchToken() != "s3cret" {
		t.Fatalf("token not restored: %q", tok)
	}
	if err := ClearFetchToken(); err != nil || FetchToken() != "" {
		t.Fatalf("ClearFetchToken: %v", err)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	isolate(t)
	p, _ := ConfigPath()
	if err := os.WriteFile(p, []byte("general: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/grc.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/grc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/grc.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/grc.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSettingsPersist(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s, err := OpenSettings(p)
	if err != nil {
		t.Fatalf("open missing: %v", err)
	}
	if s.Bool(KeyGrayscale, true) != true {
		t.Fatalf("missing bool should use the default")
	}
	s.SetBool(KeyGrayscale, false)
	s.Set(KeyProjectPath, "/boards/a.riv")
	s.Set(KeyWindowGeometry, "AdnQywADAAAAAAB")
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	s2, err := OpenSettings(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, _ := s2.Get(KeyProjectPath); v != "/boards/a.riv" {
		t.Fatalf("project path = %q", v)
	}
	if s2.Bool(KeyGrayscale, true) {
		t.Fatalf("grayscale should be false")
	}
	if keys := s2.Keys(); len(keys) != 3 || keys[0] != KeyGrayscale {
		t.Fatalf("keys = %v", keys)
	}
	s2.Set(KeyFilter, "maybe")
	if s2.Bool(KeyFilter, true) != true {
		t.Fatalf("malformed bool should use the default")
	}
}
