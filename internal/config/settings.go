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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings keys persisted by the application.
const (
	KeyWindowGeometry = "window_geometry"
	KeyProjectPath    = "project_path"
	KeyGrayscale      = "grayscale"
	KeyFilter         = "filter"
)

// Settings is a flat key/value store of opaque strings persisted as YAML.
// There is no schema versioning; unknown keys are kept as they are.
type Settings struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// SettingsPath returns the per-user settings file path.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// OpenSettings loads the store at path. A missing file yields an empty store.
func OpenSettings(path string) (*Settings, error) {
	s := &Settings{path: path, values: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *Settings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key in memory; call Save to persist.
func (s *Settings) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Bool returns key parsed as a boolean, or def when unset or malformed.
func (s *Settings) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetBool stores a boolean.
func (s *Settings) SetBool(key string, v bool) { s.Set(key, strconv.FormatBool(v)) }

// Keys returns the stored keys in sorted order.
func (s *Settings) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the store through a temp file and a rename.
func (s *Settings) Save() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.values)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
