/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration, the opaque key/value settings
// store and the fetch credential kept in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "gorefcanvas/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	UndoDepth  int     `yaml:"undo_depth"`
	ZoomFactor float64 `yaml:"zoom_factor"`
	// Grayscale and Bilinear are the defaults for fresh installs; the settings
	// store holds the values last toggled in the UI.
	Grayscale bool `yaml:"grayscale"`
	Bilinear  bool `yaml:"bilinear_filtering"`
}

type ProjectConfig struct {
	// Backups is how many previous versions of a board file are kept on save.
	Backups int `yaml:"backups"`
}

type FetchConfig struct {
	TimeoutMs int    `yaml:"timeout_ms"`
	MaxBytes  int64  `yaml:"max_bytes"`
	UserAgent string `yaml:"user_agent"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Project       ProjectConfig `yaml:"project"`
	Fetch         FetchConfig   `yaml:"fetch"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{UndoDepth: 50, ZoomFactor: 1.2, Grayscale: false, Bilinear: true},
		Project:       ProjectConfig{Backups: 3},
		Fetch:         FetchConfig{TimeoutMs: 30000, MaxBytes: 64 << 20, UserAgent: "gorefcanvas"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "GRC_CONFIG_DIR"
	EnvUndoDepth      = "GRC_UNDO_DEPTH"
	EnvZoomFactor     = "GRC_ZOOM_FACTOR"
	EnvBackups        = "GRC_BACKUPS"
	EnvFetchTimeoutMs = "GRC_FETCH_TIMEOUT_MS"
	EnvFetchMaxBytes  = "GRC_FETCH_MAX_BYTES"
	// EnvLogLevel Logging envs
	EnvLogLevel  = applog.EnvLevel
	EnvLogFormat = applog.EnvFormat
	EnvLogSource = applog.EnvSource
	EnvLogFile   = applog.EnvFile
)

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoRefCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoRefCanvas")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "gorefcanvas")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gorefcanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the fetch token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// mergeInto copies the fields set in the file config over the defaults.
// Booleans are copied as-is so user preferences persist.
func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.UndoDepth > 0 {
		dst.General.UndoDepth = src.General.UndoDepth
	}
	if src.General.ZoomFactor > 1 {
		dst.General.ZoomFactor = src.General.ZoomFactor
	}
	dst.General.Grayscale = src.General.Grayscale
	dst.General.Bilinear = src.General.Bilinear
	if src.Project.Backups != 0 {
		dst.Project.Backups = src.Project.Backups
	}
	if src.Fetch.TimeoutMs > 0 {
		dst.Fetch.TimeoutMs = src.Fetch.TimeoutMs
	}
	if src.Fetch.MaxBytes > 0 {
		dst.Fetch.MaxBytes = src.Fetch.MaxBytes
	}
	if strings.TrimSpace(src.Fetch.UserAgent) != "" {
		dst.Fetch.UserAgent = strings.TrimSpace(src.Fetch.UserAgent)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvUndoDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.General.UndoDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoomFactor)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 1 {
			cfg.General.ZoomFactor = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackups)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Project.Backups = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFetchTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFetchMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Fetch.MaxBytes = n
		}
	}
	// logging overrides
	lo := applog.FromEnv(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	cfg.Logging.Level, cfg.Logging.Format = lo.Level, lo.Format
	cfg.Logging.Source, cfg.Logging.File = lo.AddSource, lo.File
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.undo_depth":  EnvUndoDepth,
		"general.zoom_factor": EnvZoomFactor,
		"project.backups":     EnvBackups,
		"fetch.timeout_ms":    EnvFetchTimeoutMs,
		"fetch.max_bytes":     EnvFetchMaxBytes,
		"logging.level":       EnvLogLevel,
		"logging.format":      EnvLogFormat,
		"logging.source":      EnvLogSource,
		"logging.file":        EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Timeout returns the fetch timeout, falling back to the default.
func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutMs <= 0 {
		return time.Duration(Defaults().Fetch.TimeoutMs) * time.Millisecond
	}
	return time.Duration(f.TimeoutMs) * time.Millisecond
}
