/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gorefcanvas/internal/log"
	"gorefcanvas/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// Ext is the file extension of a board database.
	Ext = ".rivdb"

	// schemaVersion tracks the board schema. Bump it and add a migration step
	// for every breaking change.
	schemaVersion = 2
)

// Store is an open board database.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Open creates or opens the board database at path and brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("board database ready")
	return &Store{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// SchemaVersion reads the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS view (
			id    INTEGER PRIMARY KEY,
			x     INTEGER,
			y     INTEGER,
			scale REAL
		);`,
		`INSERT OR IGNORE INTO view VALUES (0, 0, 0, 1.0);`,
		`CREATE TABLE IF NOT EXISTS images (
			id       INTEGER PRIMARY KEY,
			path     TEXT,
			type     TEXT,
			ctime    REAL,
			mtime    REAL,
			x        INTEGER,
			y        INTEGER,
			z        REAL,
			rotation REAL,
			scale    REAL,
			flip     BOOL,
			image    BLOB
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		return fmt.Errorf("board database schema %d is newer than supported %d", cur, schemaVersion)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// paint order is read back sorted by z
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_images_z ON images(z);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}
