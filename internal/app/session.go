/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app wires one editing session: canvas, view, interaction engine,
// undo history, remote fetches, persistence and exports.
//
// A Session is driven from a single event thread. Fetch completions arrive on a
// channel and are applied on that thread by Pump or WaitFetches.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/config"
	"gorefcanvas/internal/events"
	"gorefcanvas/internal/export"
	"gorefcanvas/internal/fetch"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	"gorefcanvas/internal/interaction"
	applog "gorefcanvas/internal/log"
	"gorefcanvas/internal/project"
	"gorefcanvas/internal/storage"
	"gorefcanvas/internal/undo"
)

// ErrNoPath is returned by Save when the board has never been saved.
var ErrNoPath = errors.New("board has no file path")

// Options configures a Session. Zero values fall back to config.Defaults.
type Options struct {
	Config config.AppConfig
	// Token is the optional bearer token for remote fetches.
	Token    string
	Settings *config.Settings
	Loader   imageio.Loader
	// HTTPClient replaces the fetch client transport, mainly for tests.
	HTTPClient *http.Client
	// ReadClipboard replaces the system clipboard, mainly for tests.
	ReadClipboard func() (string, error)
}

// Session is one open board.
type Session struct {
	cfg      config.AppConfig
	settings *config.Settings
	canvas   *canvas.Canvas
	view     *geom.View
	bus      *events.Bus
	engine   *interaction.Engine
	undo     *undo.Stack
	recorder *undo.Recorder
	fetch    *fetch.Client
	clip     func() (string, error)

	path    string
	dirty   bool
	pending int
	onFail  func(url string, err error)
	log     *slog.Logger
	unsub   func()
}

// New returns a session with an empty, unsaved board.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg.ConfigVersion == 0 {
		cfg = config.Defaults()
	}
	s := &Session{
		cfg:      cfg,
		settings: opts.Settings,
		canvas:   canvas.New(),
		view:     geom.NewView(),
		bus:      events.NewBus(),
		clip:     opts.ReadClipboard,
		log:      applog.WithComponent("session"),
	}
	if s.clip == nil {
		s.clip = clipboard.ReadAll
	}
	s.undo = undo.NewStack(undo.Config{Limit: cfg.General.UndoDepth})
	s.recorder = undo.NewRecorder(s.undo, s.canvas, s.bus)
	s.fetch = fetch.NewClient(fetch.Options{
		Timeout:    cfg.Fetch.Timeout(),
		MaxBytes:   cfg.Fetch.MaxBytes,
		UserAgent:  cfg.Fetch.UserAgent,
		Token:      opts.Token,
		HTTPClient: opts.HTTPClient,
	})
	ecfg := interaction.DefaultConfig()
	if cfg.General.ZoomFactor > 1 {
		ecfg.ZoomFactor = cfg.General.ZoomFactor
	}
	eopts := []interaction.Option{interaction.WithConfig(ecfg), interaction.WithAcquirer(tracker{s})}
	if opts.Loader != nil {
		eopts = append(eopts, interaction.WithLoader(opts.Loader))
	}
	s.engine = interaction.New(s.canvas, s.view, s.bus, eopts...)
	s.unsub = s.bus.Subscribe(s.onEvent)
	return s
}

// tracker counts outstanding fetches so WaitFetches knows when to stop.
type tracker struct{ s *Session }

func (t tracker) Acquire(url string, at geom.Point) {
	t.s.pending++
	t.s.fetch.Acquire(url, at)
}

func (s *Session) onEvent(e events.Event) {
	switch ev := e.(type) {
	case events.ItemsAdded:
		s.dirty = true
	case events.AcquisitionFailed:
		if s.onFail != nil {
			s.onFail(ev.URL, ev.Err)
		}
	}
}

func (s *Session) Canvas() *canvas.Canvas      { return s.canvas }
func (s *Session) View() *geom.View            { return s.view }
func (s *Session) Engine() *interaction.Engine { return s.engine }
func (s *Session) Undo() *undo.Stack           { return s.undo }
func (s *Session) Bus() *events.Bus            { return s.bus }
func (s *Session) Config() config.AppConfig    { return s.cfg }
func (s *Session) Settings() *config.Settings  { return s.settings }

// OnAcquisitionFailed registers a callback for failed remote fetches.
func (s *Session) OnAcquisitionFailed(fn func(string, error)) { s.onFail = fn }

// BoardPath returns the file the board was loaded from or last saved to.
func (s *Session) BoardPath() string { return s.path }

// Modified reports unsaved changes: an undo position away from the saved one,
// or items added since the last save.
func (s *Session) Modified() bool { return s.dirty || !s.undo.IsClean() }

// Title is the window title: the board file name, or "untitled", with a marker
// when modified.
func (s *Session) Title() string {
	name := "untitled"
	if s.path != "" {
		name = filepath.Base(s.path)
	}
	if s.Modified() {
		return name + " *"
	}
	return name
}

// Open replaces the board with the one stored at path. On any error the
// current board is left untouched.
func (s *Session) Open(ctx context.Context, path string) (project.LoadReport, error) {
	ctx = applog.ContextWithBoard(ctx, path)
	b, rep, err := loadBoard(ctx, path)
	if err != nil {
		s.log.ErrorContext(ctx, "open failed", slog.Any("err", err))
		return rep, err
	}
	s.engine.Reset()
	if bad := project.Populate(s.canvas, b); len(bad) > 0 {
		s.log.WarnContext(ctx, "items with undecodable images", slog.Int("count", len(bad)))
	}
	s.undo.Clear()
	s.undo.SetClean()
	s.dirty = false
	s.path = path
	s.engine.SetView(b.Zoom, b.Center)
	s.remember()
	s.log.InfoContext(ctx, "board opened", slog.Int("items", rep.Loaded), slog.Int("skipped", rep.Skipped))
	return rep, nil
}

func loadBoard(ctx context.Context, path string) (project.Board, project.LoadReport, error) {
	if isDatabase(path) {
		if _, err := os.Stat(path); err != nil {
			return project.Board{}, project.LoadReport{}, &project.FileError{Op: "open", Path: path, Err: err}
		}
		st, err := storage.Open(ctx, path)
		if err != nil {
			return project.Board{}, project.LoadReport{}, &project.FileError{Op: "open", Path: path, Err: err}
		}
		defer st.Close()
		return st.LoadBoard(ctx, nil)
	}
	return project.Load(ctx, path, nil)
}

func isDatabase(path string) bool { return strings.EqualFold(filepath.Ext(path), storage.Ext) }

// Snapshot captures the current board with the view centre and zoom.
func (s *Session) Snapshot() project.Board {
	return project.Snapshot(s.canvas, s.view.Center(s.engine.Viewport()), s.view.Zoom())
}

// Save writes the board to its path. Tombstoned items are evicted afterwards;
// undo can still bring them back.
func (s *Session) Save(ctx context.Context) error {
	if s.path == "" {
		return ErrNoPath
	}
	ctx = applog.ContextWithBoard(ctx, s.path)
	if err := s.write(ctx, s.path, s.Snapshot(), s.cfg.Project.Backups); err != nil {
		s.log.ErrorContext(ctx, "save failed", slog.Any("err", err))
		return err
	}
	s.canvas.Purge()
	s.undo.SetClean()
	s.dirty = false
	s.remember()
	return nil
}

// SaveAs saves the board under a new path, which becomes the board path on success.
func (s *Session) SaveAs(ctx context.Context, path string) error {
	prev := s.path
	s.path = path
	if err := s.Save(ctx); err != nil {
		s.path = prev
		return err
	}
	return nil
}

func (s *Session) write(ctx context.Context, path string, b project.Board, backups int) error {
	if isDatabase(path) {
		st, err := storage.Open(ctx, path)
		if err != nil {
			return &project.FileError{Op: "open", Path: path, Err: err}
		}
		defer st.Close()
		return st.SaveBoard(ctx, b, nil)
	}
	return project.Save(ctx, path, b, project.SaveOptions{Backups: backups})
}

// NewProject saves a modified board that has a path, then starts an empty
// unsaved board. The new board counts as modified until first saved.
func (s *Session) NewProject(ctx context.Context) error {
	if s.path != "" && s.Modified() {
		if err := s.Save(ctx); err != nil {
			return err
		}
	}
	s.engine.Reset()
	s.canvas.Clear()
	s.undo.Clear()
	s.undo.ResetClean()
	s.dirty = false
	s.path = ""
	s.engine.ResetView()
	return nil
}

// AutosaveCrash writes the board to a side file without touching the board file.
func (s *Session) AutosaveCrash() (string, error) {
	stamp := time.Now().Format("20060102-150405")
	var path string
	if s.path != "" {
		dir := filepath.Join(filepath.Dir(s.path), project.BackupsDirName)
		path = filepath.Join(dir, fmt.Sprintf("%s.crash-%s%s", filepath.Base(s.path), stamp, project.Ext))
	} else {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("gorefcanvas-crash-%s%s", stamp, project.Ext))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := project.Save(ctx, path, s.Snapshot(), project.SaveOptions{}); err != nil {
		return "", err
	}
	return path, nil
}

// Import adds images at the scene point at: local image files are loaded and
// packed immediately, URLs are fetched in the background. Other payloads are
// ignored. It returns the items added synchronously.
func (s *Session) Import(payloads []string, at geom.Point) []*canvas.Item {
	var local []string
	for _, p := range payloads {
		switch kind, target := imageio.Classify(p); kind {
		case imageio.LocalImage:
			local = append(local, target)
		case imageio.RemoteURL:
			tracker{s}.Acquire(target, at)
		default:
			s.log.Debug("ignored import payload", slog.String("payload", p))
		}
	}
	if len(local) == 0 {
		return nil
	}
	return s.engine.ImportFiles(local, at)
}

// ImportFiles loads image files and packs them around origin.
func (s *Session) ImportFiles(paths []string, origin geom.Point) []*canvas.Item {
	return s.engine.ImportFiles(paths, origin)
}

// PasteClipboard treats the clipboard text, one payload per line, as a drop
// at the view position pos.
func (s *Session) PasteClipboard(pos geom.Point) error {
	text, err := s.clip()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	var payloads []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			payloads = append(payloads, line)
		}
	}
	if len(payloads) == 0 {
		return nil
	}
	s.engine.Handle(interaction.Drop{Pos: pos, Payloads: payloads})
	return nil
}

// Pump applies every fetch completion that is already queued and returns how
// many it applied. It never blocks.
func (s *Session) Pump() int {
	n := 0
	for {
		select {
		case r := <-s.fetch.Results():
			s.complete(r)
			n++
		default:
			return n
		}
	}
}

// WaitFetches blocks until every outstanding fetch has completed and been applied.
func (s *Session) WaitFetches(ctx context.Context) error {
	for s.pending > 0 {
		select {
		case r := <-s.fetch.Results():
			s.complete(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Session) complete(r fetch.Result) {
	if s.pending > 0 {
		s.pending--
	}
	s.engine.Handle(interaction.FetchCompleted{URL: r.URL, At: r.At, Image: r.Image, Err: r.Err})
}

// PackSelection packs the selected items around origin.
func (s *Session) PackSelection(origin geom.Point) { s.engine.PackSelection(origin) }

// ExportSelection writes the selected items' image bytes into dir.
func (s *Session) ExportSelection(dir string) ([]string, error) {
	return export.ExportSelection(s.canvas.Selected(), dir)
}

// Grayscale and Bilinear read the render toggles from the settings store,
// falling back to the configured defaults.
func (s *Session) Grayscale() bool { return s.toggle(config.KeyGrayscale, s.cfg.General.Grayscale) }
func (s *Session) Bilinear() bool  { return s.toggle(config.KeyFilter, s.cfg.General.Bilinear) }

func (s *Session) SetGrayscale(v bool) { s.setToggle(config.KeyGrayscale, v) }
func (s *Session) SetBilinear(v bool)  { s.setToggle(config.KeyFilter, v) }

func (s *Session) toggle(key string, def bool) bool {
	if s.settings == nil {
		return def
	}
	return s.settings.Bool(key, def)
}

func (s *Session) setToggle(key string, v bool) {
	if s.settings != nil {
		s.settings.SetBool(key, v)
	}
}

// RenderOptions returns the paint settings for a w x h viewport.
func (s *Session) RenderOptions(w, h int) export.RenderOptions {
	return export.RenderOptions{Width: w, Height: h, Bilinear: s.Bilinear(), Grayscale: s.Grayscale(), ShowSelection: true}
}

// RenderPNG writes a fitted w x h snapshot of the board.
func (s *Session) RenderPNG(path string, w, h int) error {
	opt := s.RenderOptions(w, h)
	opt.ShowSelection = false
	return export.RenderPNG(s.canvas, path, opt)
}

// ExportPDF writes the board onto a single PDF page.
func (s *Session) ExportPDF(path string) error {
	title := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	return export.ExportPDF(s.canvas, path, export.PDFOptions{Margin: 36, Title: title})
}

// ExportLayout writes the arrangement manifest.
func (s *Session) ExportLayout(path string) error {
	return export.WriteLayout(path, export.BuildLayout(s.canvas, s.view.Center(s.engine.Viewport()), s.view.Zoom()))
}

// ApplyLayout reads a manifest and moves matching items onto it. The change is
// recorded for undo as a single step. It returns the number of matched items.
func (s *Session) ApplyLayout(path string) (int, error) {
	lay, err := export.ReadLayout(path)
	if err != nil {
		return 0, err
	}
	ch := export.ApplyLayout(s.canvas, lay)
	if len(ch.Items) > 0 {
		s.bus.Publish(events.ItemsArranged{
			Items: ch.Items, Flipped: ch.Flipped,
			FromPos: ch.FromPos, ToPos: ch.ToPos,
			FromScale: ch.FromScale, ToScale: ch.ToScale,
			FromZ: ch.FromZ, ToZ: ch.ToZ,
		})
	}
	return len(ch.Items), nil
}

func (s *Session) remember() {
	if s.settings == nil {
		return
	}
	s.settings.Set(config.KeyProjectPath, s.path)
}

// Close saves a modified board that has a path, persists the settings and
// stops outstanding fetches.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.path != "" && s.Modified() {
		errs = append(errs, s.Save(ctx))
	}
	if s.settings != nil {
		errs = append(errs, s.settings.Save())
	}
	s.fetch.Close()
	s.recorder.Close()
	s.unsub()
	return errors.Join(errs...)
}
