//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"gorefcanvas/internal/app"
	"gorefcanvas/internal/config"
	"gorefcanvas/internal/crash"
	applog "gorefcanvas/internal/log"
	"gorefcanvas/internal/project"
	"gorefcanvas/internal/storage"
	"gorefcanvas/internal/version"
)

// pumpInterval is how often queued fetch completions are applied.
const pumpInterval = 50 * time.Millisecond

var boardExtensions = []string{project.Ext, storage.Ext}

// Run starts the desktop UI. Pass an optional board file to open immediately;
// without one the last board recorded in the settings is reopened.
func Run(boardPath string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(logOptions(cfg))
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	settings := openSettings(l)
	s := app.New(app.Options{Config: cfg, Token: token, Settings: settings})
	defer crash.Recover(s)

	if boardPath == "" && settings != nil {
		if last, ok := settings.Get(config.KeyProjectPath); ok && last != "" {
			if _, err := os.Stat(last); err == nil {
				boardPath = last
			}
		}
	}

	fyneApp := fyneapp.NewWithID("gorefcanvas")
	w := fyneApp.NewWindow("gorefcanvas")
	winW, winH := windowGeometry(settings)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	board := NewBoardCanvas(s)
	mw := &mainWindow{w: w, s: s, board: board, status: status, log: l}
	board.OnChanged = mw.updateTitle
	board.OnContextMenu = mw.showContextMenu
	s.OnAcquisitionFailed(func(url string, err error) {
		l.Warn("remote image failed", slog.String("url", url), slog.Any("err", err))
		status.SetText(fmt.Sprintf("Could not load %s: %v", url, err))
	})
	s.Undo().OnCleanChanged(func(bool) { mw.updateTitle() })

	w.SetContent(container.NewBorder(nil, status, nil, nil, board))
	w.SetMainMenu(mw.mainMenu())
	mw.addShortcuts()
	if dc, ok := w.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(board.KeyDown)
		dc.SetOnKeyUp(board.KeyUp)
	}
	w.SetOnDropped(func(pos fyne.Position, uris []fyne.URI) {
		abs := fyne.CurrentApp().Driver().AbsolutePositionForObject(board)
		board.Drop(pos.Subtract(abs), uris)
	})

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(pumpInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fyne.Do(func() {
					if s.Pump() > 0 {
						board.Refresh()
					}
				})
			}
		}
	}()

	w.SetCloseIntercept(func() {
		if settings != nil {
			sz := w.Canvas().Size()
			settings.Set(config.KeyWindowGeometry, formatGeometry(int(sz.Width), int(sz.Height)))
		}
		close(done)
		if err := s.Close(context.Background()); err != nil {
			l.Error("close failed", slog.Any("err", err))
		}
		w.Close()
	})

	if boardPath != "" {
		mw.open(boardPath)
	}
	mw.updateTitle()
	w.ShowAndRun()
	return nil
}

func logOptions(cfg config.AppConfig) applog.Options {
	return applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
}

func openSettings(l *slog.Logger) *config.Settings {
	path, err := config.SettingsPath()
	if err == nil {
		var st *config.Settings
		if st, err = config.OpenSettings(path); err == nil {
			return st
		}
	}
	l.Warn("settings unavailable, nothing will be remembered", slog.Any("err", err))
	return nil
}

type mainWindow struct {
	w      fyne.Window
	s      *app.Session
	board  *BoardCanvas
	status *widget.Label
	log    *slog.Logger

	grayscale *fyne.MenuItem
	bilinear  *fyne.MenuItem
	menu      *fyne.MainMenu
}

func (m *mainWindow) updateTitle() { m.w.SetTitle("gorefcanvas - " + m.s.Title()) }

func (m *mainWindow) fail(err error) {
	m.log.Error("action failed", slog.Any("err", err))
	dialog.ShowError(err, m.w)
}

func (m *mainWindow) open(path string) {
	rep, err := m.s.Open(context.Background(), path)
	if err != nil {
		m.fail(err)
		return
	}
	m.board.Reload()
	msg := fmt.Sprintf("Opened %s: %d images", filepath.Base(path), rep.Loaded)
	if rep.Skipped > 0 {
		msg += fmt.Sprintf(", %d placeholders skipped", rep.Skipped)
	}
	m.status.SetText(msg)
}

func (m *mainWindow) save() {
	err := m.s.Save(context.Background())
	if errors.Is(err, app.ErrNoPath) {
		m.saveAs()
		return
	}
	if err != nil {
		m.fail(err)
		return
	}
	m.board.Refresh()
	m.updateTitle()
	m.status.SetText("Saved " + m.s.BoardPath())
}

func (m *mainWindow) saveAs() {
	fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			m.fail(err)
			return
		}
		if wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		if filepath.Ext(path) == "" {
			path += project.Ext
		}
		if err := m.s.SaveAs(context.Background(), path); err != nil {
			m.fail(err)
			return
		}
		m.updateTitle()
		m.status.SetText("Saved " + path)
	}, m.w)
	fd.SetFilter(fstorage.NewExtensionFileFilter(boardExtensions))
	fd.SetFileName("untitled" + project.Ext)
	fd.Show()
}

func (m *mainWindow) newProject() {
	reset := func() {
		if err := m.s.NewProject(context.Background()); err != nil {
			m.fail(err)
			return
		}
		m.board.Reload()
		m.status.SetText("New board")
	}
	if m.s.Modified() && m.s.BoardPath() == "" {
		dialog.ShowConfirm("New Board", "Discard the unsaved board?", func(ok bool) {
			if ok {
				reset()
			}
		}, m.w)
		return
	}
	reset()
}

// pickFile shows an open dialog filtered to exts and passes the chosen path to fn.
func (m *mainWindow) pickFile(exts []string, fn func(path string)) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			m.fail(err)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		fn(path)
	}, m.w)
	if len(exts) > 0 {
		fd.SetFilter(fstorage.NewExtensionFileFilter(exts))
	}
	fd.Show()
}

// pickTarget shows a save dialog proposing name and passes the chosen path to fn.
func (m *mainWindow) pickTarget(name string, fn func(path string) error, done string) {
	fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			m.fail(err)
			return
		}
		if wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		if err := fn(path); err != nil {
			m.fail(err)
			return
		}
		m.status.SetText(done + " " + path)
	}, m.w)
	fd.SetFileName(name)
	fd.Show()
}

func (m *mainWindow) viewCenter() fyne.Position {
	sz := m.board.Size()
	return fyne.NewPos(sz.Width/2, sz.Height/2)
}

func (m *mainWindow) importImage() {
	m.pickFile(nil, func(path string) {
		added := m.s.ImportFiles([]string{path}, m.board.ScenePoint(m.viewCenter()))
		if len(added) == 0 {
			m.status.SetText("Not an image: " + filepath.Base(path))
		}
	})
}

func (m *mainWindow) exportSelection() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			m.fail(err)
			return
		}
		if dir == nil {
			return
		}
		written, err := m.s.ExportSelection(dir.Path())
		if err != nil {
			m.fail(err)
		}
		m.status.SetText(fmt.Sprintf("Exported %d images to %s", len(written), dir.Path()))
	}, m.w)
}

func (m *mainWindow) applyLayout() {
	m.pickFile([]string{".json"}, func(path string) {
		n, err := m.s.ApplyLayout(path)
		if err != nil {
			m.fail(err)
			return
		}
		m.board.Refresh()
		m.updateTitle()
		m.status.SetText(fmt.Sprintf("Layout applied to %d images", n))
	})
}

func (m *mainWindow) paste(at fyne.Position) {
	if err := m.s.PasteClipboard(toPoint(at)); err != nil {
		m.fail(err)
	}
}

func (m *mainWindow) undo() {
	if !m.s.Undo().Undo() {
		m.status.SetText("Nothing to undo")
	}
	m.board.Refresh()
	m.updateTitle()
}

func (m *mainWindow) redo() {
	if !m.s.Undo().Redo() {
		m.status.SetText("Nothing to redo")
	}
	m.board.Refresh()
	m.updateTitle()
}

func (m *mainWindow) toggleGrayscale() {
	m.s.SetGrayscale(!m.s.Grayscale())
	m.grayscale.Checked = m.s.Grayscale()
	m.menu.Refresh()
	m.board.Refresh()
}

func (m *mainWindow) toggleBilinear() {
	m.s.SetBilinear(!m.s.Bilinear())
	m.bilinear.Checked = m.s.Bilinear()
	m.menu.Refresh()
	m.board.Refresh()
}

func (m *mainWindow) mainMenu() *fyne.MainMenu {
	e := m.s.Engine()
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New", m.newProject),
		fyne.NewMenuItem("Open…", func() { m.pickFile(boardExtensions, m.open) }),
		fyne.NewMenuItem("Save", m.save),
		fyne.NewMenuItem("Save As…", m.saveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import Image…", m.importImage),
		fyne.NewMenuItem("Apply Layout…", m.applyLayout),
	)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("PNG Snapshot…", func() {
			m.pickTarget("board.png", func(p string) error { return m.s.RenderPNG(p, 1920, 1080) }, "Rendered")
		}),
		fyne.NewMenuItem("PDF…", func() { m.pickTarget("board.pdf", m.s.ExportPDF, "Exported") }),
		fyne.NewMenuItem("Layout…", func() { m.pickTarget("board.layout.json", m.s.ExportLayout, "Exported") }),
		fyne.NewMenuItem("Selected Images…", m.exportSelection),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", m.undo),
		fyne.NewMenuItem("Redo", m.redo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Paste", func() { m.paste(m.board.Pointer()) }),
		fyne.NewMenuItem("Select All", e.SelectAll),
		fyne.NewMenuItem("Delete", e.DeleteSelection),
		fyne.NewMenuItem("Flip Horizontally", e.FlipSelection),
		fyne.NewMenuItem("Pack Selection", func() { e.PackSelection(m.board.ScenePoint(m.viewCenter())) }),
	)
	m.grayscale = fyne.NewMenuItem("Grayscale", m.toggleGrayscale)
	m.grayscale.Checked = m.s.Grayscale()
	m.bilinear = fyne.NewMenuItem("Smooth Scaling", m.toggleBilinear)
	m.bilinear.Checked = m.s.Bilinear()
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Reset View", e.ResetView),
		fyne.NewMenuItemSeparator(),
		m.grayscale,
		m.bilinear,
	)
	aboutMenu := fyne.NewMenu("About",
		fyne.NewMenuItem("Version", func() {
			dialog.ShowInformation("gorefcanvas", version.String(), m.w)
		}),
	)
	m.menu = fyne.NewMainMenu(fileMenu, editMenu, viewMenu, exportMenu, aboutMenu)
	return m.menu
}

func (m *mainWindow) showContextMenu(local, abs fyne.Position) {
	e := m.s.Engine()
	at := m.board.ScenePoint(local)
	menu := fyne.NewMenu("",
		fyne.NewMenuItem("Paste Here", func() { m.paste(local) }),
		fyne.NewMenuItem("Pack Selection Here", func() { e.PackSelection(at) }),
		fyne.NewMenuItem("Flip Horizontally", e.FlipSelection),
		fyne.NewMenuItem("Delete", e.DeleteSelection),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select All", e.SelectAll),
		fyne.NewMenuItem("Reset View", e.ResetView),
	)
	widget.ShowPopUpMenuAtPosition(menu, m.w.Canvas(), abs)
}

func (m *mainWindow) addShortcuts() {
	e := m.s.Engine()
	ctrl := func(k fyne.KeyName, fn func()) {
		m.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: k, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { fn() })
	}
	ctrl(fyne.KeyZ, m.undo)
	ctrl(fyne.KeyY, m.redo)
	ctrl(fyne.KeyS, m.save)
	ctrl(fyne.KeyO, func() { m.pickFile(boardExtensions, m.open) })
	ctrl(fyne.KeyN, m.newProject)
	ctrl(fyne.KeyA, e.SelectAll)
	ctrl(fyne.KeyV, func() { m.paste(m.board.Pointer()) })
	ctrl(fyne.KeyP, func() { e.PackSelection(m.board.ScenePoint(m.board.Pointer())) })
	m.w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		switch k.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			e.DeleteSelection()
		case fyne.KeyF:
			e.FlipSelection()
		case fyne.KeyG:
			m.toggleGrayscale()
		case fyne.KeyHome:
			e.ResetView()
		}
	})
}
