/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gorefcanvas/internal/app"
	"gorefcanvas/internal/config"
	"gorefcanvas/internal/crash"
	"gorefcanvas/internal/geom"
	applog "gorefcanvas/internal/log"
	"gorefcanvas/internal/project"
	"gorefcanvas/internal/storage"
	"gorefcanvas/internal/ui"
	"gorefcanvas/internal/version"
)

// fetchWait bounds how long import waits for remote images.
const fetchWait = 2 * time.Minute

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#33CCCC"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "gorefcanvas - reference image board")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gorefcanvas version|-v|--version                 Show version")
	fmt.Fprintln(w, "  gorefcanvas info <board>                         Print a summary of a .riv or .rivdb board")
	fmt.Fprintln(w, "  gorefcanvas import <board> <image|url>...        Add images to a board (created if missing)")
	fmt.Fprintln(w, "  gorefcanvas render <board> <out.png> [WxH]       Render a fitted PNG snapshot")
	fmt.Fprintln(w, "  gorefcanvas pdf <board> <out.pdf>                Export the board onto one PDF page")
	fmt.Fprintln(w, "  gorefcanvas export-layout <board> <out.json>     Write the arrangement manifest")
	fmt.Fprintln(w, "  gorefcanvas apply-layout <board> <layout.json>   Rearrange a board from a manifest and save it")
	fmt.Fprintln(w, "  gorefcanvas extract <board> <dir>                Write every image of a board into dir")
	fmt.Fprintln(w, "  gorefcanvas ui [<board>]                         Launch desktop UI (build with -tags fyne)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one command and returns the process exit code.
func run(args []string, out io.Writer) int {
	cfg, token, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(out)
		return 0
	}
	need := func(n int, what string) bool {
		if len(args) < n+1 {
			fmt.Fprintf(out, "%s requires %s\n", args[0], what)
			usage(out)
			return false
		}
		return true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	newSession := func() *app.Session { return app.New(app.Options{Config: cfg, Token: token}) }
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return 0
	case "info":
		if !need(1, "<board>") {
			return 2
		}
		err = info(ctx, out, args[1])
	case "import":
		if !need(2, "<board> and at least one image") {
			return 2
		}
		err = importImages(ctx, newSession(), out, args[1], args[2:])
	case "render":
		if !need(2, "<board> and <out.png>") {
			return 2
		}
		size := "1920x1080"
		if len(args) > 3 {
			size = args[3]
		}
		w, h, perr := parseSize(size)
		if perr != nil {
			fmt.Fprintln(out, "Error:", perr)
			return 2
		}
		err = withBoard(ctx, newSession(), args[1], func(s *app.Session) error { return s.RenderPNG(args[2], w, h) })
	case "pdf":
		if !need(2, "<board> and <out.pdf>") {
			return 2
		}
		err = withBoard(ctx, newSession(), args[1], func(s *app.Session) error { return s.ExportPDF(args[2]) })
	case "export-layout":
		if !need(2, "<board> and <out.json>") {
			return 2
		}
		err = withBoard(ctx, newSession(), args[1], func(s *app.Session) error { return s.ExportLayout(args[2]) })
	case "apply-layout":
		if !need(2, "<board> and <layout.json>") {
			return 2
		}
		err = withBoard(ctx, newSession(), args[1], func(s *app.Session) error {
			n, err := s.ApplyLayout(args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Moved %d images\n", n)
			return s.Save(ctx)
		})
	case "extract":
		if !need(2, "<board> and <dir>") {
			return 2
		}
		err = withBoard(ctx, newSession(), args[1], func(s *app.Session) error {
			s.Engine().SelectAll()
			written, err := s.ExportSelection(args[2])
			fmt.Fprintf(out, "Wrote %d images to %s\n", len(written), args[2])
			return err
		})
	case "ui":
		var board string
		if len(args) >= 2 {
			board = args[1]
		}
		err = ui.Run(board)
	default:
		usage(out)
		return 2
	}
	if err != nil {
		l.Error(args[0]+" failed", slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	return 0
}

// withBoard opens path in s, runs fn and closes the session. A panic inside fn
// still leaves a crash snapshot of the board.
func withBoard(ctx context.Context, s *app.Session, path string, fn func(*app.Session) error) (err error) {
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	defer crash.Recover(s)
	if _, err := s.Open(ctx, path); err != nil {
		return err
	}
	return fn(s)
}

func importImages(ctx context.Context, s *app.Session, out io.Writer, path string, payloads []string) (err error) {
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	defer crash.Recover(s)
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := s.Open(ctx, path); err != nil {
			return err
		}
	}
	before := len(s.Canvas().Live())
	at := geom.Pt(0, 0)
	if b := s.Canvas().Bounds(); !b.IsEmpty() {
		at = geom.Pt(b.X+b.W/2, b.Y+b.H+b.H/2)
	}
	s.Import(payloads, at)
	wctx, cancel := context.WithTimeout(ctx, fetchWait)
	defer cancel()
	if err := s.WaitFetches(wctx); err != nil {
		fmt.Fprintln(out, warnStyle.Render("remote images still pending: "+err.Error()))
	}
	added := len(s.Canvas().Live()) - before
	if err := s.SaveAs(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %d of %d images to %s\n", added, len(payloads), path)
	return nil
}

func info(ctx context.Context, out io.Writer, path string) error {
	row := func(k, v string) { fmt.Fprintln(out, keyStyle.Render(k)+v) }
	fmt.Fprintln(out, titleStyle.Render(filepath.Base(path)))
	if strings.EqualFold(filepath.Ext(path), storage.Ext) {
		st, err := storage.Open(ctx, path)
		if err != nil {
			return err
		}
		defer st.Close()
		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		ver, err := st.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		row("format", fmt.Sprintf("sqlite (schema %d)", ver))
		row("images", strconv.Itoa(stats.Items))
		row("image bytes", strconv.FormatInt(stats.ImageBytes, 10))
		row("zoom", strconv.FormatFloat(stats.View.Zoom, 'g', 4, 64))
		row("center", fmt.Sprintf("%g, %g", stats.View.Center.X, stats.View.Center.Y))
		return nil
	}
	b, rep, err := project.Load(ctx, path, nil)
	if err != nil {
		return err
	}
	var bytes int64
	for _, r := range b.Items {
		bytes += int64(len(r.Image))
	}
	row("format", fmt.Sprintf("riv (version %d)", rep.Version))
	row("images", strconv.Itoa(rep.Loaded))
	if rep.Skipped > 0 {
		row("skipped", warnStyle.Render(strconv.Itoa(rep.Skipped)+" path-only placeholders"))
	}
	row("image bytes", strconv.FormatInt(bytes, 10))
	row("zoom", strconv.FormatFloat(b.Zoom, 'g', 4, 64))
	row("center", fmt.Sprintf("%g, %g", b.Center.X, b.Center.Y))
	backups, err := project.Backups(path)
	if err != nil {
		return err
	}
	row("backups", strconv.Itoa(len(backups)))
	return nil
}

func parseSize(s string) (w, h int, err error) {
	if n, serr := fmt.Sscanf(s, "%dx%d", &w, &h); serr != nil || n != 2 || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	return w, h, nil
}
