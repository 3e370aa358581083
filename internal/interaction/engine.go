/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction turns raw pointer, keyboard, wheel and drop events into
// board edits. It owns the mode (Idle, Panning, Resizing), the view transform
// and the virtual scene rect, and publishes finished edits on an events.Bus.
package interaction

import (
	"log/slog"

	"gorefcanvas/internal/canvas"
	"gorefcanvas/internal/events"
	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	applog "gorefcanvas/internal/log"
)

// State is the interaction mode.
type State int

const (
	Idle State = iota
	Panning
	Resizing
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Config tunes the engine. Zero values fall back to the defaults.
type Config struct {
	// ZoomFactor is the per-wheel-step zoom in factor; zoom out uses its inverse.
	ZoomFactor float64
	// ResizeGain converts pointer travel (scene units) into scale change.
	ResizeGain float64
	// MinScale is the per-tick scale floor, multiplied by the inverse zoom.
	MinScale float64
	// PanButton enters Panning from Idle. The default is the middle button,
	// leaving the secondary button free for a context menu; set
	// ButtonSecondary for secondary-button panning.
	PanButton Button
	// ResizeKey enters Resizing from Idle.
	ResizeKey Key
	// PanKey enters Panning from Idle while held.
	PanKey Key
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ZoomFactor: 1.2,
		ResizeGain: 0.001,
		MinScale:   0.01,
		PanButton:  ButtonMiddle,
		ResizeKey:  KeyControl,
		PanKey:     KeySpace,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ZoomFactor <= 1 {
		c.ZoomFactor = d.ZoomFactor
	}
	if c.ResizeGain <= 0 {
		c.ResizeGain = d.ResizeGain
	}
	if c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if c.PanButton == 0 {
		c.PanButton = d.PanButton
	}
	if c.ResizeKey == "" {
		c.ResizeKey = d.ResizeKey
	}
	if c.PanKey == "" {
		c.PanKey = d.PanKey
	}
	return c
}

// Engine is the input state machine. All methods must be called from the
// event thread.
type Engine struct {
	cfg      Config
	canvas   *canvas.Canvas
	view     *geom.View
	bus      *events.Bus
	loader   imageio.Loader
	acquirer Acquirer
	log      *slog.Logger

	state      State
	cursor     Cursor
	rubberBand bool

	viewport  geom.Size
	sceneRect geom.Rect
	// pendingCenter is a view centre requested before the widget had a size;
	// it is applied on the first non-empty ViewportResized.
	pendingCenter *geom.Point

	down    Button
	pointer geom.Point

	drag   *dragGesture
	band   *bandGesture
	resize *resizeGesture
	// lastPan is the view position of the previous pan event.
	lastPan geom.Point

	onChange func()
}

// Option customises an Engine.
type Option func(*Engine)

// WithConfig replaces the tuning.
func WithConfig(c Config) Option { return func(e *Engine) { e.cfg = c.withDefaults() } }

// WithLoader sets the local image loader used by drops and imports.
func WithLoader(l imageio.Loader) Option { return func(e *Engine) { e.loader = l } }

// WithAcquirer sets the remote image collaborator.
func WithAcquirer(a Acquirer) Option { return func(e *Engine) { e.acquirer = a } }

// New returns an Idle engine over c and v publishing to bus.
func New(c *canvas.Canvas, v *geom.View, bus *events.Bus, opts ...Option) *Engine {
	e := &Engine{
		cfg:        DefaultConfig(),
		canvas:     c,
		view:       v,
		bus:        bus,
		loader:     imageio.FileLoader{},
		log:        applog.WithComponent("interaction"),
		rubberBand: true,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OnChange registers fn to run after every event that may need a repaint.
func (e *Engine) OnChange(fn func()) { e.onChange = fn }

// State returns the current mode.
func (e *Engine) State() State { return e.state }

// Cursor returns the pointer affordance for the current mode.
func (e *Engine) Cursor() Cursor { return e.cursor }

// RubberBandEnabled reports whether pressing on empty canvas starts a band.
func (e *Engine) RubberBandEnabled() bool { return e.rubberBand }

// RubberBand returns the band rectangle in scene units while one is dragged.
func (e *Engine) RubberBand() (geom.Rect, bool) {
	if e.band == nil {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(e.band.anchor, e.band.current), true
}

// View returns the live view transform.
func (e *Engine) View() *geom.View { return e.view }

// Canvas returns the board the engine edits.
func (e *Engine) Canvas() *canvas.Canvas { return e.canvas }

// Viewport returns the last reported widget size.
func (e *Engine) Viewport() geom.Size { return e.viewport }

// SceneRect returns the virtual scene rect.
func (e *Engine) SceneRect() geom.Rect { return e.sceneRect }

// Handle processes one event. Events that have no meaning in the current
// state are ignored.
func (e *Engine) Handle(ev Event) {
	switch ev := ev.(type) {
	case PointerDown:
		e.pointer = ev.Pos
		e.down |= ev.Button
		e.pointerDown(ev)
	case PointerMove:
		e.pointerMove(ev)
		e.pointer = ev.Pos
	case PointerUp:
		e.pointer = ev.Pos
		e.down &^= ev.Button
		e.pointerUp(ev)
	case KeyDown:
		e.keyDown(ev)
	case KeyUp:
		e.keyUp(ev)
	case Wheel:
		e.pointer = ev.Pos
		e.zoom(ev)
	case Drop:
		e.drop(ev)
	case FetchCompleted:
		e.fetchCompleted(ev)
	case ViewportResized:
		e.viewport = ev.Size
		if c := e.pendingCenter; c != nil && !ev.Size.IsEmpty() {
			e.view.CenterOn(*c, ev.Size)
			e.pendingCenter = nil
		}
		e.growScene()
	default:
		return
	}
	e.changed()
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) setState(s State) {
	if s == e.state {
		return
	}
	switch e.state {
	case Idle:
		e.finishDrag()
		e.finishBand()
	case Resizing:
		e.finishResize()
	}
	switch s {
	case Idle:
		e.cursor = CursorArrow
		e.rubberBand = true
	case Panning:
		e.cursor = CursorOpenHand
		e.rubberBand = false
		e.lastPan = e.pointer
	case Resizing:
		e.cursor = CursorSizeHorizontal
		e.rubberBand = false
	}
	e.log.Debug("state", slog.String("from", e.state.String()), slog.String("to", s.String()))
	e.state = s
}

func (e *Engine) pointerDown(ev PointerDown) {
	switch e.state {
	case Idle:
		switch ev.Button {
		case ButtonPrimary:
			e.beginDrag(ev.Pos)
		case e.cfg.PanButton:
			e.setState(Panning)
			e.lastPan = ev.Pos
		}
	case Panning:
		if ev.Button == ButtonPrimary || ev.Button == e.cfg.PanButton {
			e.lastPan = ev.Pos
		}
	case Resizing:
		if ev.Button == ButtonPrimary {
			e.beginResize(ev.Pos)
		}
	}
}

func (e *Engine) pointerMove(ev PointerMove) {
	switch e.state {
	case Idle:
		if e.down&ButtonPrimary != 0 {
			e.dragTo(ev.Pos)
		}
	case Panning:
		if e.down&(ButtonPrimary|e.cfg.PanButton) != 0 {
			e.pan(ev.Pos)
		}
	case Resizing:
		if e.down&ButtonPrimary != 0 {
			e.resizeTo(ev.Pos)
		}
	}
}

func (e *Engine) pointerUp(ev PointerUp) {
	switch e.state {
	case Idle:
		if ev.Button == ButtonPrimary {
			e.endDrag()
		}
	case Panning:
		switch ev.Button {
		case e.cfg.PanButton:
			e.setState(Idle)
		case ButtonPrimary:
			e.cursor = CursorOpenHand
		}
	case Resizing:
		if ev.Button == ButtonPrimary {
			e.finishResize()
		}
	}
}

func (e *Engine) keyDown(ev KeyDown) {
	if ev.Repeat || e.state != Idle {
		return
	}
	switch ev.Key {
	case e.cfg.PanKey:
		e.setState(Panning)
	case e.cfg.ResizeKey:
		e.setState(Resizing)
	}
}

func (e *Engine) keyUp(ev KeyUp) {
	if ev.Repeat {
		return
	}
	switch {
	case e.state == Panning && ev.Key == e.cfg.PanKey:
		e.setState(Idle)
	case e.state == Resizing && ev.Key == e.cfg.ResizeKey:
		e.setState(Idle)
	}
}

func (e *Engine) growScene() {
	if e.viewport.W <= 0 || e.viewport.H <= 0 {
		return
	}
	e.sceneRect = geom.GrowSceneRect(e.sceneRect, e.view, e.viewport, geom.ScenePad)
}
