/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a linear, depth-bounded history of board edits with a
// clean marker for unsaved-change detection.
package undo

import (
	"log/slog"

	applog "gorefcanvas/internal/log"
)

// DefaultLimit is the history depth used when Config.Limit is not positive.
const DefaultLimit = 50

// Command is one reversible edit. Commands are pushed after they have been
// applied, so Redo is only called after a matching Undo.
type Command interface {
	Undo()
	Redo()
	Name() string
}

// Config controls the stack depth.
type Config struct {
	// Limit is the number of commands kept; the oldest are evicted past it.
	Limit int
}

// Stack is the undo history. It is driven from the event thread and is not
// safe for concurrent use.
type Stack struct {
	cfg  Config
	cmds []Command
	// index is the number of applied commands; cmds[index:] is the redo tail.
	index int
	// clean is the index at which the document was last saved, -1 when that
	// state can no longer be reached.
	clean          int
	onCleanChanged func(clean bool)
	log            *slog.Logger
}

// NewStack returns an empty, clean stack.
func NewStack(cfg Config) *Stack {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Stack{cfg: cfg, log: applog.WithComponent("undo")}
}

// OnCleanChanged registers fn to be called whenever IsClean flips.
func (s *Stack) OnCleanChanged(fn func(clean bool)) { s.onCleanChanged = fn }

// Push records an already-applied command, discarding any redo tail.
func (s *Stack) Push(c Command) {
	was := s.IsClean()
	if s.clean > s.index {
		s.clean = -1
	}
	s.cmds = append(s.cmds[:s.index], c)
	s.index++
	if over := len(s.cmds) - s.cfg.Limit; over > 0 {
		s.cmds = append([]Command(nil), s.cmds[over:]...)
		s.index -= over
		if s.clean >= 0 {
			s.clean -= over
			if s.clean < 0 {
				s.clean = -1
			}
		}
	}
	s.log.Debug("push", slog.String("cmd", c.Name()), slog.Int("depth", len(s.cmds)))
	s.notify(was)
}

// Undo reverts the most recent applied command. It reports false when there is none.
func (s *Stack) Undo() bool {
	if s.index == 0 {
		return false
	}
	was := s.IsClean()
	s.index--
	c := s.cmds[s.index]
	c.Undo()
	s.log.Debug("undo", slog.String("cmd", c.Name()))
	s.notify(was)
	return true
}

// Redo reapplies the next command of the redo tail. It reports false when there is none.
func (s *Stack) Redo() bool {
	if s.index >= len(s.cmds) {
		return false
	}
	was := s.IsClean()
	c := s.cmds[s.index]
	s.index++
	c.Redo()
	s.log.Debug("redo", slog.String("cmd", c.Name()))
	s.notify(was)
	return true
}

// CanUndo reports whether Undo would do something.
func (s *Stack) CanUndo() bool { return s.index > 0 }

// CanRedo reports whether Redo would do something.
func (s *Stack) CanRedo() bool { return s.index < len(s.cmds) }

// UndoName returns the name of the command Undo would revert, or "".
func (s *Stack) UndoName() string {
	if !s.CanUndo() {
		return ""
	}
	return s.cmds[s.index-1].Name()
}

// RedoName returns the name of the command Redo would apply, or "".
func (s *Stack) RedoName() string {
	if !s.CanRedo() {
		return ""
	}
	return s.cmds[s.index].Name()
}

// SetClean marks the current position as the saved state.
func (s *Stack) SetClean() {
	was := s.IsClean()
	s.clean = s.index
	s.notify(was)
}

// ResetClean makes the saved state unreachable, so the stack stays dirty until
// the next SetClean.
func (s *Stack) ResetClean() {
	was := s.IsClean()
	s.clean = -1
	s.notify(was)
}

// IsClean reports whether the stack is at the saved position.
func (s *Stack) IsClean() bool { return s.clean == s.index }

// Clear drops all commands and marks the empty stack clean.
func (s *Stack) Clear() {
	was := s.IsClean()
	s.cmds = nil
	s.index = 0
	s.clean = 0
	s.notify(was)
}

// Stats returns the number of stored commands and the applied count.
func (s *Stack) Stats() (total, applied int) { return len(s.cmds), s.index }

func (s *Stack) notify(was bool) {
	if now := s.IsClean(); now != was && s.onCleanChanged != nil {
		s.onCleanChanged(now)
	}
}
