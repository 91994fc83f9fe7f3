// Copyright 2022 The mlockmon Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package interactive runs the event loop of the monitor: sample
// telemetry, render the session and counter state, wait for a key,
// dispatch the decoded action.
package interactive

import (
	"time"

	logger "github.com/memtools/mlockmon/pkg/log"
	"github.com/memtools/mlockmon/pkg/procmem"
	"github.com/memtools/mlockmon/pkg/session"
	"github.com/memtools/mlockmon/pkg/term"
)

// statusLines is the number of lines one rendered snapshot occupies.
const statusLines = 3

var log = logger.NewLogger("interactive")

// Controller drives one interactive session. It exclusively owns the
// session and the most recent system telemetry snapshot; the terminal
// surface is borrowed for rendering and input.
type Controller struct {
	session  *session.Session
	surface  term.Surface
	interval time.Duration
	prevSys  *procmem.SystemStats
}

// New creates a controller over the given session and surface, polling
// input and refreshing telemetry at the given interval.
func New(s *session.Session, surface term.Surface, interval time.Duration) *Controller {
	return &Controller{
		session:  s,
		surface:  surface,
		interval: interval,
	}
}

// Run loops until a quit action, end of input, or an input source
// failure. The caller remains responsible for restoring the surface and
// closing the session; Run only borrows them.
func (c *Controller) Run() {
	for {
		c.render()
		action := c.waitAction()
		if action == ActionQuit {
			return
		}
		c.dispatch(action)
		c.surface.Clear(statusLines)
	}
}

// render samples fresh telemetry and redraws the status lines. The
// system snapshot is chained from the previous one so the swap I/O
// deltas reflect activity since the last refresh.
func (c *Controller) render() {
	sys := procmem.CollectSystem(c.prevSys)
	proc := procmem.CollectProcess()

	c.surface.Print("mlock:     %s\r\n", c.session)
	c.surface.Print("proc self: %s\r\n", proc)
	c.surface.Print("proc sys:  %s\r\n", sys)
	c.surface.Flush()

	c.prevSys = sys
}

// waitAction blocks until the next input event or poll timeout. A
// timeout redraws; a failed or closed input source quits.
func (c *Controller) waitAction() Action {
	key, ok, err := c.surface.Poll(c.interval)
	if err != nil {
		log.Debug("input source failed: %v", err)
		return ActionQuit
	}
	if !ok {
		return ActionRedraw
	}
	return DecodeKey(key)
}

// dispatch applies one action to the session. Add and remove failures
// are deliberately silent: the rendered state simply does not change.
func (c *Controller) dispatch(action Action) {
	switch action {
	case ActionRedraw:
	case ActionAddLocked:
		if err := c.session.Add(session.HeapLocked); err != nil {
			log.Debug("add locked failed: %v", err)
		}
	case ActionRemoveLocked:
		c.session.Remove(session.HeapLocked)
	case ActionAddUnlocked:
		if err := c.session.Add(session.HeapUnlocked); err != nil {
			log.Debug("add unlocked failed: %v", err)
		}
	case ActionRemoveUnlocked:
		c.session.Remove(session.HeapUnlocked)
	case ActionPageIn:
		// paging in blocks the loop, leave a marker on screen meanwhile
		c.surface.Print(" ... paging in ...")
		c.surface.Flush()
		c.session.PageInUnlocked()
	}
}
