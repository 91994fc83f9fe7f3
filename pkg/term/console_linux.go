//go:build linux
// +build linux

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

package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
	goxterm "golang.org/x/term"
)

// ANSI control sequences used for the status display.
const (
	ctlHideCursor = "\x1b[?25l"
	ctlShowCursor = "\x1b[?25h"
	ctlEraseDown  = "\x1b[0J"
)

// Console implements Surface on the process's controlling terminal.
type Console struct {
	in    *os.File
	out   *bufio.Writer
	state *goxterm.State
}

// NewConsole returns a Surface over stdin/stdout.
func NewConsole() *Console {
	return &Console{
		in:  os.Stdin,
		out: bufio.NewWriter(os.Stdout),
	}
}

// Open puts the terminal into raw mode and hides the cursor. If hiding
// the cursor fails the terminal mode is restored before reporting the
// error, so a failed Open never leaves a raw terminal behind.
func (c *Console) Open() error {
	state, err := goxterm.MakeRaw(int(c.in.Fd()))
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	c.state = state

	c.out.WriteString(ctlHideCursor)
	if err := c.out.Flush(); err != nil {
		c.Restore()
		return fmt.Errorf("failed to hide cursor: %w", err)
	}
	return nil
}

// Restore shows the cursor and leaves raw mode. Idempotent.
func (c *Console) Restore() {
	if c.state == nil {
		return
	}
	c.out.WriteString(ctlShowCursor)
	c.out.Flush()
	goxterm.Restore(int(c.in.Fd()), c.state)
	c.state = nil
}

// Poll waits up to timeout for one key byte on the input.
func (c *Console) Poll(timeout time.Duration) (byte, bool, error) {
	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout / time.Millisecond)
	}

	fds := []unix.PollFd{{Fd: int32(c.in.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("polling input failed: %w", err)
		}
		if n == 0 {
			return 0, false, nil
		}
		break
	}

	buf := [1]byte{}
	n, err := c.in.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, io.EOF
	}
	return buf[0], true, nil
}

// Print queues formatted text for the output.
func (c *Console) Print(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Clear queues erasing of the given number of prior lines.
func (c *Console) Clear(lines int) {
	if lines <= 0 {
		fmt.Fprintf(c.out, "\r%s", ctlEraseDown)
		return
	}
	fmt.Fprintf(c.out, "\r\x1b[%dA%s", lines, ctlEraseDown)
}

// Flush writes all queued output.
func (c *Console) Flush() {
	c.out.Flush()
}
