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

// Package term provides the terminal surface the interactive monitor
// renders to: an exclusive raw input mode, single-key polling with a
// timeout, and in-place redrawing of a few status lines.
package term

import (
	"time"
)

// Surface is the terminal interface the interactive controller needs.
type Surface interface {
	// Open enters the exclusive raw input mode and hides the cursor.
	Open() error
	// Restore shows the cursor and returns the terminal to its prior
	// mode. Idempotent, must be called on every exit path.
	Restore()
	// Poll waits up to timeout for one key byte. A negative timeout
	// waits indefinitely. ok is false when the timeout expired without
	// input. A failing or closed input source returns an error.
	Poll(timeout time.Duration) (key byte, ok bool, err error)
	// Print queues formatted text for the output.
	Print(format string, args ...interface{})
	// Clear queues erasing of the given number of most recently
	// rendered lines, leaving the cursor at the start of the erased
	// area.
	Clear(lines int)
	// Flush writes all queued output.
	Flush()
}
