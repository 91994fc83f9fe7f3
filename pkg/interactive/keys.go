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

package interactive

// Action is a decoded user command.
type Action int

const (
	// ActionRedraw refreshes the display without touching the session.
	ActionRedraw Action = iota
	// ActionQuit terminates the interactive loop.
	ActionQuit
	// ActionAddLocked adds one quantum to the locked heap.
	ActionAddLocked
	// ActionRemoveLocked removes the most recent locked quantum.
	ActionRemoveLocked
	// ActionAddUnlocked adds one quantum to the unlocked heap.
	ActionAddUnlocked
	// ActionRemoveUnlocked removes the most recent unlocked quantum.
	ActionRemoveUnlocked
	// ActionPageIn pages in all unlocked regions.
	ActionPageIn
)

// Raw control bytes with a key binding.
const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyEscape = 0x1b
)

// DecodeKey maps one raw key byte to an action. Unknown keys redraw.
func DecodeKey(key byte) Action {
	switch key {
	case '+', '=':
		return ActionAddLocked
	case '-', '_':
		return ActionRemoveLocked
	case ']', '}':
		return ActionAddUnlocked
	case '[', '{':
		return ActionRemoveUnlocked
	case 'p', 'P':
		return ActionPageIn
	case 'q', keyEscape, keyCtrlC, keyCtrlD:
		return ActionQuit
	}
	return ActionRedraw
}
