// Copyright 2025 Poiesic Systems
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

package memory

import "github.com/poiesic/docent/core"

// Window is a fixed-capacity ring of conversation turns. Appending to a
// full window evicts the oldest turn. A Window is not safe for concurrent
// use; Session guards its window.
type Window struct {
	turns []core.ConversationTurn
	start int
	count int
}

// NewWindow creates a window holding at most capacity turns.
// A capacity below one keeps nothing.
func NewWindow(capacity int) *Window {
	return &Window{turns: make([]core.ConversationTurn, max(capacity, 0))}
}

// Append adds turn as the most recent entry.
func (w *Window) Append(turn core.ConversationTurn) {
	capacity := len(w.turns)
	if capacity == 0 {
		return
	}
	if w.count < capacity {
		w.turns[(w.start+w.count)%capacity] = turn
		w.count++
		return
	}
	w.turns[w.start] = turn
	w.start = (w.start + 1) % capacity
}

// Turns returns a copy of the window, oldest first.
func (w *Window) Turns() []core.ConversationTurn {
	out := make([]core.ConversationTurn, w.count)
	for n := range w.count {
		out[n] = w.turns[(w.start+n)%len(w.turns)]
	}
	return out
}

// Len returns the number of turns held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.turns)
}
