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

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateEmpty is a session with no turns yet.
	StateEmpty State = iota
	// StateActive is a session with at least one turn.
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "empty"
}

// Session is one conversation: its recent turns in memory and its full
// history in the session repository.
type Session struct {
	id      string
	history storage.SessionRepository

	mu           sync.Mutex
	window       *Window
	lastActivity time.Time
}

func newSession(id string, history storage.SessionRepository, capacity int, now time.Time) *Session {
	return &Session{
		id:           id,
		history:      history,
		window:       NewWindow(capacity),
		lastActivity: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State reports whether the session has any turns.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window.Len() == 0 {
		return StateEmpty
	}
	return StateActive
}

// Window returns the active turns, most recent last.
func (s *Session) Window() []core.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Turns()
}

// FullHistory reads every stored turn of the session, oldest first.
func (s *Session) FullHistory(ctx context.Context) ([]*core.ConversationTurn, error) {
	return s.history.History(ctx, s.id)
}

// LastActivity returns when the session was last acquired or appended to.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// append adds turns to the window. It is the only window mutator.
func (s *Session) append(now time.Time, turns ...*core.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, turn := range turns {
		s.window.Append(*turn)
	}
	s.lastActivity = now
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}
