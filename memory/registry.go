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
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/telemetry"
)

// DefaultWindowSize is the number of turns kept per session.
const DefaultWindowSize = 10

type entry struct {
	session *Session
	busy    bool
}

// Registry owns the resident sessions and serializes access to each.
type Registry struct {
	repo       storage.SessionRepository
	windowSize int
	counter    TokenCounter
	now        func() time.Time
	metrics    *telemetry.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMetrics records session activity. A nil value disables recording.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(r *Registry) error {
		r.metrics = metrics
		return nil
	}
}

// WithTokenCounter sets the counter used to fill ConversationTurn.TokenCount.
// Default is RuneEstimator.
func WithTokenCounter(counter TokenCounter) Option {
	return func(r *Registry) error {
		if counter == nil {
			counter = RuneEstimator{}
		}
		r.counter = counter
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) error {
		if now == nil {
			now = time.Now
		}
		r.now = now
		return nil
	}
}

// NewRegistry creates a registry whose sessions keep windowSize turns.
// A non-positive windowSize selects DefaultWindowSize.
func NewRegistry(repo storage.SessionRepository, windowSize int, opts ...Option) (*Registry, error) {
	if repo == nil {
		return nil, ErrSessionRepositoryRequired
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	r := &Registry{
		repo:       repo,
		windowSize: windowSize,
		counter:    RuneEstimator{},
		now:        time.Now,
		logger:     slog.Default().With("component", "memory"),
		sessions:   make(map[string]*entry),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Acquire takes exclusive ownership of a session, restoring its recent
// turns from the repository the first time it is seen. It fails with
// core.ErrSessionBusy while another lease on the session is live.
func (r *Registry) Acquire(ctx context.Context, sessionID string) (*Lease, error) {
	if sessionID == "" {
		return nil, core.ErrEmptySessionID
	}

	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if ok && e.busy {
		r.mu.Unlock()
		r.metrics.RecordSessionBusy()
		return nil, fmt.Errorf("%w: %s", core.ErrSessionBusy, sessionID)
	}
	if !ok {
		e = &entry{}
		r.sessions[sessionID] = e
	}
	e.busy = true
	r.mu.Unlock()

	if e.session == nil {
		session, err := r.restore(ctx, sessionID)
		if err != nil {
			r.mu.Lock()
			delete(r.sessions, sessionID)
			r.mu.Unlock()
			return nil, err
		}
		e.session = session
		r.metrics.SetSessionsActive(r.Len())
	}
	e.session.touch(r.now())

	return &Lease{registry: r, entry: e, session: e.session}, nil
}

func (r *Registry) restore(ctx context.Context, sessionID string) (*Session, error) {
	session := newSession(sessionID, r.repo, r.windowSize, r.now())
	turns, err := r.repo.RecentTurns(ctx, sessionID, r.windowSize)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", sessionID, err)
	}
	for _, turn := range turns {
		session.window.Append(*turn)
	}
	if len(turns) > 0 {
		r.logger.Debug("session restored", "session", sessionID, "turns", len(turns))
	}
	return session, nil
}

// End drops a session from memory. Its stored history is kept.
// A session that is currently leased is left alone and false is returned.
func (r *Registry) End(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if !ok || e.busy {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, sessionID)
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessionsActive(n)
	return true
}

// Remove ends a session and deletes its stored history. The session stays
// marked busy until the delete finishes, so a concurrent Acquire fails with
// core.ErrSessionBusy rather than restoring turns that are being removed.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return core.ErrEmptySessionID
	}

	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if ok && e.busy {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrSessionBusy, sessionID)
	}
	if !ok {
		e = &entry{}
		r.sessions[sessionID] = e
	}
	e.busy = true
	r.mu.Unlock()

	err := r.repo.DeleteSession(ctx, sessionID)

	r.mu.Lock()
	if r.sessions[sessionID] == e {
		delete(r.sessions, sessionID)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessionsActive(n)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Sweep ends every idle session whose last activity is older than maxIdle
// and returns their IDs in lexical order.
func (r *Registry) Sweep(maxIdle time.Duration) []string {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []string
	for id, e := range r.sessions {
		if e.busy || e.session == nil {
			continue
		}
		if e.session.LastActivity().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if len(evicted) > 0 {
		slices.Sort(evicted)
		r.logger.Info("idle sessions evicted", "count", len(evicted))
		r.metrics.SetSessionsActive(n)
	}
	return evicted
}

// Len returns the number of resident sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Busy reports whether a session is currently leased.
func (r *Registry) Busy(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	return ok && e.busy
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.busy = false
}

// Lease is exclusive ownership of one session for one query cycle.
type Lease struct {
	registry *Registry
	entry    *entry
	session  *Session
	released atomic.Bool
}

// Session returns the leased session.
func (l *Lease) Session() *Session {
	return l.session
}

// Window returns the session's active turns, most recent last.
func (l *Lease) Window() []core.ConversationTurn {
	return l.session.Window()
}

// Commit persists turns to the session history and then appends them to
// the window. Turns without a session ID are assigned the leased one;
// missing timestamps and token counts are filled in. Nothing is appended
// if validation or persistence fails.
func (l *Lease) Commit(ctx context.Context, turns ...*core.ConversationTurn) error {
	if l.released.Load() {
		return ErrLeaseReleased
	}
	if len(turns) == 0 {
		return nil
	}

	r := l.registry
	now := r.now()
	for _, turn := range turns {
		if turn == nil {
			return fmt.Errorf("%w: turn is nil", core.ErrInvalidTurn)
		}
		if turn.SessionId == "" {
			turn.SessionId = l.session.id
		} else if turn.SessionId != l.session.id {
			return fmt.Errorf("%w: %s in %s", ErrSessionMismatch, turn.SessionId, l.session.id)
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = now
		}
		if turn.TokenCount == 0 {
			turn.TokenCount = r.counter.Count(turn.Text)
		}
		if err := core.ValidateTurn(turn); err != nil {
			return err
		}
	}

	if _, err := r.repo.AppendTurns(ctx, turns...); err != nil {
		r.logger.Error("failed to persist turns", "session", l.session.id, "err", err)
		return fmt.Errorf("persist turns: %w", err)
	}

	l.session.append(now, turns...)
	r.metrics.RecordTurns(turns...)
	return nil
}

// Release gives up ownership. It is safe to call more than once.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.registry.release(l.entry)
	}
}
