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

package storage

import (
	"context"
	"iter"

	"github.com/poiesic/docent/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// UnitSource yields every stored content unit of a pool.
// The index is rebuilt from a UnitSource.
type UnitSource interface {
	// Units iterates the pool's content units in ascending ID order.
	// Iteration stops at the first error, which is yielded with a nil unit.
	Units(ctx context.Context, pool core.Pool) iter.Seq2[*core.ContentUnit, error]
}

// UnitRepository provides operations for managing content units.
type UnitRepository interface {
	Repository
	UnitSource

	// AddUnits validates and stores content units.
	// Units with ID=0 receive a content-derived ID.
	// Sets InsertedAt timestamp if not already set.
	// Storing a unit whose ID already exists overwrites it.
	AddUnits(ctx context.Context, units ...*core.ContentUnit) ([]*core.ContentUnit, error)

	// UpdateUnits replaces existing units, typically with fresh vectors.
	// Returns ErrNotFound if any unit doesn't exist.
	UpdateUnits(ctx context.Context, units ...*core.ContentUnit) ([]*core.ContentUnit, error)

	// DeleteUnits removes units by their IDs.
	// Returns ErrNotFound if any unit doesn't exist.
	DeleteUnits(ctx context.Context, ids ...core.ID) error

	// GetUnit retrieves a single unit by ID.
	// Returns ErrNotFound if the unit doesn't exist.
	GetUnit(ctx context.Context, id core.ID) (*core.ContentUnit, error)

	// GetUnits retrieves multiple units by their IDs.
	// Returns only the units that exist (no error for missing units).
	GetUnits(ctx context.Context, ids ...core.ID) ([]*core.ContentUnit, error)

	// CountUnits returns the number of stored units in a pool.
	CountUnits(ctx context.Context, pool core.Pool) (int, error)
}

// SessionRepository persists conversation turns per session.
type SessionRepository interface {
	Repository

	// AppendTurns stores turns at the end of their session's history.
	// Turns with ID=0 receive an ID from the sequence.
	// Returns the turns with IDs populated.
	AppendTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error)

	// History returns every turn of a session, oldest first.
	History(ctx context.Context, sessionID string) ([]*core.ConversationTurn, error)

	// RecentTurns returns up to limit of the most recent turns, oldest first.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]*core.ConversationTurn, error)

	// DeleteSession removes all turns of a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// SessionIDs lists every session with stored turns, in lexical order.
	SessionIDs(ctx context.Context) ([]string, error)
}

// ManifestRepository stores which units each pool index was last built from.
type ManifestRepository interface {
	// SaveManifest stores the manifest of a pool, replacing any previous one.
	SaveManifest(ctx context.Context, manifest *core.IndexManifest) error

	// LoadManifest loads the manifest of a pool.
	// Returns ErrNotFound if the pool was never built.
	LoadManifest(ctx context.Context, pool core.Pool) (*core.IndexManifest, error)
}
