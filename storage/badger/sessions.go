package badger

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) (*SessionRepository, error) {
	idSeq, err := backend.GetSequence(turnIDSeq)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SessionRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SessionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendTurns stores turns at the end of their sessions.
func (r *SessionRepository) AppendTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error) {
	for _, turn := range turns {
		if err := core.ValidateTurn(turn); err != nil {
			return nil, err
		}
		if bytes.IndexByte([]byte(turn.SessionId), sessionSeparator) >= 0 {
			return nil, fmt.Errorf("%w: session id contains NUL", storage.ErrInvalidQuery)
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, turn := range turns {
			// Keys sort by ID, so a caller-supplied ID would break append order
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			turn.Id = core.ID(id)

			key := makeTurnKey(turn.SessionId, turn.Id)
			if err := tx.Set(key, storage.MarshalTurn(turn)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return turns, nil
}

// History returns every turn of a session, oldest first.
func (r *SessionRepository) History(ctx context.Context, sessionID string) ([]*core.ConversationTurn, error) {
	var results []*core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialTurnKey(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			turn, err := readTurnItem(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, turn)
		}
		return nil
	}, false)
	return results, err
}

// RecentTurns returns up to limit of the most recent turns, oldest first.
func (r *SessionRepository) RecentTurns(ctx context.Context, sessionID string, limit int) ([]*core.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.ConversationTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent turns first
		prefix := makePartialTurnKey(sessionID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible key of this session
		startKey := append(slices.Clone(prefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			turn, err := readTurnItem(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, turn)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Reverse(results)
	return results, nil
}

// DeleteSession removes all turns of a session.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialTurnKey(sessionID)
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SessionIDs lists every session with stored turns.
func (r *SessionRepository) SessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(turnPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			sessionID, ok := sessionFromTurnKey(iter.Item().Key())
			if !ok {
				continue
			}
			if len(ids) == 0 || ids[len(ids)-1] != sessionID {
				ids = append(ids, sessionID)
			}
		}
		return nil
	}, false)
	return ids, err
}

// readTurnItem decodes the turn stored in an iterator item.
func readTurnItem(item *badger.Item) (*core.ConversationTurn, error) {
	var turn *core.ConversationTurn
	err := item.Value(func(val []byte) error {
		var err error
		turn, err = storage.UnmarshalTurn(val)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		return nil
	})
	return turn, err
}
