package badger

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// errStopIteration ends a Units scan when the consumer stops early.
var errStopIteration = errors.New("iteration stopped")

// UnitRepository implements storage.UnitRepository for BadgerDB.
type UnitRepository struct {
	backend *Backend
}

var _ storage.UnitRepository = (*UnitRepository)(nil)

// NewUnitRepository creates a new UnitRepository.
func NewUnitRepository(backend *Backend) *UnitRepository {
	return &UnitRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *UnitRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *UnitRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddUnits validates and stores content units.
func (r *UnitRepository) AddUnits(ctx context.Context, units ...*core.ContentUnit) ([]*core.ContentUnit, error) {
	for _, unit := range units {
		if err := core.ValidateContentUnit(unit); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, unit := range units {
			if unit.Id == 0 {
				unit.Id = core.UnitID(unit.Origin, unit.Locator, unit.Text)
			}
			if unit.InsertedAt.IsZero() {
				unit.InsertedAt = time.Now().UTC()
			}

			// A re-ingested ID may have moved pools
			old, err := readUnit(tx, unit.Id)
			if err != nil {
				return err
			}
			if old != nil && old.Pool() != unit.Pool() {
				if err := tx.Delete(makeUnitPoolKey(old.Pool(), old.Id)); err != nil {
					return err
				}
			}

			if err := writeUnit(tx, unit); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return units, nil
}

// UpdateUnits replaces existing units.
func (r *UnitRepository) UpdateUnits(ctx context.Context, units ...*core.ContentUnit) ([]*core.ContentUnit, error) {
	for _, unit := range units {
		if err := core.ValidateContentUnit(unit); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, unit := range units {
			old, err := readUnit(tx, unit.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			if old.Pool() != unit.Pool() {
				if err := tx.Delete(makeUnitPoolKey(old.Pool(), old.Id)); err != nil {
					return err
				}
			}
			if unit.InsertedAt.IsZero() {
				unit.InsertedAt = old.InsertedAt
			}
			if err := writeUnit(tx, unit); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return units, nil
}

// DeleteUnits removes units by their IDs.
func (r *UnitRepository) DeleteUnits(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			unit, err := readUnit(tx, id)
			if err != nil {
				return err
			}
			if unit == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeUnitPoolKey(unit.Pool(), id)); err != nil {
				return err
			}
			if err := tx.Delete(makeUnitKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetUnit retrieves a single unit by ID.
func (r *UnitRepository) GetUnit(ctx context.Context, id core.ID) (*core.ContentUnit, error) {
	var result *core.ContentUnit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readUnit(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetUnits retrieves multiple units by their IDs.
func (r *UnitRepository) GetUnits(ctx context.Context, ids ...core.ID) ([]*core.ContentUnit, error) {
	var result []*core.ContentUnit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			unit, err := readUnit(tx, id)
			if err != nil {
				return err
			}
			if unit != nil {
				result = append(result, unit)
			}
		}
		return nil
	}, false)
	return result, err
}

// CountUnits returns the number of stored units in a pool.
func (r *UnitRepository) CountUnits(ctx context.Context, pool core.Pool) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialUnitPoolKey(pool)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Units iterates a pool's units in ascending ID order inside one read transaction.
func (r *UnitRepository) Units(ctx context.Context, pool core.Pool) iter.Seq2[*core.ContentUnit, error] {
	return func(yield func(*core.ContentUnit, error) bool) {
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = makePartialUnitPoolKey(pool)
			iter := tx.NewIterator(opts)
			defer iter.Close()

			for iter.Rewind(); iter.Valid(); iter.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				var unitID core.ID
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					unitID, err = storage.UnmarshalID(val)
					return err
				}); err != nil {
					return err
				}

				unit, err := readUnit(tx, unitID)
				if err != nil {
					return err
				}
				if unit == nil {
					r.backend.logger.Warn("pool index points at missing unit", "pool", pool, "id", unitID)
					continue
				}
				if !yield(unit, nil) {
					return errStopIteration
				}
			}
			return nil
		}, false)

		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

// Helper methods

// readUnit reads a content unit from the transaction.
func readUnit(tx *badger.Txn, id core.ID) (*core.ContentUnit, error) {
	return get(tx, makeUnitKey(id), storage.UnmarshalContentUnit)
}

// writeUnit stores a unit and its pool index entry.
func writeUnit(tx *badger.Txn, unit *core.ContentUnit) error {
	if err := tx.Set(makeUnitKey(unit.Id), storage.MarshalContentUnit(unit)); err != nil {
		return err
	}
	return tx.Set(makeUnitPoolKey(unit.Pool(), unit.Id), storage.MarshalID(unit.Id))
}
