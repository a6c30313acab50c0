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

package reembed

import (
	"context"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultBatchSize is the default number of units handed to each batch
	DefaultBatchSize = 100
)

// UnitIterator walks the units of a pool in batches.
type UnitIterator struct {
	source    storage.UnitSource
	batchSize int
}

// NewUnitIterator creates a new unit iterator.
// A non-positive batchSize selects DefaultBatchSize.
func NewUnitIterator(source storage.UnitSource, batchSize int) *UnitIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &UnitIterator{
		source:    source,
		batchSize: batchSize,
	}
}

// ForEach calls fn with consecutive batches of the pool's units.
// Iteration stops on the first error from the source or fn, or when ctx is done.
func (it *UnitIterator) ForEach(ctx context.Context, pool core.Pool, fn func([]*core.ContentUnit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]*core.ContentUnit, 0, it.batchSize)
	for unit, err := range it.source.Units(ctx, pool) {
		if err != nil {
			return err
		}
		batch = append(batch, unit)
		if len(batch) < it.batchSize {
			continue
		}

		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.ContentUnit, 0, it.batchSize)

		// Check context after each batch
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
