// Package index holds the in-memory semantic index of one content pool.
//
// An Index answers exact L2 nearest-neighbour queries over the embedding
// vectors of its units. The first vector inserted fixes the pool's
// dimension. Inserting a vector of any other length faults the pool: from
// then on Query fails with an error wrapping core.ErrDimensionMismatch
// until a Rebuild succeeds.
//
// Rebuild enumerates a storage.UnitSource, builds a fresh generation
// without holding the lock and swaps it in, so concurrent queries see
// either the old or the new generation and never a partial one.
package index
