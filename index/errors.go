package index

import "errors"

var (
	// ErrPoolFaulted is returned by Query and Insert while the pool needs a rebuild.
	ErrPoolFaulted = errors.New("pool index faulted")

	// ErrWrongPool is returned when a unit belongs to a different pool than the index.
	ErrWrongPool = errors.New("unit belongs to another pool")

	// ErrUnitSourceRequired is returned when Rebuild is called without a source.
	ErrUnitSourceRequired = errors.New("unit source required")
)
