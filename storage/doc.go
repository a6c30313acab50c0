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

// Package storage provides the storage abstraction layer for docent.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval logic. The index, the session registry and the ingestion
// pipeline only see these interfaces.
//
// # Architecture
//
//   - UnitRepository: content units of both pools, plus UnitSource for rebuilds
//   - SessionRepository: per-session conversation turns, oldest first
//   - ManifestRepository: which units each pool index was last built from
//
// The BadgerDB implementation lives in the badger subpackage:
//
//	repos, err := badger.OpenRepositories("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
