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

// Package ingestion turns unembedded passages into stored, indexed content units.
//
// The Pipeline type manages the ingestion workflow, including:
//   - Splitting passages longer than core.MaxUnitTextLength
//   - Generating embeddings in batches on a worker pool
//   - Adding the units to storage
//   - Inserting them into their pool's index so they are searchable at once
//
// Ingest blocks until every batch has been processed. A failed batch does not
// stop the others; its error is returned joined with any other failures.
package ingestion
