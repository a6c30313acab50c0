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

// Package search turns a query into ranked, deduplicated content units.
//
// The Retriever embeds the query once, expanded with the most recent user
// turns of the conversation, and asks every pool index for its nearest
// neighbours in parallel. Candidates are scored with
//
//	AdjustedScore = PoolWeight * 1/(1+RawDistance)
//
// merged, ordered and cut at the relevance threshold. The Deduplicator then
// collapses results that share a locator or whose text overlaps heavily.
package search
