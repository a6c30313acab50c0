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

// Package reembed refreshes the stored vectors of existing content units,
// typically after switching embedding models.
//
// Units are read pool by pool in batches, embedded again with retry and
// exponential backoff, and written back. Pool indices must be rebuilt
// afterwards; the engine does this when it drives a reembed.
package reembed
