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

// Package memory keeps the recent turns of each conversation in memory.
//
// A Window is a fixed-capacity ring of turns. A Session wraps a Window and
// its persisted history. The Registry hands out exclusive Leases on sessions
// so that at most one query cycle runs per session at a time; a second
// Acquire of a held session fails with core.ErrSessionBusy.
//
// Turns reach a session only through Lease.Commit, which persists them
// before appending them to the window. A failed or abandoned cycle leaves
// both the window and the stored history untouched.
package memory
