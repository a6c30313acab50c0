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

// Package assemble builds the bounded context payload handed to generation.
//
// Passages are taken whole, in rank order, until the next one would push the
// total passage text past MaxContextLength characters. The conversation
// window is copied and trimmed from its oldest turn until the serialized
// window plus MaxContextLength fits under HardCap. Stored sessions are never
// modified.
package assemble
