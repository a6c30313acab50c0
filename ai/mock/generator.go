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

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// NoMatchAnswer is the default reply when a payload carries no passages.
const NoMatchAnswer = "The available documentation does not cover this question."

var _ ai.Generator = (*MockGenerator)(nil)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, payload *core.ContextPayload) (*ai.Answer, error)

	mu        sync.Mutex
	callCount int
	payloads  []*core.ContextPayload
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the payload and answers from its first passage.
func (m *MockGenerator) Generate(ctx context.Context, payload *core.ContextPayload) (*ai.Answer, error) {
	m.mu.Lock()
	m.callCount++
	m.payloads = append(m.payloads, payload)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, payload)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if payload.NoMatch() {
		return &ai.Answer{Text: NoMatchAnswer}, nil
	}
	text := payload.Passages[0].Text + " [1]"
	return &ai.Answer{Text: text, Citations: ai.CitedUnits(text, payload)}, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPayload returns the most recent payload, or nil.
func (m *MockGenerator) LastPayload() *core.ContextPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return nil
	}
	return m.payloads[len(m.payloads)-1]
}

// Reset clears recorded calls and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.payloads = nil
	m.GenerateFunc = nil
}
