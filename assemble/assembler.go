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

package assemble

import (
	"log/slog"
	"slices"

	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/telemetry"
)

// Assembler packs ranked results and a conversation window into a payload.
type Assembler struct {
	maxContextLength int
	hardCap          int
	metrics          *telemetry.Metrics
	logger           *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithMetrics records payload shapes. A nil value disables recording.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(a *Assembler) error {
		a.metrics = metrics
		return nil
	}
}

// New creates an assembler with the budgets from cfg.
func New(cfg *config.Config, opts ...Option) (*Assembler, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if cfg.MaxContextLength <= 0 || cfg.HardCap < cfg.MaxContextLength {
		return nil, ErrInvalidBudget
	}

	a := &Assembler{
		maxContextLength: cfg.MaxContextLength,
		hardCap:          cfg.HardCap,
		logger:           slog.Default().With("component", "assembler"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Assemble builds the payload for one query. Results must already be
// ranked and deduplicated. Zero results yield a payload with no passages
// whose NoMatch reports true.
func (a *Assembler) Assemble(sessionID, query string, results []*core.RankedResult, window []core.ConversationTurn) *core.ContextPayload {
	payload := &core.ContextPayload{
		SessionId: sessionID,
		Query:     query,
		Passages:  []core.Passage{},
		Citations: []string{},
	}

	used := 0
	for _, result := range results {
		length := core.CharCount(result.Unit.Text)
		if used+length > a.maxContextLength {
			break
		}
		used += length
		payload.Passages = append(payload.Passages, core.Passage{
			UnitId:  result.Unit.Id,
			Text:    result.Unit.Text,
			Locator: result.Unit.Locator,
			Origin:  result.Unit.Origin,
			Score:   result.AdjustedScore,
		})
		if !slices.Contains(payload.Citations, result.Unit.Locator) {
			payload.Citations = append(payload.Citations, result.Unit.Locator)
		}
	}
	excluded := len(results) - len(payload.Passages)

	payload.Window, _ = a.TrimWindow(window)
	dropped := len(window) - len(payload.Window)

	if excluded > 0 || dropped > 0 {
		a.logger.Debug("context budget applied",
			"session", sessionID,
			"passages", len(payload.Passages),
			"excluded", excluded,
			"turns_dropped", dropped)
	}
	a.metrics.RecordPayload(payload, excluded, dropped)

	return payload
}

// TrimWindow returns a copy of window without its oldest turns, as many as
// needed for the serialized window plus MaxContextLength to fit in HardCap.
// The second value is the serialized length of the returned window.
func (a *Assembler) TrimWindow(window []core.ConversationTurn) ([]core.ConversationTurn, int) {
	trimmed := slices.Clone(window)
	if trimmed == nil {
		trimmed = []core.ConversationTurn{}
	}

	length := core.CharCount(core.SerializeTurns(trimmed))
	for len(trimmed) > 0 && length+a.maxContextLength > a.hardCap {
		trimmed = trimmed[1:]
		length = core.CharCount(core.SerializeTurns(trimmed))
	}
	return trimmed, length
}
