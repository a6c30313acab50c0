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

package docent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/memory"
)

// Exchange is one query cycle holding its session. It must be finished
// with Complete or Abort; until then other queries on the session fail
// with core.ErrSessionBusy.
type Exchange struct {
	// Payload is the assembled context for generation.
	Payload *core.ContextPayload
	// Results are the ranked candidates after deduplication.
	Results []*core.RankedResult

	lease    *memory.Lease
	finished atomic.Bool
}

// Prepare runs retrieval for query in the given session and assembles the
// context payload. A query that matches nothing still yields a payload,
// one with no passages.
func (e *Engine) Prepare(ctx context.Context, sessionID, query string) (*Exchange, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyContent
	}

	lease, err := e.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	window := lease.Window()
	results, err := e.retriever.Retrieve(ctx, query, window)
	if err != nil {
		lease.Release()
		return nil, err
	}

	deduped := e.deduper.Dedupe(results)
	e.metrics.RecordDedupe(len(results), len(deduped))

	return &Exchange{
		Payload: e.assembler.Assemble(sessionID, query, deduped, window),
		Results: deduped,
		lease:   lease,
	}, nil
}

// Complete records the user turn and the answer, then frees the session.
// The user turn cites every unit in the payload; the answer cites
// usedCitations, or the units its numbered references point at when
// usedCitations is nil.
func (x *Exchange) Complete(ctx context.Context, answer string, usedCitations []core.ID) error {
	if !x.finished.CompareAndSwap(false, true) {
		return ErrExchangeClosed
	}
	defer x.lease.Release()

	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}
	if usedCitations == nil {
		usedCitations = ai.CitedUnits(answer, x.Payload)
	}

	user := &core.ConversationTurn{
		Role:      core.RoleUser,
		Text:      x.Payload.Query,
		Citations: x.Payload.UnitIDs(),
	}
	assistant := &core.ConversationTurn{
		Role:      core.RoleAssistant,
		Text:      answer,
		Citations: usedCitations,
	}
	if x.Payload.NoMatch() {
		assistant.Metadata = map[string]string{"no_match": "true"}
	}
	return x.lease.Commit(ctx, user, assistant)
}

// Abort frees the session without recording anything.
func (x *Exchange) Abort() {
	if x.finished.CompareAndSwap(false, true) {
		x.lease.Release()
	}
}

// Reply is a generated answer with its attribution.
type Reply struct {
	Text      string
	Citations []core.ID
	Sources   []string // Locators of the cited units, in citation order
	NoMatch   bool
	Payload   *core.ContextPayload
}

// Ask answers query within a session: retrieval, assembly, generation and
// memory update. On any failure nothing is added to the session.
func (e *Engine) Ask(ctx context.Context, sessionID, query string) (*Reply, error) {
	x, err := e.Prepare(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()

	answer, err := e.provider.Generator().Generate(genCtx, x.Payload)
	if err != nil {
		x.Abort()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: generation exceeded %s", core.ErrRetrievalTimeout, e.cfg.GenerateTimeout)
		}
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	cited := answer.Citations
	if cited == nil {
		cited = ai.CitedUnits(answer.Text, x.Payload)
	}
	if err := x.Complete(ctx, answer.Text, cited); err != nil {
		return nil, err
	}

	return &Reply{
		Text:      answer.Text,
		Citations: cited,
		Sources:   sources(x.Payload, cited),
		NoMatch:   x.Payload.NoMatch(),
		Payload:   x.Payload,
	}, nil
}

// sources resolves cited unit IDs to distinct locators.
func sources(payload *core.ContextPayload, cited []core.ID) []string {
	locators := make(map[core.ID]string, len(payload.Passages))
	for _, passage := range payload.Passages {
		locators[passage.UnitId] = passage.Locator
	}

	var out []string
	seen := make(map[string]struct{})
	for _, id := range cited {
		locator, ok := locators[id]
		if !ok {
			continue
		}
		if _, dup := seen[locator]; dup {
			continue
		}
		seen[locator] = struct{}{}
		out = append(out, locator)
	}
	return out
}
