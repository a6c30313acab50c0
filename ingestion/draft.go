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

package ingestion

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/poiesic/docent/core"
)

// Draft is a passage awaiting an embedding.
type Draft struct {
	Text    string     `json:"text"`
	Origin  string     `json:"origin"`
	Locator string     `json:"locator"`
	Recency *time.Time `json:"recency,omitempty"`
	Quality *float32   `json:"quality,omitempty"`
}

// unit converts the draft to a content unit without a vector.
func (d Draft) unit() (*core.ContentUnit, error) {
	origin, err := core.ParseOrigin(d.Origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, d.Origin)
	}
	unit := &core.ContentUnit{
		Text:    strings.TrimSpace(d.Text),
		Origin:  origin,
		Locator: d.Locator,
		Quality: d.Quality,
	}
	if d.Recency != nil {
		unit.Recency = d.Recency.UTC()
	}
	unit.Id = core.UnitID(unit.Origin, unit.Locator, unit.Text)
	return unit, nil
}

// Split breaks drafts whose text exceeds limit characters into parts cut at
// whitespace. Each part's locator gets a " (part n)" suffix.
func Split(drafts []Draft, limit int) []Draft {
	out := make([]Draft, 0, len(drafts))
	for _, draft := range drafts {
		parts := splitText(draft.Text, limit)
		if len(parts) == 1 {
			out = append(out, draft)
			continue
		}
		for n, part := range parts {
			piece := draft
			piece.Text = part
			piece.Locator = fmt.Sprintf("%s (part %d)", draft.Locator, n+1)
			out = append(out, piece)
		}
	}
	return out
}

func splitText(text string, limit int) []string {
	runes := []rune(strings.TrimSpace(text))
	if limit <= 0 || len(runes) <= limit {
		return []string{string(runes)}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		// Back up to the last whitespace in the second half of the window
		for n := limit; n > limit/2; n-- {
			if unicode.IsSpace(runes[n]) {
				cut = n
				break
			}
		}
		parts = append(parts, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
