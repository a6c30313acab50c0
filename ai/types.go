package ai

import (
	"regexp"
	"slices"
	"strconv"

	"github.com/poiesic/docent/core"
)

// Answer is a generated reply and the content units it relied on.
type Answer struct {
	Text      string
	Citations []core.ID
}

// sourceRef matches numbered source references such as [2].
var sourceRef = regexp.MustCompile(`\[(\d+)\]`)

// CitedUnits maps the numbered source references in an answer back to the
// payload's passages, in order of first mention. An answer that references
// nothing is taken to rely on every included passage.
func CitedUnits(text string, payload *core.ContextPayload) []core.ID {
	if payload == nil || payload.NoMatch() {
		return nil
	}

	var cited []core.ID
	for _, match := range sourceRef.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(payload.Passages) {
			continue
		}
		id := payload.Passages[n-1].UnitId
		if !slices.Contains(cited, id) {
			cited = append(cited, id)
		}
	}

	if len(cited) == 0 {
		return payload.UnitIDs()
	}
	return cited
}
