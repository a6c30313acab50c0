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

package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MaxUnitTextLength is the longest passage a content unit may carry, in characters.
const MaxUnitTextLength = 5000

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// String renders the ID in hex, the form used in citations and logs.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseID parses the hex form produced by String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Origin identifies where a content unit came from.
type Origin int

const (
	// OriginLocalDocument is a curated file from the documents directory.
	OriginLocalDocument Origin = iota + 1
	// OriginWebForum is a scraped forum thread.
	OriginWebForum
	// OriginWebDocumentation is a scraped vendor documentation page.
	OriginWebDocumentation
	// OriginWebTutorial is a scraped tutorial or blog post.
	OriginWebTutorial
)

var originNames = map[Origin]string{
	OriginLocalDocument:    "local_document",
	OriginWebForum:         "web_forum",
	OriginWebDocumentation: "web_documentation",
	OriginWebTutorial:      "web_tutorial",
}

func (o Origin) String() string {
	if name, ok := originNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOrigin converts the wire name of an origin back to its value.
func ParseOrigin(name string) (Origin, error) {
	for o, n := range originNames {
		if n == name {
			return o, nil
		}
	}
	return 0, ErrInvalidOrigin
}

// Pool returns the partition units of this origin are indexed in.
func (o Origin) Pool() Pool {
	if o == OriginLocalDocument {
		return PoolDocuments
	}
	return PoolWeb
}

// Pool is one of the two index partitions.
type Pool int

const (
	// PoolDocuments holds curated local documents.
	PoolDocuments Pool = iota + 1
	// PoolWeb holds scraped web content.
	PoolWeb
)

// Pools lists every pool in tie-break order.
var Pools = []Pool{PoolDocuments, PoolWeb}

func (p Pool) String() string {
	switch p {
	case PoolDocuments:
		return "documents"
	case PoolWeb:
		return "web"
	default:
		return "unknown"
	}
}

// ParsePool converts a pool name back to its value.
func ParsePool(name string) (Pool, error) {
	switch name {
	case "documents":
		return PoolDocuments, nil
	case "web":
		return PoolWeb, nil
	default:
		return 0, ErrInvalidPool
	}
}

// ContentUnit is one immutable, indexed passage with attribution.
type ContentUnit struct {
	Id         ID
	Text       string
	Origin     Origin
	Locator    string    // File name + page/section, or URL
	Vector     []float32 // Precomputed embedding
	Recency    time.Time // Optional; zero when unknown
	Quality    *float32  // Optional quality score in [0,1]
	InsertedAt time.Time
}

// Pool returns the partition the unit belongs to.
func (u *ContentUnit) Pool() Pool {
	return u.Origin.Pool()
}

// UnitID derives the stable ID of a passage from its attribution and text.
func UnitID(origin Origin, locator, text string) ID {
	return IDFromContent(origin.String() + "|" + locator + "|" + text)
}

// RankedResult is a retrieval candidate scored for one query.
type RankedResult struct {
	Unit          *ContentUnit
	Pool          Pool
	RawDistance   float32
	PoolWeight    float32
	AdjustedScore float32
	Rank          int
}

// RelevanceLevel returns a human-readable label for the adjusted score.
func (r *RankedResult) RelevanceLevel() string {
	switch {
	case r.AdjustedScore >= 0.9:
		return "Very High"
	case r.AdjustedScore >= 0.8:
		return "High"
	case r.AdjustedScore >= 0.7:
		return "Medium"
	case r.AdjustedScore >= 0.5:
		return "Low"
	default:
		return "Very Low"
	}
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser represents the person asking questions.
	RoleUser Role = iota + 1
	// RoleAssistant represents the generated answer.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ConversationTurn is a single message in a session.
type ConversationTurn struct {
	Id         ID
	SessionId  string
	Role       Role
	Text       string
	Timestamp  time.Time
	Citations  []ID // Content units surfaced for (or used by) this turn
	TokenCount int
	Metadata   map[string]string
}

// Passage is one content unit as handed to generation.
type Passage struct {
	UnitId  ID
	Text    string
	Locator string
	Origin  Origin
	Score   float32
}

// ContextPayload is the bounded bundle handed to the generation collaborator.
type ContextPayload struct {
	SessionId string
	Query     string
	Passages  []Passage
	Citations []string // Locators, deduplicated, in passage order
	Window    []ConversationTurn
}

// NoMatch reports whether retrieval found nothing worth citing.
func (p *ContextPayload) NoMatch() bool {
	return len(p.Passages) == 0
}

// PassageLength returns the total character count of all passages.
func (p *ContextPayload) PassageLength() int {
	total := 0
	for _, passage := range p.Passages {
		total += CharCount(passage.Text)
	}
	return total
}

// UnitIDs returns the IDs of the included passages, in order.
func (p *ContextPayload) UnitIDs() []ID {
	ids := make([]ID, len(p.Passages))
	for i, passage := range p.Passages {
		ids[i] = passage.UnitId
	}
	return ids
}

// IndexManifest records the set of units a pool index was built from.
type IndexManifest struct {
	Pool      Pool
	Dimension int
	UnitIds   []ID // Sorted ascending
	UpdatedAt time.Time
}
