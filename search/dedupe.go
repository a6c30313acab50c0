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

package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/docent/core"
)

const (
	// DefaultDedupeThreshold is the Jaccard similarity at which two passages are duplicates.
	DefaultDedupeThreshold = 0.8
	// DefaultShingleSize is the number of words per shingle.
	DefaultShingleSize = 3
)

// Deduplicator collapses near-duplicate results.
// Two results are duplicates when they share a locator or when the Jaccard
// similarity of their word shingles reaches the threshold.
type Deduplicator struct {
	threshold   float64
	shingleSize int
}

// NewDeduplicator creates a deduplicator. Out-of-range arguments fall back to defaults.
func NewDeduplicator(threshold float64, shingleSize int) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDedupeThreshold
	}
	if shingleSize <= 0 {
		shingleSize = DefaultShingleSize
	}
	return &Deduplicator{threshold: threshold, shingleSize: shingleSize}
}

// Dedupe keeps the highest scoring result of each duplicate group, earlier
// results winning equal scores. Survivors keep their input order and are
// re-ranked from 1. The input is not modified.
func (d *Deduplicator) Dedupe(results []*core.RankedResult) []*core.RankedResult {
	if len(results) == 0 {
		return []*core.RankedResult{}
	}

	sets := make([]map[string]struct{}, len(results))
	for n, r := range results {
		sets[n] = shingles(r.Unit.Text, d.shingleSize)
	}

	order := make([]int, len(results))
	for n := range order {
		order[n] = n
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(results[b].AdjustedScore, results[a].AdjustedScore)
	})

	keep := make([]bool, len(results))
	var kept []int
	for _, candidate := range order {
		duplicate := false
		for _, k := range kept {
			if d.duplicates(results[candidate], results[k], sets[candidate], sets[k]) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			keep[candidate] = true
			kept = append(kept, candidate)
		}
	}

	survivors := make([]*core.RankedResult, 0, len(kept))
	for n, r := range results {
		if !keep[n] {
			continue
		}
		copied := *r
		copied.Rank = len(survivors) + 1
		survivors = append(survivors, &copied)
	}
	return survivors
}

// Similarity returns the shingle Jaccard similarity of two texts.
// Texts made only of stop words score 1 when their normalized forms match
// and 0 otherwise.
func (d *Deduplicator) Similarity(a, b string) float64 {
	return similarity(a, b, shingles(a, d.shingleSize), shingles(b, d.shingleSize))
}

func (d *Deduplicator) duplicates(a, b *core.RankedResult, sa, sb map[string]struct{}) bool {
	if a.Unit.Locator == b.Unit.Locator {
		return true
	}
	return similarity(a.Unit.Text, b.Unit.Text, sa, sb) >= d.threshold
}

func similarity(a, b string, sa, sb map[string]struct{}) float64 {
	if len(sa) == 0 && len(sb) == 0 {
		if normalizeText(a) == normalizeText(b) {
			return 1
		}
		return 0
	}
	return jaccard(sa, sb)
}
