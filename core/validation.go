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

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateContentUnit validates a ContentUnit according to domain rules.
//
// Validation rules:
//   - Text must not be empty and at most MaxUnitTextLength characters
//   - Origin must be valid
//   - Locator must not be empty
//   - Vector must not be empty
//   - Quality, when present, must lie in [0,1]
//
// NOT validated:
//   - Vector dimension (checked by the owning index)
//   - ID (0 is replaced by a content-derived ID on insert)
func ValidateContentUnit(unit *ContentUnit) error {
	if unit == nil {
		return fmt.Errorf("%w: unit is nil", ErrInvalidContentUnit)
	}

	if strings.TrimSpace(unit.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, ErrEmptyContent)
	}

	if CharCount(unit.Text) > MaxUnitTextLength {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, ErrContentTooLong)
	}

	if err := ValidateOrigin(unit.Origin); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, err)
	}

	if strings.TrimSpace(unit.Locator) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, ErrEmptyLocator)
	}

	if len(unit.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, ErrEmptyVector)
	}

	if unit.Quality != nil && (*unit.Quality < 0 || *unit.Quality > 1) {
		return fmt.Errorf("%w: %w", ErrInvalidContentUnit, ErrInvalidQuality)
	}

	return nil
}

// ValidateTurn validates a ConversationTurn according to domain rules.
//
// Validation rules:
//   - SessionId must not be empty
//   - Text must not be empty
//   - Role must be valid (User or Assistant)
//   - Timestamp must not be in the future
func ValidateTurn(turn *ConversationTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}

	if turn.SessionId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptySessionID)
	}

	if turn.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}

	if err := ValidateRole(turn.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}

	if !IsValidTimestamp(turn.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateOrigin validates that an Origin has a known value.
func ValidateOrigin(origin Origin) error {
	if _, ok := originNames[origin]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidOrigin, origin)
	}
	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

// CharCount returns the length of s in characters, the unit all budgets use.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
