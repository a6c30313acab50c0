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

import "errors"

// Retrieval errors shared across packages
var (
	// ErrDimensionMismatch indicates an embedding whose length differs from the pool's dimension.
	// A pool that hit this during indexing refuses queries until it is rebuilt.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRetrievalTimeout indicates the embedding or index call exceeded its budget.
	ErrRetrievalTimeout = errors.New("retrieval timed out")

	// ErrSessionBusy indicates another query already owns the session.
	ErrSessionBusy = errors.New("session busy")
)

// Domain validation errors
var (
	// ErrInvalidContentUnit indicates a ContentUnit failed validation.
	ErrInvalidContentUnit = errors.New("invalid content unit")

	// ErrInvalidTurn indicates a ConversationTurn failed validation.
	ErrInvalidTurn = errors.New("invalid conversation turn")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates the Text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooLong indicates a passage longer than MaxUnitTextLength.
	ErrContentTooLong = errors.New("content exceeds maximum length")

	// ErrEmptyLocator indicates a content unit without attribution.
	ErrEmptyLocator = errors.New("locator cannot be empty")

	// ErrEmptyVector indicates a content unit without an embedding.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrInvalidOrigin indicates an unknown Origin value.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidPool indicates an unknown Pool value.
	ErrInvalidPool = errors.New("invalid pool")

	// ErrInvalidQuality indicates a quality score outside [0,1].
	ErrInvalidQuality = errors.New("quality score must be between 0 and 1")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptySessionID indicates a turn that belongs to no session.
	ErrEmptySessionID = errors.New("session id cannot be empty")
)
