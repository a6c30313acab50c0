package openai

import "errors"

var (
	// ErrEmptyEmbedding is returned when the service answers without a usable vector.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")

	// ErrEmptyAnswer is returned when the model produces no choices.
	ErrEmptyAnswer = errors.New("model returned no answer")
)
