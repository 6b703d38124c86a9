// Package embed turns text into dense vectors.
//
// Two embedders are provided: OpenAI calls an OpenAI-compatible embeddings
// API, and Hash is a deterministic local embedder based on feature hashing
// that needs no network access.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// Embedder converts text into float32 vectors.
type Embedder interface {
	// Embed returns the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of the produced vectors.
	Dimension() int
}

var ErrEmptyInput = errors.New("embed: empty input")

// ErrUnexpectedDimension is returned when a provider answers with vectors
// of a different length than configured.
type ErrUnexpectedDimension struct {
	Expected int
	Actual   int
}

func (e *ErrUnexpectedDimension) Error() string {
	return fmt.Sprintf("embed: expected %d dimensions, got %d", e.Expected, e.Actual)
}
