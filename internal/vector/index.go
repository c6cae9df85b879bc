// Package vector provides an immutable, exactly searched vector index snapshot.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrEmptyIndex is returned when searching with no published snapshot or zero vectors.
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrEmbeddingMismatch is returned when embedding counts or dimensions are inconsistent.
	ErrEmbeddingMismatch = errors.New("embedding mismatch")
)

// BatchEmbedder embeds many texts in one call, returning vectors in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Hit is a single search result: the entry position in the snapshot and its distance.
type Hit struct {
	Index    int
	Distance float32 // squared L2, lower is closer
}
