package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
)

// ErrRetrievalFailure wraps query-time embedding failures.
var ErrRetrievalFailure = errors.New("local retrieval failed")

// SnapshotProvider returns the currently published snapshot, or nil when none is published.
type SnapshotProvider interface {
	Current() *vector.Snapshot
}

// Retriever embeds a query and searches the current snapshot.
type Retriever struct {
	snapshots SnapshotProvider
	embedder  vector.BatchEmbedder
	timeout   time.Duration
}

// NewRetriever creates a retriever. A positive timeout bounds each query embedding call.
func NewRetriever(snapshots SnapshotProvider, embedder vector.BatchEmbedder, timeout time.Duration) *Retriever {
	return &Retriever{snapshots: snapshots, embedder: embedder, timeout: timeout}
}

// Retrieve returns up to k chunks nearest to query. The snapshot is loaded once so a concurrent
// reload can never mix entries from two generations. Errors wrap vector.ErrEmptyIndex,
// vector.ErrEmbeddingMismatch or ErrRetrievalFailure.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.Retrieved, error) {
	snapshot := r.snapshots.Current()
	if snapshot.Len() == 0 {
		return nil, vector.ErrEmptyIndex
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrievalFailure, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one query", vector.ErrEmbeddingMismatch, len(vectors))
	}

	hits, err := snapshot.Search(ctx, vectors[0], k)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyIndex) || errors.Is(err, vector.ErrEmbeddingMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}
	return snapshot.Retrieved(hits), nil
}
