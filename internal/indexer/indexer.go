// Package indexer turns tabular records into a searchable knowledge-base generation:
// chunks, an embedded vector snapshot and a keyword lookup index.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kura/internal/keyword"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
	"go.uber.org/zap"
)

// Generation is one fully built knowledge base. All fields are read-only after Build.
type Generation struct {
	Snapshot *vector.Snapshot
	Lookup   *keyword.ChunkIndex
	Source   string
	Rows     int
}

// ID returns the snapshot build id.
func (g *Generation) ID() string {
	if g == nil {
		return ""
	}
	return g.Snapshot.ID()
}

// BuiltAt returns when the snapshot was built.
func (g *Generation) BuiltAt() time.Time {
	if g == nil {
		return time.Time{}
	}
	return g.Snapshot.BuiltAt()
}

// Indexer builds generations from records.
type Indexer struct {
	chunker  *Chunker
	embedder vector.BatchEmbedder
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer that splits rendered rows into chunks of at most chunkSize
// runes and embeds them with embedder.
func NewIndexer(embedder vector.BatchEmbedder, chunkSize int, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		chunker:  NewChunker(chunkSize),
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build chunks records, embeds every chunk in one batch and indexes the chunk texts.
// It returns vector.ErrEmptyIndex for zero records and vector.ErrEmbeddingMismatch when the
// embedder output is inconsistent. Nothing is shared with previously built generations.
func (idx *Indexer) Build(ctx context.Context, records []models.Record, source string) (*Generation, error) {
	started := time.Now()
	chunks := idx.chunker.Chunk(records)
	idx.logger.Debug("chunked records",
		zap.Int("records", len(records)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", idx.chunker.ChunkSize()))

	snapshot, err := vector.Build(ctx, chunks, idx.embedder)
	if err != nil {
		return nil, err
	}
	lookup, err := keyword.BuildChunkIndex(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword index: %w", err)
	}

	idx.logger.Info("knowledge base built",
		zap.String("build_id", snapshot.ID()),
		zap.String("source", source),
		zap.Int("rows", len(records)),
		zap.Int("chunks", snapshot.Len()),
		zap.Int("dimension", snapshot.Dimension()),
		zap.Duration("took", time.Since(started)))

	return &Generation{
		Snapshot: snapshot,
		Lookup:   lookup,
		Source:   source,
		Rows:     len(records),
	}, nil
}
