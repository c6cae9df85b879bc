package vector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kura/internal/models"
)

// Snapshot holds aligned embeddings, texts, and metadata. Index i refers to the same
// chunk in all three. A snapshot is never mutated after Build returns it.
type Snapshot struct {
	id         string
	dimension  int
	embeddings [][]float32
	texts      []string
	metadata   []models.ChunkMetadata
	builtAt    time.Time
}

// Build embeds all chunk texts in a single batch and returns a new snapshot.
// It fails with ErrEmptyIndex for zero chunks and ErrEmbeddingMismatch when the embedder
// returns the wrong count or vectors of differing dimension.
func Build(ctx context.Context, chunks []models.Chunk, embedder BatchEmbedder) (*Snapshot, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build snapshot: no chunks: %w", ErrEmptyIndex)
	}
	texts := make([]string, len(chunks))
	metadata := make([]models.ChunkMetadata, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
		metadata[i] = ch.Metadata
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbeddingMismatch, len(vectors), len(chunks))
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: zero-dimension embedding", ErrEmbeddingMismatch)
	}
	embeddings := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrEmbeddingMismatch, i, len(vec), dimension)
		}
		cp := make([]float32, dimension)
		copy(cp, vec)
		embeddings[i] = cp
	}
	return &Snapshot{
		id:         uuid.New().String(),
		dimension:  dimension,
		embeddings: embeddings,
		texts:      texts,
		metadata:   metadata,
		builtAt:    time.Now().UTC(),
	}, nil
}

// Search returns up to k entries nearest to query by squared Euclidean distance, in
// ascending distance order. Equal distances keep insertion order.
func (s *Snapshot) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if s.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrEmbeddingMismatch, len(query), s.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	hits := make([]Hit, len(s.embeddings))
	for i, vec := range s.embeddings {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits[i] = Hit{Index: i, Distance: SquaredL2(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k:k], nil
}

// Len returns the number of entries; zero for a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.texts)
}

// Dimension returns the embedding dimension.
func (s *Snapshot) Dimension() int {
	if s == nil {
		return 0
	}
	return s.dimension
}

// ID returns the build identifier.
func (s *Snapshot) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Entry returns the text and metadata at position i.
func (s *Snapshot) Entry(i int) (string, models.ChunkMetadata) {
	return s.texts[i], s.metadata[i]
}

// Retrieved resolves hits against this snapshot.
func (s *Snapshot) Retrieved(hits []Hit) []models.Retrieved {
	out := make([]models.Retrieved, len(hits))
	for i, h := range hits {
		text, meta := s.Entry(h.Index)
		out[i] = models.Retrieved{Text: text, Metadata: meta, Distance: h.Distance}
	}
	return out
}
