package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// MockEmbedder is a deterministic bag-of-words embedder. Each lowercased word is hashed into
// one signed bucket and the result is L2-normalized, so texts sharing words land close together.
// Text without words embeds to the zero vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the hashed bag-of-words vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dimensions))
		if sum&0x80000000 != 0 {
			emb[idx]--
		} else {
			emb[idx]++
		}
	}
	NormalizeL2Slice(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
