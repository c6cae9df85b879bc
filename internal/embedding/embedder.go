// Package embedding turns text into fixed-dimension vectors. Providers include a deterministic
// mock, an OpenAI-compatible HTTP client, a local ONNX model and a pure-Go hugot pipeline.
package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/kura/pkg/utils"
)

// ErrEmbedding is wrapped by provider failures.
var ErrEmbedding = errors.New("embedding failed")

// Embedder produces vector embeddings for text. EmbedBatch returns one vector per input,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NormalizeL2Slice normalizes the slice in place to unit L2 norm. Zero vectors are left untouched.
func NormalizeL2Slice(x []float32) {
	utils.NormalizeL2(x)
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
