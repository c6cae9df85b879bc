package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
)

// mapEmbedder embeds known texts to fixed vectors and fails on anything else.
type mapEmbedder map[string][]float32

func (m mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := m[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

type staticSnapshot struct {
	snapshot *vector.Snapshot
}

func (s staticSnapshot) Current() *vector.Snapshot { return s.snapshot }

type fakeRetriever struct {
	results []models.Retrieved
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.Retrieved, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

var testEmbedder = mapEmbedder{
	"name: Alice\nage: 30":   {0, 0},
	"name: Bob\ncity: Paris": {3, 0},
	"product: kettle":        {0, 4},
	"who is alice":           {1, 0},
	"wrong dims":             {1, 0, 0},
}

func buildSnapshot(t *testing.T) *vector.Snapshot {
	t.Helper()
	chunks := []models.Chunk{
		{Text: "name: Alice\nage: 30", Metadata: models.ChunkMetadata{RowIndex: 0, Source: models.ChunkSourceTable, Columns: []string{"name", "age"}}},
		{Text: "name: Bob\ncity: Paris", Metadata: models.ChunkMetadata{RowIndex: 1, Source: models.ChunkSourceTable, Columns: []string{"name", "city"}}},
		{Text: "product: kettle", Metadata: models.ChunkMetadata{RowIndex: 2, Source: "catalog", Columns: []string{"product"}}},
	}
	s, err := vector.Build(context.Background(), chunks, testEmbedder)
	if err != nil {
		t.Fatalf("vector.Build: %v", err)
	}
	return s
}
