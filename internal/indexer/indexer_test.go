package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kura/internal/embedding"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
)

type brokenEmbedder struct {
	err   error
	short bool
}

func (b brokenEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, len(texts)-1)
	for i := range out {
		out[i] = []float32{1, 2}
	}
	return out, nil
}

func TestIndexer_Build(t *testing.T) {
	idx := NewIndexer(embedding.NewMockEmbedder(16), 10)
	records := []models.Record{
		models.NewRecord([]string{"name", "age"}, []any{"Alice", 30}),
		models.NewRecord([]string{"name", "city"}, []any{"Bob", "Paris"}),
	}
	gen, err := idx.Build(context.Background(), records, "faq.csv")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if gen.Rows != 2 || gen.Source != "faq.csv" {
		t.Errorf("unexpected generation: rows=%d source=%q", gen.Rows, gen.Source)
	}
	// "name: Alice\nage: 30" is 19 runes, so chunk size 10 gives 2 chunks; Bob's row is 21 runes, 3 chunks.
	if gen.Snapshot.Len() != 5 {
		t.Errorf("snapshot len = %d, want 5", gen.Snapshot.Len())
	}
	if gen.Snapshot.Dimension() != 16 {
		t.Errorf("dimension = %d, want 16", gen.Snapshot.Dimension())
	}
	if gen.Lookup.Len() != gen.Snapshot.Len() {
		t.Errorf("lookup len %d != snapshot len %d", gen.Lookup.Len(), gen.Snapshot.Len())
	}
	if gen.ID() == "" || gen.ID() != gen.Snapshot.ID() {
		t.Errorf("ID() = %q", gen.ID())
	}
	if gen.BuiltAt().IsZero() {
		t.Error("BuiltAt should be set")
	}
}

func TestIndexer_BuildNoRecords(t *testing.T) {
	idx := NewIndexer(embedding.NewMockEmbedder(8), 0)
	_, err := idx.Build(context.Background(), nil, "empty.csv")
	if !errors.Is(err, vector.ErrEmptyIndex) {
		t.Errorf("err = %v, want ErrEmptyIndex", err)
	}
}

func TestIndexer_BuildEmbedderFailure(t *testing.T) {
	boom := errors.New("model offline")
	idx := NewIndexer(brokenEmbedder{err: boom}, 0)
	records := []models.Record{models.NewRecord([]string{"q"}, []any{"a"})}
	_, err := idx.Build(context.Background(), records, "x")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped embedder error", err)
	}
}

func TestIndexer_BuildCountMismatch(t *testing.T) {
	idx := NewIndexer(brokenEmbedder{short: true}, 0)
	records := []models.Record{
		models.NewRecord([]string{"q"}, []any{"a"}),
		models.NewRecord([]string{"q"}, []any{"b"}),
	}
	_, err := idx.Build(context.Background(), records, "x")
	if !errors.Is(err, vector.ErrEmbeddingMismatch) {
		t.Errorf("err = %v, want ErrEmbeddingMismatch", err)
	}
}

func TestGeneration_nilSafe(t *testing.T) {
	var g *Generation
	if g.ID() != "" || !g.BuiltAt().IsZero() {
		t.Error("nil generation accessors should return zero values")
	}
}
