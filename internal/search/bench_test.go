package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/kura/internal/embedding"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
)

func benchSnapshot(b *testing.B, n, dims int) (*vector.Snapshot, *embedding.MockEmbedder) {
	b.Helper()
	e := embedding.NewMockEmbedder(dims)
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			Text:     fmt.Sprintf("name: item %d\ncategory: group %d", i, i%17),
			Metadata: models.ChunkMetadata{RowIndex: i, Source: models.ChunkSourceTable},
		}
	}
	s, err := vector.Build(context.Background(), chunks, e)
	if err != nil {
		b.Fatal(err)
	}
	return s, e
}

func BenchmarkSnapshotSearch(b *testing.B) {
	s, e := benchSnapshot(b, 1000, 384)
	ctx := context.Background()
	query, _ := e.Embed(ctx, "item 42 group 8")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Search(ctx, query, 10)
	}
}

func BenchmarkFuse(b *testing.B) {
	s, e := benchSnapshot(b, 1000, 384)
	f := NewFuser(NewRetriever(staticSnapshot{snapshot: s}, embedding.NewCachedEmbedder(e, 100), 0), nil)
	ctx := context.Background()
	req := FusionRequest{Query: "item 42", K: 5, UseLocal: true, External: []string{"an external passage"}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Fuse(ctx, req)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
