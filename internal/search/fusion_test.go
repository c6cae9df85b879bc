package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLocalHits() []models.Retrieved {
	return []models.Retrieved{
		{Text: "name: Alice\nage: 30", Metadata: models.ChunkMetadata{RowIndex: 0, Source: models.ChunkSourceTable, Columns: []string{"name", "age"}}, Distance: 0.5},
		{Text: "name: Bob\ncity: Paris", Metadata: models.ChunkMetadata{RowIndex: 1, Source: models.ChunkSourceTable, Columns: []string{"name", "city"}}, Distance: 1.25},
	}
}

func TestFuse_ExternalThenLocal(t *testing.T) {
	f := NewFuser(&fakeRetriever{results: twoLocalHits()}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true, External: []string{"X"}})

	assert.Equal(t, models.AnswerExternalLocal, res.AnswerSource)
	require.Len(t, res.Items, 3)
	assert.Equal(t, models.ContextItem{Text: "X", Source: models.SourceExternal, Columns: []string{}}, res.Items[0])

	local := res.Items[1]
	assert.Equal(t, models.SourceLocal, local.Source)
	require.NotNil(t, local.RowIndex)
	assert.Equal(t, 0, *local.RowIndex)
	require.NotNil(t, local.SimilarityScore)
	assert.InDelta(t, 0.5, *local.SimilarityScore, 1e-9)
	assert.Equal(t, []string{"name", "age"}, local.Columns)

	assert.Equal(t, 1, *res.Items[2].RowIndex)
	assert.Equal(t, []string{"X", "name: Alice\nage: 30", "name: Bob\ncity: Paris"}, res.Texts())
	assert.NoError(t, res.LocalErr)
}

func TestFuse_ExternalOrderPreserved(t *testing.T) {
	f := NewFuser(&fakeRetriever{}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true, External: []string{"c", "a", "b"}})
	assert.Equal(t, models.AnswerExternal, res.AnswerSource)
	assert.Equal(t, []string{"c", "a", "b"}, res.Texts())
}

func TestFuse_LocalOnly(t *testing.T) {
	f := NewFuser(&fakeRetriever{results: twoLocalHits()}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true})
	assert.Equal(t, models.AnswerLocal, res.AnswerSource)
	assert.Len(t, res.Items, 2)
}

func TestFuse_UseLocalFalseSkipsRetrieval(t *testing.T) {
	r := &fakeRetriever{results: twoLocalHits()}
	f := NewFuser(r, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: false, External: []string{"X"}})
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, models.AnswerExternal, res.AnswerSource)
	assert.Len(t, res.Items, 1)
}

func TestFuse_EmptyIndexFallsBackToGeneralKnowledge(t *testing.T) {
	f := NewFuser(&fakeRetriever{err: vector.ErrEmptyIndex}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true})

	assert.Equal(t, models.AnswerGeneralKnowledge, res.AnswerSource)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, models.SourceGeneralKnowledge, item.Source)
	assert.Empty(t, item.Text)
	assert.Nil(t, item.RowIndex)
	assert.Nil(t, item.SimilarityScore)
	assert.Empty(t, item.Columns)
	assert.True(t, errors.Is(res.LocalErr, vector.ErrEmptyIndex))
	assert.Empty(t, res.Texts())
}

func TestFuse_RetrievalFailureKeepsExternal(t *testing.T) {
	f := NewFuser(&fakeRetriever{err: ErrRetrievalFailure}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true, External: []string{"X", "Y"}})
	assert.Equal(t, models.AnswerExternal, res.AnswerSource)
	assert.Equal(t, []string{"X", "Y"}, res.Texts())
	for _, it := range res.Items {
		assert.Equal(t, models.SourceExternal, it.Source)
	}
	assert.True(t, errors.Is(res.LocalErr, ErrRetrievalFailure))
}

func TestFuse_NothingRequested(t *testing.T) {
	f := NewFuser(&fakeRetriever{}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3})
	assert.Equal(t, models.AnswerGeneralKnowledge, res.AnswerSource)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, res.LocalErr)
}

func TestFuse_NonTableChunkIsUnknownButLocal(t *testing.T) {
	hits := []models.Retrieved{{Text: "t", Metadata: models.ChunkMetadata{RowIndex: 4, Source: "catalog"}, Distance: 2}}
	f := NewFuser(&fakeRetriever{results: hits}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 3, UseLocal: true})
	assert.Equal(t, models.AnswerLocal, res.AnswerSource)
	require.Len(t, res.Items, 1)
	assert.Equal(t, models.SourceUnknown, res.Items[0].Source)
	assert.Equal(t, 4, *res.Items[0].RowIndex)
}

func TestFuse_WithRealRetriever(t *testing.T) {
	r := NewRetriever(staticSnapshot{buildSnapshot(t)}, testEmbedder, 0)
	f := NewFuser(r, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "who is alice", K: 2, UseLocal: true, External: []string{"X"}})

	assert.Equal(t, models.AnswerExternalLocal, res.AnswerSource)
	require.Len(t, res.Items, 3)
	assert.Equal(t, models.SourceExternal, res.Items[0].Source)
	assert.Equal(t, 0, *res.Items[1].RowIndex)
	assert.Equal(t, 1, *res.Items[2].RowIndex)
	assert.LessOrEqual(t, *res.Items[1].SimilarityScore, *res.Items[2].SimilarityScore)
}

func TestFuse_ColumnsAreCopied(t *testing.T) {
	hits := twoLocalHits()
	f := NewFuser(&fakeRetriever{results: hits}, nil)
	res := f.Fuse(context.Background(), FusionRequest{Query: "q", K: 1, UseLocal: true})
	res.Items[0].Columns[0] = "changed"
	assert.Equal(t, "name", hits[0].Metadata.Columns[0])
}

func TestFuse_NegativeKWithoutExternal(t *testing.T) {
	f := NewFuser(&fakeRetriever{}, nil)
	var res *models.FusionResult
	require.NotPanics(t, func() {
		res = f.Fuse(context.Background(), FusionRequest{Query: "q", K: -1, UseLocal: true})
	})
	assert.Equal(t, models.AnswerGeneralKnowledge, res.AnswerSource)
	assert.Len(t, res.Items, 1)
}
