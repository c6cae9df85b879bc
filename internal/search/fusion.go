// Package search answers queries by fusing external context with chunks retrieved from the
// local knowledge base, and optionally generating a response from the fused context.
package search

import (
	"context"

	"github.com/hyperjump/kura/internal/models"
	"go.uber.org/zap"
)

// LocalRetriever returns the chunks nearest to a query.
type LocalRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.Retrieved, error)
}

// FusionRequest is one fusion call.
type FusionRequest struct {
	Query    string
	K        int
	UseLocal bool
	External []string
}

// Fuser merges external context and local retrieval into one labeled context set.
type Fuser struct {
	retriever LocalRetriever
	logger    *zap.Logger
}

// NewFuser creates a fuser. logger may be nil.
func NewFuser(retriever LocalRetriever, logger *zap.Logger) *Fuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fuser{retriever: retriever, logger: logger}
}

// Fuse never fails. External items come first in their given order, then local hits in
// ascending distance. A retrieval error keeps the external items, or clears everything when
// there are none, and is recorded on the result. An empty result gets one general-knowledge
// placeholder.
func (f *Fuser) Fuse(ctx context.Context, req FusionRequest) *models.FusionResult {
	result := &models.FusionResult{Items: make([]models.ContextItem, 0, len(req.External)+max(req.K, 0))}

	for _, text := range req.External {
		result.Items = append(result.Items, models.ContextItem{
			Text:    text,
			Source:  models.SourceExternal,
			Columns: []string{},
		})
	}
	hasExternal := len(result.Items) > 0
	hasLocal := false

	if req.UseLocal {
		retrieved, err := f.retriever.Retrieve(ctx, req.Query, req.K)
		if err != nil {
			result.LocalErr = err
			f.logger.Warn("local retrieval failed",
				zap.Error(err),
				zap.Bool("has_external", hasExternal))
			if !hasExternal {
				result.Items = result.Items[:0]
			}
		} else if len(retrieved) > 0 {
			hasLocal = true
			for _, r := range retrieved {
				result.Items = append(result.Items, localItem(r))
			}
		}
	}

	switch {
	case hasExternal && hasLocal:
		result.AnswerSource = models.AnswerExternalLocal
	case hasExternal:
		result.AnswerSource = models.AnswerExternal
	case hasLocal:
		result.AnswerSource = models.AnswerLocal
	default:
		result.AnswerSource = models.AnswerGeneralKnowledge
		result.Items = []models.ContextItem{{Source: models.SourceGeneralKnowledge, Columns: []string{}}}
	}

	f.logger.Info("context fused",
		zap.String("answer_source", string(result.AnswerSource)),
		zap.Int("context_items", len(result.Items)))
	return result
}

func localItem(r models.Retrieved) models.ContextItem {
	source := models.SourceUnknown
	if r.Metadata.Source == models.ChunkSourceTable {
		source = models.SourceLocal
	}
	row := r.Metadata.RowIndex
	score := float64(r.Distance)
	columns := make([]string, len(r.Metadata.Columns))
	copy(columns, r.Metadata.Columns)
	return models.ContextItem{
		Text:            r.Text,
		Source:          source,
		RowIndex:        &row,
		SimilarityScore: &score,
		Columns:         columns,
	}
}
