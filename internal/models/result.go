package models

import "time"

// ContextSource labels where a context item came from.
type ContextSource string

const (
	SourceExternal         ContextSource = "external"
	SourceLocal            ContextSource = "local"
	SourceUnknown          ContextSource = "unknown"
	SourceGeneralKnowledge ContextSource = "general_knowledge"
)

// AnswerSource summarizes which context sources contributed to a result.
type AnswerSource string

const (
	AnswerExternal         AnswerSource = "external"
	AnswerLocal            AnswerSource = "local"
	AnswerExternalLocal    AnswerSource = "external+local"
	AnswerGeneralKnowledge AnswerSource = "general_knowledge"
)

// ContextItem is one labeled entry of a fused context set.
// SimilarityScore is a distance (lower is closer) and is set only for retrieved items.
type ContextItem struct {
	Text            string        `json:"text"`
	Source          ContextSource `json:"source"`
	RowIndex        *int          `json:"row_index"`
	SimilarityScore *float64      `json:"similarity_score"`
	Columns         []string      `json:"columns"`
}

// FusionResult is the ordered, labeled context set for one query.
type FusionResult struct {
	Items        []ContextItem `json:"context_items"`
	AnswerSource AnswerSource  `json:"answer_source"`
	// LocalErr is the recovered retrieval error, if any.
	LocalErr error `json:"-"`
}

// Texts returns the non-empty item texts in order.
func (r *FusionResult) Texts() []string {
	out := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Source == SourceGeneralKnowledge {
			continue
		}
		out = append(out, it.Text)
	}
	return out
}

// QueryResponse is the response for a query request.
type QueryResponse struct {
	AnswerSource AnswerSource  `json:"answer_source"`
	ContextItems []ContextItem `json:"context_items"`
	QueryTime    int64         `json:"query_time_ms"`
}

// ChatResponse is the response for a chat request.
type ChatResponse struct {
	Response     string        `json:"response"`
	AnswerSource AnswerSource  `json:"answer_source"`
	ContextUsed  []string      `json:"context_used"`
	Sources      []ContextItem `json:"sources"`
}

// Stats describes the currently published knowledge base.
type Stats struct {
	TotalChunks        int        `json:"total_chunks"`
	EmbeddingDimension *int       `json:"embedding_dimension"`
	TotalVectors       *int       `json:"total_vectors"`
	State              string     `json:"state"`
	BuildID            string     `json:"build_id,omitempty"`
	BuiltAt            *time.Time `json:"built_at,omitempty"`
	Source             string     `json:"source,omitempty"`
}

// ReloadResponse is the outcome of a knowledge base rebuild.
type ReloadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	BuildID     string `json:"build_id"`
	TotalChunks int    `json:"total_chunks"`
}

// ChunkList is the result of a keyword lookup over the loaded chunks.
type ChunkList struct {
	Query string     `json:"query"`
	Hits  []ChunkHit `json:"hits"`
}
