package models

import (
	"fmt"
	"strings"
)

// QueryRequest asks for a fused context set for a prompt.
type QueryRequest struct {
	Prompt          string   `json:"prompt"`
	K               int      `json:"k,omitempty"`
	UseLocal        *bool    `json:"use_local,omitempty"`
	ExternalContext []string `json:"external_context,omitempty"`
}

// UseLocalOrDefault returns whether local retrieval is requested; defaults to true when unset.
func (q *QueryRequest) UseLocalOrDefault() bool {
	if q.UseLocal != nil {
		return *q.UseLocal
	}
	return true
}

// Validate rejects an empty prompt and normalizes K into [1, maxK] using defaultK when unset.
func (q *QueryRequest) Validate(defaultK, maxK int) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}

// SamplingParams are passed through to the generation service.
type SamplingParams struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	TopP         float64 `json:"top_p,omitempty"`
}

// ChatRequest is a query plus sampling parameters for answer generation.
type ChatRequest struct {
	QueryRequest
	SamplingParams
}
