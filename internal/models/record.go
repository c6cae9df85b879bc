// Package models defines core data structures for records, chunks, queries, and fused context.
package models

import (
	"fmt"
	"math"
	"strings"
)

// ChunkSourceTable marks chunks produced from a tabular record source.
const ChunkSourceTable = "table"

// Record is one row of the tabular source. Values is parallel to Columns; a nil value is missing.
type Record struct {
	Columns []string `json:"columns"`
	Values  []any    `json:"values"`
}

// NewRecord builds a record from parallel column and value slices.
// Missing trailing values are treated as nil.
func NewRecord(columns []string, values []any) Record {
	vals := make([]any, len(columns))
	copy(vals, values)
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Record{Columns: cols, Values: vals}
}

// Field returns the rendered value of column i and whether it is present (non-missing, non-blank).
func (r Record) Field(i int) (string, bool) {
	if i < 0 || i >= len(r.Values) {
		return "", false
	}
	v := r.Values[i]
	if v == nil {
		return "", false
	}
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return "", false
		}
	case *string:
		if x == nil {
			return "", false
		}
		v = *x
	}
	s := fmt.Sprint(v)
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// ChunkMetadata carries provenance of a chunk back to its source row.
type ChunkMetadata struct {
	RowIndex   int      `json:"row_index"`
	ChunkIndex int      `json:"chunk_index"`
	Source     string   `json:"source"`
	Columns    []string `json:"columns"`
}

// Chunk is a bounded unit of retrievable text.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Retrieved is a single nearest-neighbour hit resolved against one snapshot.
type Retrieved struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float32       `json:"distance"` // squared L2, lower is closer
}

// ChunkHit is a keyword lookup hit over the chunks of the published knowledge base.
type ChunkHit struct {
	RowIndex   int     `json:"row_index"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
