// Package indexer turns tabular records into chunks and builds searchable knowledge-base generations.
package indexer

import (
	"github.com/hyperjump/kura/internal/models"
)

// DefaultChunkSize is the maximum chunk length in characters when none is configured.
const DefaultChunkSize = 500

// Chunker splits rendered records into fixed-size character slices.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a chunker with the given maximum chunk length (in characters).
// A non-positive size falls back to DefaultChunkSize.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkSize returns the maximum chunk length in characters.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Chunk renders every record and splits it into chunks with row/column provenance.
// Every record yields at least one chunk; a record with no renderable field yields one empty chunk.
func (c *Chunker) Chunk(records []models.Record) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(records))
	for rowIndex, rec := range records {
		columns := make([]string, len(rec.Columns))
		copy(columns, rec.Columns)
		for chunkIndex, text := range c.split(RenderRecord(rec)) {
			chunks = append(chunks, models.Chunk{
				Text: text,
				Metadata: models.ChunkMetadata{
					RowIndex:   rowIndex,
					ChunkIndex: chunkIndex,
					Source:     models.ChunkSourceTable,
					Columns:    columns,
				},
			})
		}
	}
	return chunks
}

// split cuts text into consecutive slices of at most chunkSize runes. The slices
// concatenate back to text exactly.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}
	parts := make([]string, 0, (len(runes)+c.chunkSize-1)/c.chunkSize)
	for i := 0; i < len(runes); i += c.chunkSize {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}
