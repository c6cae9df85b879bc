package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/kura/internal/models"
)

const batchSize = 500

// ChunkIndex is an in-memory Bleve index over chunk texts. It is built once and never mutated.
type ChunkIndex struct {
	index bleve.Index
	size  int
}

type chunkDoc struct {
	Text    string   `json:"text"`
	Columns []string `json:"columns"`
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query for "alice" matches "Alice"
	// but "age" does not match "ages".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	columnFieldMapping := bleve.NewTextFieldMapping()
	columnFieldMapping.Analyzer = keywordanalyzer.Name
	columnFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("columns", columnFieldMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// BuildChunkIndex indexes chunk texts and column names. Document IDs are chunk positions.
func BuildChunkIndex(ctx context.Context, chunks []models.Chunk) (*ChunkIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := index.NewBatch()
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			_ = index.Close()
			return nil, err
		}
		if err := batch.Index(strconv.Itoa(i), chunkDoc{Text: ch.Text, Columns: ch.Metadata.Columns}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index chunk %d: %w", i, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("failed to apply batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to apply batch: %w", err)
		}
	}
	return &ChunkIndex{index: index, size: len(chunks)}, nil
}

// Search runs a match (or fuzzy) query over chunk texts and returns up to limit results by
// descending score.
func (c *ChunkIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []*KeywordResult{}, nil
	}
	fuzzyEnabled := false
	fuzziness := 2
	column := ""
	if opts != nil {
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		column = opts.Column
	}

	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "text")
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("text")
		q = mq
	}
	if column != "" {
		tq := bleve.NewTermQuery(column)
		tq.SetField("columns")
		q = bleve.NewConjunctionQuery(q, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, &KeywordResult{Position: pos, Score: hit.Score})
	}
	return out, nil
}

// Len returns the number of indexed chunks.
func (c *ChunkIndex) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Close releases the index.
func (c *ChunkIndex) Close() error {
	return c.index.Close()
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query, restricted to field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 1 {
		fq := bleve.NewFuzzyQuery(terms[0])
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		return fq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
