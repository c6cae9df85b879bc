// Package cli provides output formatting for the kura command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const separator = "─────────────────────────────────────────────────────────\n"

// ParseOutputFormat maps a flag value to an OutputFormat, falling back to text.
func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

// WriteQueryResponse writes a fused context set to w in the given format.
func WriteQueryResponse(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nAnswer source: %s | %d context items in %dms\n\n",
		resp.AnswerSource, len(resp.ContextItems), resp.QueryTime)
	writeContextItems(w, resp.ContextItems)
	return nil
}

// WriteChatResponse writes a generated answer and the context it used.
func WriteChatResponse(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(resp.Response))
	fmt.Fprintf(w, "Answer source: %s\n", resp.AnswerSource)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "--- Sources ---")
		writeContextItems(w, resp.Sources)
	}
	return nil
}

func writeContextItems(w io.Writer, items []models.ContextItem) {
	for i, item := range items {
		fmt.Fprint(w, separator)
		line := fmt.Sprintf("[%d] %s", i+1, item.Source)
		if item.RowIndex != nil {
			line += fmt.Sprintf(" | row %d", *item.RowIndex)
		}
		if item.SimilarityScore != nil {
			line += fmt.Sprintf(" | distance %.4f", *item.SimilarityScore)
		}
		fmt.Fprintln(w, line)
		if len(item.Columns) > 0 {
			fmt.Fprintf(w, "Columns: %s\n", strings.Join(item.Columns, ", "))
		}
		if item.Text != "" {
			fmt.Fprintf(w, "\n%s\n", Truncate(item.Text, 300))
		}
		fmt.Fprintln(w)
	}
}

// WriteStats writes knowledge base statistics.
func WriteStats(w io.Writer, stats *models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "State:               %s\n", stats.State)
	fmt.Fprintf(w, "Total chunks:        %d\n", stats.TotalChunks)
	fmt.Fprintf(w, "Embedding dimension: %s\n", optionalInt(stats.EmbeddingDimension))
	fmt.Fprintf(w, "Total vectors:       %s\n", optionalInt(stats.TotalVectors))
	if stats.BuildID != "" {
		fmt.Fprintf(w, "Build:               %s\n", stats.BuildID)
	}
	if stats.BuiltAt != nil {
		fmt.Fprintf(w, "Built at:            %s\n", stats.BuiltAt.Format("2006-01-02 15:04:05"))
	}
	if stats.Source != "" {
		fmt.Fprintf(w, "Source:              %s\n", stats.Source)
	}
	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// WriteChunks writes keyword lookup hits.
func WriteChunks(w io.Writer, list *models.ChunkList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "\nFound %d chunks for %q\n\n", len(list.Hits), list.Query)
	for _, hit := range list.Hits {
		fmt.Fprint(w, separator)
		fmt.Fprintf(w, "Row %d, chunk %d | Score: %.4f\n", hit.RowIndex, hit.ChunkIndex, hit.Score)
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(hit.Text, 60))
	}
	return nil
}

// WriteReloadResult writes the outcome of a rebuild.
func WriteReloadResult(w io.Writer, res *models.ReloadResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s (build %s, %d chunks)\n", res.Message, res.BuildID, res.TotalChunks)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
