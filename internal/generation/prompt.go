package generation

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
)

// BuildPrompt formats the fused context and the user question. Items are numbered in order as
// "[Context i]" blocks. Without usable context the fallback system prompt is used and the
// question is sent as is.
func BuildPrompt(query string, items []models.ContextItem, cfg *config.GenerationConfig) Prompt {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		if it.Source == models.SourceGeneralKnowledge {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Context %d]\n%s", len(blocks)+1, it.Text))
	}
	if len(blocks) == 0 {
		return Prompt{System: cfg.FallbackPrompt, User: query}
	}

	var user strings.Builder
	user.WriteString("Context from knowledge base:\n")
	user.WriteString(strings.Join(blocks, "\n\n"))
	user.WriteString("\n\nUser question: ")
	user.WriteString(query)
	user.WriteString("\n\nPlease answer based on the context provided above.")
	return Prompt{System: cfg.SystemPrompt, User: user.String()}
}
