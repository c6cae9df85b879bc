package indexer

import (
	"strings"

	"github.com/hyperjump/kura/internal/models"
)

// RenderRecord renders a record as "column: value" lines in column order,
// skipping missing and blank fields.
func RenderRecord(rec models.Record) string {
	var b strings.Builder
	for i, col := range rec.Columns {
		value, ok := rec.Field(i)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}
