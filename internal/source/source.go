// Package source loads tabular records from CSV and Excel files, S3-compatible object storage
// and SQLite databases.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
)

// Source loads the full record set of a knowledge base.
type Source interface {
	// Name identifies the source in logs and stats.
	Name() string
	Load(ctx context.Context) ([]models.Record, error)
}

// Supported record formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// New creates the source described by cfg.
func New(cfg *config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "csv", "xlsx":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%s source: path is required", cfg.Type)
		}
		return NewFileSource(cfg.Path, cfg.Type, cfg.Sheet), nil
	case "s3":
		s, err := NewS3Source(&cfg.S3, cfg.Sheet)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if cfg.SQLite.Path == "" || cfg.SQLite.Query == "" {
			return nil, fmt.Errorf("sqlite source: path and query are required")
		}
		return NewSQLiteSource(cfg.SQLite.Path, cfg.SQLite.Query), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// ParseBytes parses content in the given format. sheet selects an Excel worksheet;
// empty means the first one.
func ParseBytes(content []byte, format, sheet string) ([]models.Record, error) {
	switch format {
	case FormatCSV:
		return parseCSV(content)
	case FormatXLSX:
		return parseXLSX(content, sheet)
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}
}

// FormatFromPath derives the record format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("cannot derive record format from extension %q", ext)
	}
}

// rowsToRecords treats the first row as the header. Blank header cells get a positional name
// and empty cells become missing values.
func rowsToRecords(rows [][]string) []models.Record {
	if len(rows) == 0 {
		return []models.Record{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		header[i] = h
	}
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		values := make([]any, len(header))
		for i := range header {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				values[i] = row[i]
			}
		}
		records = append(records, models.NewRecord(header, values))
	}
	return records
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
