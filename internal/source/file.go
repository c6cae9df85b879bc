package source

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/kura/internal/models"
)

// FileSource reads records from a local CSV or Excel file.
type FileSource struct {
	path   string
	format string
	sheet  string
}

// NewFileSource returns a source for the file at path in the given format.
func NewFileSource(path, format, sheet string) *FileSource {
	return &FileSource{path: path, format: format, sheet: sheet}
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return s.path
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and parses the whole file.
func (s *FileSource) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseBytes(content, s.format, s.sheet)
}
