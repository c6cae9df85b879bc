package source

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/hyperjump/kura/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseCSV(content []byte) ([]models.Record, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return rowsToRecords(rows), nil
}
