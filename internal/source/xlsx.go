package source

import (
	"bytes"
	"fmt"

	"github.com/hyperjump/kura/internal/models"
	"github.com/xuri/excelize/v2"
)

func parseXLSX(content []byte, sheet string) ([]models.Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return []models.Record{}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	return rowsToRecords(rows), nil
}
