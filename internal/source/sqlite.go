package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kura/internal/models"
)

// SQLiteSource runs a SELECT against a SQLite database; each result row is one record.
type SQLiteSource struct {
	path  string
	query string
}

// NewSQLiteSource returns a source that runs query against the database at path.
func NewSQLiteSource(path, query string) *SQLiteSource {
	return &SQLiteSource{path: path, query: query}
}

// Name returns the database path.
func (s *SQLiteSource) Name() string {
	return "sqlite://" + s.path
}

// Load opens the database read-only, runs the query and converts rows to records.
// NULL becomes a missing value; column order follows the result set.
func (s *SQLiteSource) Load(ctx context.Context) ([]models.Record, error) {
	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := make([]models.Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		records = append(records, models.NewRecord(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}
