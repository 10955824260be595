// Package source reads snapshot input files as a stream of raw rows.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gyeh/bolagsload/internal/model"
)

// Reader streams raw rows from an input file.
type Reader interface {
	// Next returns the next row, or io.EOF when the input is exhausted.
	// A *RowError means only that row is unusable and reading may continue.
	Next() (model.RawRow, error)
	// Columns returns the input column names as they appear in the file.
	Columns() []string
	// NumRows returns the row count from file metadata, or -1 if unknown.
	NumRows() int64
	Close() error
}

// RowError reports a single unreadable row.
type RowError struct {
	Row int64
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Open selects a reader by file extension: .parquet or .csv.
func Open(path string) (Reader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet", ".pq":
		return OpenParquet(path)
	case ".csv":
		return OpenCSV(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .parquet or .csv)", ext)
	}
}
