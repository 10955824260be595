package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gyeh/bolagsload/internal/model"
)

// CSVReader streams rows from a CSV file with a header line, as produced by
// the snapshot conversion step (\N for nulls).
type CSVReader struct {
	file   *os.File
	r      *csv.Reader
	header []string
	row    int64
}

// OpenCSV opens a CSV file and reads its header.
func OpenCSV(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<16))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file %s has no header", path)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &CSVReader{file: f, r: r, header: header}, nil
}

// Columns returns the header fields.
func (c *CSVReader) Columns() []string { return c.header }

// NumRows is unknown for CSV input.
func (c *CSVReader) NumRows() int64 { return -1 }

// Next returns the next record keyed by header name. Records that fail to
// parse or whose field count differs from the header are returned as *RowError.
func (c *CSVReader) Next() (model.RawRow, error) {
	rec, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// The reader resumes at the next record after a parse error.
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			c.row++
			return nil, &RowError{Row: c.row, Err: err}
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}
	c.row++
	if len(rec) != len(c.header) {
		return nil, &RowError{
			Row: c.row,
			Err: fmt.Errorf("expected %d fields, got %d", len(c.header), len(rec)),
		}
	}

	raw := make(model.RawRow, len(rec))
	for i, v := range rec {
		raw[c.header[i]] = v
	}
	return raw, nil
}

// Close releases the underlying file.
func (c *CSVReader) Close() error {
	return c.file.Close()
}
