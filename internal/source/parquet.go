package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/gyeh/bolagsload/internal/model"
)

const parquetReadBatch = 256

// leaf describes one physical Parquet column.
type leaf struct {
	name    string // top-level field name
	nested  bool   // part of a group with several leaves
	logical *format.LogicalType
}

// ParquetReader streams rows from a Parquet file row group by row group.
type ParquetReader struct {
	file    *os.File
	pf      *parquet.File
	leaves  []leaf
	columns []string

	groups []parquet.RowGroup
	next   int
	rows   parquet.Rows
	buf    []parquet.Row
	n, i   int
}

// OpenParquet opens a Parquet file and returns a streaming reader.
func OpenParquet(path string) (*ParquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	schema := pf.Schema()
	paths := schema.Columns()
	leaves := make([]leaf, len(paths))
	perField := make(map[string]int)
	var columns []string
	for i, path := range paths {
		name := path[0]
		if perField[name] == 0 {
			columns = append(columns, name)
		}
		perField[name]++
		leaves[i] = leaf{name: name}
		if col, ok := schema.Lookup(path...); ok {
			leaves[i].logical = col.Node.Type().LogicalType()
		}
	}
	for i := range leaves {
		leaves[i].nested = perField[leaves[i].name] > 1
	}

	return &ParquetReader{
		file:    f,
		pf:      pf,
		leaves:  leaves,
		columns: columns,
		groups:  pf.RowGroups(),
		buf:     make([]parquet.Row, parquetReadBatch),
	}, nil
}

// Columns returns the top-level field names in schema order.
func (r *ParquetReader) Columns() []string { return r.columns }

// NumRows returns the total number of rows in the Parquet file.
func (r *ParquetReader) NumRows() int64 { return r.pf.NumRows() }

// Next returns the next row as a RawRow keyed by top-level field name.
// Group fields (e.g. a structured address) are flattened into one text value.
func (r *ParquetReader) Next() (model.RawRow, error) {
	for r.i >= r.n {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
	row := r.buf[r.i]
	r.i++

	raw := make(model.RawRow, len(r.columns))
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(r.leaves) {
			continue
		}
		l := r.leaves[c]
		val := convertValue(v, l.logical)
		if !l.nested {
			raw[l.name] = val
			continue
		}
		raw[l.name] = joinText(raw[l.name], val)
	}
	return raw, nil
}

func (r *ParquetReader) fill() error {
	for {
		if r.rows == nil {
			if r.next >= len(r.groups) {
				return io.EOF
			}
			r.rows = r.groups[r.next].Rows()
			r.next++
		}
		n, err := r.rows.ReadRows(r.buf)
		r.n, r.i = n, 0
		if err != nil && err != io.EOF {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if err == io.EOF || n == 0 {
			r.rows.Close()
			r.rows = nil
		}
		if n > 0 {
			return nil
		}
	}
}

// Close releases all resources.
func (r *ParquetReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	return r.file.Close()
}

func convertValue(v parquet.Value, lt *format.LogicalType) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
		return int64(v.Int32())
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return timestamp(v.Int64(), lt.Timestamp.Unit)
		}
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func timestamp(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Millis != nil:
		return time.UnixMilli(n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.Unix(0, n).UTC()
	}
}

// joinText appends a leaf value of a group field to what has been collected
// so far. Null leaves are ignored.
func joinText(prev, val any) any {
	if val == nil {
		return prev
	}
	s := strings.TrimSpace(fmt.Sprint(val))
	if s == "" {
		return prev
	}
	if p, ok := prev.(string); ok && p != "" {
		return p + ", " + s
	}
	return s
}
