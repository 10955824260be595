// mkfixture writes a synthetic Bolagsverket snapshot shaped like the real
// dataframe export, or prints stats for an existing snapshot with --check.
// Usage: go run ./cmd/mkfixture --out testdata/snapshot-small.parquet --rows 2000
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gyeh/bolagsload/internal/fixture"
	"github.com/gyeh/bolagsload/internal/normalize"
	"github.com/gyeh/bolagsload/internal/source"
)

func main() {
	out := flag.String("out", "testdata/snapshot-small.parquet", "output file (.parquet or .csv)")
	rows := flag.Int("rows", 2000, "rows to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	emptyEvery := flag.Int("empty-every", 50, "make every Nth row all-null (0 disables)")
	check := flag.String("check", "", "only print stats for this snapshot, don't write")
	flag.Parse()

	if *check != "" {
		if err := printStats(*check); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
		return
	}

	data := fixture.Generate(*rows, *seed, *emptyEvery)

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
			os.Exit(1)
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".csv":
		err = fixture.WriteCSV(*out, data)
	case ".parquet", ".pq":
		err = fixture.WriteParquet(*out, data)
	default:
		err = fmt.Errorf("unsupported output extension %q", filepath.Ext(*out))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	empty := 0
	for i := range data {
		if data[i].Empty() {
			empty++
		}
	}
	fmt.Printf("Wrote %d rows (%d empty) to %s\n", len(data), empty, *out)
}

// printStats reads a snapshot and reports how rows would normalize.
func printStats(path string) error {
	src, err := source.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	norm := normalize.New()
	var total, empty, malformed, suffixed int
	fmt.Printf("Columns: %s\n", strings.Join(src.Columns(), ", "))
	for {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		total++
		if err != nil {
			var rowErr *source.RowError
			if errors.As(err, &rowErr) {
				malformed++
				continue
			}
			return err
		}
		for k, v := range raw {
			if s, ok := v.(string); ok && norm.FieldName(k) == "organisationsnamn" && strings.Contains(s, normalize.NameSuffixDelim) {
				suffixed++
			}
		}
		if _, err := norm.Record(raw); err != nil {
			if errors.Is(err, normalize.ErrEmptyRecord) {
				empty++
			} else {
				malformed++
			}
		}
	}
	fmt.Printf("\nTotal: %d, Empty: %d, Malformed: %d, Name suffixes: %d\n", total, empty, malformed, suffixed)
	return nil
}
