// Package fixture writes synthetic registry snapshots shaped like the
// dataframe export: mixed-case column names, a leaked index column, NaN for
// missing numbers and "$n" name suffixes.
package fixture

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"

	goparquet "github.com/parquet-go/parquet-go"
)

// Row mirrors one row of the snapshot Parquet file.
type Row struct {
	Index                  int64    `parquet:"__index_level_0__"`
	Organisationsidentitet *string  `parquet:"Organisationsidentitet,optional"`
	Namnskyddslopnummer    *float64 `parquet:"Namnskyddslopnummer,optional"`
	Registreringsland      *string  `parquet:"Registreringsland,optional"`
	Organisationsnamn      *string  `parquet:"Organisationsnamn,optional"`
	Organisationsform      *string  `parquet:"Organisationsform,optional"`
	Avregistreringsdatum   *string  `parquet:"Avregistreringsdatum,optional"`
	Avregistreringsorsak   *string  `parquet:"Avregistreringsorsak,optional"`
	PagandeAvveckling      *string  `parquet:"PagandeAvvecklingsEllerOmsstruktureringsforfarande,optional"`
	Registreringsdatum     *string  `parquet:"Registreringsdatum,optional"`
	Verksamhetsbeskrivning *string  `parquet:"Verksamhetsbeskrivning,optional"`
	Postadress             *string  `parquet:"Postadress,optional"`
}

// Empty reports whether every data column is null (or NaN).
func (r *Row) Empty() bool {
	for _, p := range r.strings() {
		if p != nil {
			return false
		}
	}
	return r.Namnskyddslopnummer == nil || math.IsNaN(*r.Namnskyddslopnummer)
}

func (r *Row) strings() []*string {
	return []*string{
		r.Organisationsidentitet,
		r.Registreringsland,
		r.Organisationsnamn,
		r.Organisationsform,
		r.Avregistreringsdatum,
		r.Avregistreringsorsak,
		r.PagandeAvveckling,
		r.Registreringsdatum,
		r.Verksamhetsbeskrivning,
		r.Postadress,
	}
}

// Key returns the organisation identifier for row i as produced by Generate.
func Key(i int) string {
	return fmt.Sprintf("55%08d", i)
}

// Generate returns n deterministic rows. Every emptyEvery-th row (when > 0)
// has all data columns null.
func Generate(n int, seed uint64, emptyEvery int) []Row {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	forms := []string{"AB-ORGFO", "HB-ORGFO", "EF-ORGFO", "BRF-ORGFO", "EK-ORGFO"}
	rows := make([]Row, n)
	for i := range rows {
		rows[i].Index = int64(i)
		if emptyEvery > 0 && (i+1)%emptyEvery == 0 {
			nan := math.NaN()
			rows[i].Namnskyddslopnummer = &nan
			continue
		}
		r := &rows[i]
		r.Organisationsidentitet = ptr(Key(i))
		r.Registreringsland = ptr("SE-LAND")
		r.Organisationsnamn = ptr(fmt.Sprintf("Bolag %d AB$%d", i, rng.IntN(3)))
		r.Organisationsform = ptr(forms[rng.IntN(len(forms))])
		r.Registreringsdatum = ptr(fmt.Sprintf("%04d-%02d-%02d", 1950+rng.IntN(70), 1+rng.IntN(12), 1+rng.IntN(28)))
		if rng.IntN(4) == 0 {
			r.Avregistreringsdatum = ptr(fmt.Sprintf("%04d-%02d-%02d", 2020+rng.IntN(5), 1+rng.IntN(12), 1+rng.IntN(28)))
			r.Avregistreringsorsak = ptr("AVREG")
		} else if rng.IntN(2) == 0 {
			r.Avregistreringsorsak = ptr("")
		}
		if rng.IntN(3) == 0 {
			seq := float64(1 + rng.IntN(5))
			r.Namnskyddslopnummer = &seq
		} else {
			nan := math.NaN()
			r.Namnskyddslopnummer = &nan
		}
		switch rng.IntN(3) {
		case 0:
			r.PagandeAvveckling = ptr("false")
		case 1:
			r.PagandeAvveckling = ptr("true")
		}
		if rng.IntN(2) == 0 {
			r.Verksamhetsbeskrivning = ptr(fmt.Sprintf("Verksamhet %d", i))
		}
		if rng.IntN(5) != 0 {
			r.Postadress = ptr(fmt.Sprintf("Gatan %d, %03d %02d Stad", 1+rng.IntN(99), 100+rng.IntN(900), rng.IntN(100)))
		}
	}
	return rows
}

// WriteParquet writes rows to a Parquet file at path.
func WriteParquet(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}
	defer f.Close()

	w := goparquet.NewGenericWriter[Row](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}

// CSVHeader is the lower-cased header the conversion step writes.
var CSVHeader = []string{
	"organisationsidentitet",
	"namnskyddslopnummer",
	"registreringsland",
	"organisationsnamn",
	"organisationsform",
	"avregistreringsdatum",
	"avregistreringsorsak",
	"pagandeavvecklingselleromsstruktureringsforfarande",
	"registreringsdatum",
	"verksamhetsbeskrivning",
	"postadress",
}

// WriteCSV writes rows as CSV with \N for nulls and NaN.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		seq := `\N`
		if r.Namnskyddslopnummer != nil && !math.IsNaN(*r.Namnskyddslopnummer) {
			seq = strconv.FormatFloat(*r.Namnskyddslopnummer, 'f', 1, 64)
		}
		rec := []string{
			text(r.Organisationsidentitet),
			seq,
			text(r.Registreringsland),
			text(r.Organisationsnamn),
			text(r.Organisationsform),
			text(r.Avregistreringsdatum),
			text(r.Avregistreringsorsak),
			text(r.PagandeAvveckling),
			text(r.Registreringsdatum),
			text(r.Verksamhetsbeskrivning),
			text(r.Postadress),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func text(p *string) string {
	if p == nil {
		return `\N`
	}
	return *p
}

func ptr(s string) *string { return &s }
