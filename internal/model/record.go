package model

import "time"

// DateLayout is the wire format for date columns outside of COPY.
const DateLayout = "2006-01-02"

// KeyColumn is the natural key of the companies table.
const KeyColumn = "organisationsidentitet"

// RawRow is a single input row before normalization: field name to raw value.
// Values are nil, string, int64, float64, bool or time.Time.
type RawRow map[string]any

// OrganizationRecord is the normalized, sink-ready representation of one
// organisation snapshot. A nil pointer is the canonical absent value.
type OrganizationRecord struct {
	OrganisationsIdentitet string

	NamnskyddsLopnummer    *int32
	Registreringsland      *string
	Organisationsnamn      *string
	Organisationsform      *string
	Avregistreringsdatum   *time.Time
	Avregistreringsorsak   *string
	PagandeAvveckling      *bool
	Registreringsdatum     *time.Time
	Verksamhetsbeskrivning *string
	Postadress             *string
}

// CompanyColumns returns the ordered column names for COPY into companies.
func CompanyColumns() []string {
	return []string{
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
}

// CopyValues returns the record values in the same order as CompanyColumns(),
// suitable for pgx CopyFromSource and parameterized inserts.
func (r *OrganizationRecord) CopyValues() []any {
	return []any{
		r.OrganisationsIdentitet,
		r.NamnskyddsLopnummer,
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

// Fields returns the record as a column → value map for record-oriented
// APIs. Absent values map to nil and dates are rendered as YYYY-MM-DD.
func (r *OrganizationRecord) Fields() map[string]any {
	cols := CompanyColumns()
	vals := r.CopyValues()
	out := make(map[string]any, len(cols))
	for i, c := range cols {
		out[c] = plain(vals[i])
	}
	return out
}

// plain dereferences a nullable value into a JSON/SQL friendly scalar.
func plain(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *int32:
		if t == nil {
			return nil
		}
		return *t
	case *bool:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(DateLayout)
	default:
		return v
	}
}

// PlainValues is CopyValues with pointers dereferenced and dates rendered as
// text, for drivers without native date support.
func (r *OrganizationRecord) PlainValues() []any {
	vals := r.CopyValues()
	for i, v := range vals {
		vals[i] = plain(v)
	}
	return vals
}

// LoadBatch is an ordered chunk of records sent to the sink in one call.
type LoadBatch struct {
	Number  int // 1-based
	Total   int
	Offset  int // index of the first record in the full sequence
	Records []*OrganizationRecord
}
