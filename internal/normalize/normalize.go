package normalize

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/gyeh/bolagsload/internal/model"
)

// ErrEmptyRecord is returned when every recognised field of a row is absent.
// Callers skip the row and count it; it is not an error condition.
var ErrEmptyRecord = errors.New("empty record")

// MalformedRowError reports a row that cannot become a record: the natural
// key is missing or a typed field does not parse.
type MalformedRowError struct {
	Field string
	Value any
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("malformed row: %s: %s", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed row: %s=%v: %s", e.Field, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

var errMissingKey = errors.New("natural key is missing")

// Normalizer turns raw input rows into OrganizationRecords. It caches folded
// field names and is not safe for concurrent use.
type Normalizer struct {
	fold   cases.Caser
	folded map[string]string
	known  map[string]bool
}

// New returns a Normalizer for the companies column set.
func New() *Normalizer {
	known := make(map[string]bool)
	for _, c := range model.CompanyColumns() {
		known[c] = true
	}
	return &Normalizer{
		fold:   cases.Fold(),
		folded: make(map[string]string),
		known:  known,
	}
}

// FieldName case-folds a raw column name.
func (n *Normalizer) FieldName(raw string) string {
	if f, ok := n.folded[raw]; ok {
		return f
	}
	f := strings.TrimSpace(n.fold.String(raw))
	n.folded[raw] = f
	return f
}

// IsSynthetic reports whether a folded column name is an artifact of an
// earlier dataframe export rather than data.
func IsSynthetic(name string) bool {
	return strings.HasPrefix(name, "__index_level_") || name == "unnamed: 0"
}

// Record normalizes one raw row. It returns ErrEmptyRecord when every
// recognised field is absent and *MalformedRowError when the row cannot be
// typed.
func (n *Normalizer) Record(raw model.RawRow) (*model.OrganizationRecord, error) {
	present := make(map[string]any, len(n.known))
	for k, v := range raw {
		name := n.FieldName(k)
		if IsSynthetic(name) || !n.known[name] || Absent(v) {
			continue
		}
		present[name] = v
	}
	if len(present) == 0 {
		return nil, ErrEmptyRecord
	}

	key := Text(present[model.KeyColumn])
	if key == nil {
		return nil, &MalformedRowError{Field: model.KeyColumn, Err: errMissingKey}
	}

	rec := &model.OrganizationRecord{
		OrganisationsIdentitet: *key,
		Registreringsland:      Text(present["registreringsland"]),
		Organisationsform:      Text(present["organisationsform"]),
		Avregistreringsorsak:   Text(present["avregistreringsorsak"]),
		Verksamhetsbeskrivning: Text(present["verksamhetsbeskrivning"]),
		Postadress:             Text(present["postadress"]),
	}
	if name := Text(present["organisationsnamn"]); name != nil {
		rec.Organisationsnamn = CanonicalName(*name)
	}

	var err error
	if rec.NamnskyddsLopnummer, err = Int32(present["namnskyddslopnummer"]); err != nil {
		return nil, malformed("namnskyddslopnummer", present, err)
	}
	if rec.Registreringsdatum, err = Date(present["registreringsdatum"]); err != nil {
		return nil, malformed("registreringsdatum", present, err)
	}
	if rec.Avregistreringsdatum, err = Date(present["avregistreringsdatum"]); err != nil {
		return nil, malformed("avregistreringsdatum", present, err)
	}
	const flagCol = "pagandeavvecklingselleromsstruktureringsforfarande"
	if rec.PagandeAvveckling, err = Bool(present[flagCol]); err != nil {
		return nil, malformed(flagCol, present, err)
	}

	return rec, nil
}

func malformed(field string, present map[string]any, err error) error {
	return &MalformedRowError{Field: field, Value: present[field], Err: err}
}
