package source

import (
	"fmt"

	"github.com/gyeh/bolagsload/internal/model"
	"github.com/gyeh/bolagsload/internal/normalize"
)

// ValidateColumns checks that the input carries the natural key column and at
// least one other known attribute, after case folding.
func ValidateColumns(columns []string) error {
	n := normalize.New()
	known := make(map[string]bool)
	for _, c := range model.CompanyColumns() {
		known[c] = true
	}

	var hasKey bool
	var attrs int
	for _, c := range columns {
		name := n.FieldName(c)
		if name == model.KeyColumn {
			hasKey = true
			continue
		}
		if known[name] {
			attrs++
		}
	}
	if !hasKey {
		return fmt.Errorf("missing required column: %s", model.KeyColumn)
	}
	if attrs == 0 {
		return fmt.Errorf("no attribute columns found besides %s", model.KeyColumn)
	}
	return nil
}
