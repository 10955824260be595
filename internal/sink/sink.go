// Package sink writes load batches to a relational store with
// insert-or-update semantics keyed on a natural key column.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/gyeh/bolagsload/internal/model"
)

// Upserter is a sink that accepts or rejects a batch as a unit.
type Upserter interface {
	// Ping verifies the sink is reachable before any data moves.
	Ping(ctx context.Context) error
	// Upsert inserts each record or updates the row sharing its conflict key
	// value. On error the sink is left unchanged by this call.
	Upsert(ctx context.Context, b model.LoadBatch, conflictKey string) error
	Close() error
}

// quoteIdent safely quotes a single identifier segment.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// quoteFQN quotes a possibly schema-qualified name like "public.companies".
func quoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// upsertStatement builds a multi-row INSERT ... ON CONFLICT DO UPDATE for
// rows records. placeholder renders the n-th (1-based) bind parameter.
func upsertStatement(table string, cols []string, key string, rows int, placeholder func(n int) string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteFQN(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(") VALUES ")

	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(placeholder(n))
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(quoteIdent(key))
	b.WriteString(") DO UPDATE SET ")
	first := true
	for _, c := range cols {
		if c == key {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", quoteIdent(c), quoteIdent(c))
	}
	return b.String()
}

// rowsPerStatement caps the rows of one statement so that the bind
// parameter count stays under the driver limit.
func rowsPerStatement(maxParams, cols int) int {
	n := maxParams / cols
	if n < 1 {
		return 1
	}
	return n
}
