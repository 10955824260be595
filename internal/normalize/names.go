package normalize

import "strings"

// NameSuffixDelim separates the registered name from a synthetic suffix in
// the snapshot export ("Acme AB$1").
const NameSuffixDelim = "$"

// CanonicalName keeps the trimmed part of a name before the first suffix
// delimiter. Returns nil if nothing is left.
func CanonicalName(s string) *string {
	before, _, _ := strings.Cut(s, NameSuffixDelim)
	before = strings.TrimSpace(before)
	if before == "" {
		return nil
	}
	return &before
}
