package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want pgx.Identifier
		sql  string
	}{
		{"companies", pgx.Identifier{"companies"}, `"companies"`},
		{"public.companies", pgx.Identifier{"public", "companies"}, `"public"."companies"`},
		{".companies", pgx.Identifier{"companies"}, `"companies"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Identifier(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Identifier(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Identifier(%q) = %v, want %v", tt.in, got, tt.want)
				}
			}
			if s := got.Sanitize(); s != tt.sql {
				t.Errorf("Sanitize() = %s, want %s", s, tt.sql)
			}
		})
	}
}
