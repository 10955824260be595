package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gyeh/bolagsload/internal/model"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func i32p(n int32) *int32   { return &n }

func datep(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testBatch(keys ...string) model.LoadBatch {
	recs := make([]*model.OrganizationRecord, len(keys))
	for i, k := range keys {
		recs[i] = &model.OrganizationRecord{
			OrganisationsIdentitet: k,
			NamnskyddsLopnummer:    i32p(int32(i + 1)),
			Organisationsnamn:      strp("Bolag " + k),
			Registreringsdatum:     datep("2001-02-03"),
			PagandeAvveckling:      boolp(false),
		}
	}
	return model.LoadBatch{Number: 1, Total: 1, Records: recs}
}

func TestUpsertStatement(t *testing.T) {
	cols := []string{"k", "a", "b"}
	got := upsertStatement("public.t", cols, "k", 2, func(n int) string { return "$" + string(rune('0'+n)) })
	want := `INSERT INTO "public"."t" ("k", "a", "b") VALUES ($1, $2, $3), ($4, $5, $6)` +
		` ON CONFLICT ("k") DO UPDATE SET "a" = EXCLUDED."a", "b" = EXCLUDED."b"`
	if got != want {
		t.Errorf("statement:\n got %s\nwant %s", got, want)
	}
}

func TestRowsPerStatement(t *testing.T) {
	if got := rowsPerStatement(65535, 11); got != 5957 {
		t.Errorf("rowsPerStatement(65535, 11) = %d, want 5957", got)
	}
	if got := rowsPerStatement(5, 11); got != 1 {
		t.Errorf("rowsPerStatement(5, 11) = %d, want 1", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdent = %s", got)
	}
	if got := quoteFQN("companies"); got != `"companies"` {
		t.Errorf("quoteFQN = %s", got)
	}
}

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sink.db"), "companies")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM companies`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestSQLiteUpsert(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	b := testBatch("5500000001", "5500000002", "5500000003")
	if err := s.Upsert(ctx, b, model.KeyColumn); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n := countRows(t, s.DB()); n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}

	t.Run("update in place", func(t *testing.T) {
		b2 := testBatch("5500000002")
		b2.Records[0].Organisationsnamn = strp("Nytt Namn AB")
		b2.Records[0].Postadress = nil
		if err := s.Upsert(ctx, b2, model.KeyColumn); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if n := countRows(t, s.DB()); n != 3 {
			t.Fatalf("rows = %d, want 3", n)
		}
		var name string
		var addr sql.NullString
		err := s.DB().QueryRow(`SELECT organisationsnamn, postadress FROM companies WHERE organisationsidentitet = ?`,
			"5500000002").Scan(&name, &addr)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if name != "Nytt Namn AB" {
			t.Errorf("name = %q", name)
		}
		if addr.Valid {
			t.Errorf("postadress should be NULL, got %q", addr.String)
		}
	})

	t.Run("values stored", func(t *testing.T) {
		var date string
		var flag int
		var seq int
		err := s.DB().QueryRow(`SELECT registreringsdatum, pagandeavvecklingselleromsstruktureringsforfarande, namnskyddslopnummer
			FROM companies WHERE organisationsidentitet = ?`, "5500000003").Scan(&date, &flag, &seq)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if date != "2001-02-03" || flag != 0 || seq != 3 {
			t.Errorf("got date=%s flag=%d seq=%d", date, flag, seq)
		}
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := s.Upsert(ctx, b, model.KeyColumn); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
		}
		if n := countRows(t, s.DB()); n != 3 {
			t.Fatalf("rows = %d, want 3", n)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		if err := s.Upsert(ctx, model.LoadBatch{}, model.KeyColumn); err != nil {
			t.Fatalf("Upsert(empty): %v", err)
		}
	})
}

func TestSQLiteUpsertMissingTable(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	other := &SQLite{db: s.DB(), table: "missing", cols: model.CompanyColumns()}
	if err := other.Upsert(ctx, testBatch("5500000001"), model.KeyColumn); err == nil {
		t.Fatal("expected error for missing table")
	}
	if n := countRows(t, s.DB()); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  ", "companies"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenSQLiteCustomTable(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "sink.db"), "foretag_2024")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if err := s.Upsert(ctx, testBatch("5500000001", "5500000002"), model.KeyColumn); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM foretag_2024`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	var companies int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'companies'`).Scan(&companies); err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	if companies != 0 {
		t.Errorf("companies table created alongside foretag_2024")
	}
}

func TestRESTUpsert(t *testing.T) {
	var gotQuery, gotPrefer, gotAuth, gotKey, gotMethod, gotPath string
	var gotRows []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotRows); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	r, err := NewREST(srv.URL+"/", "service-key", "companies")
	if err != nil {
		t.Fatalf("NewREST: %v", err)
	}
	defer r.Close()

	b := testBatch("5500000001", "5500000002")
	b.Records[1].Organisationsnamn = nil
	if err := r.Upsert(context.Background(), b, model.KeyColumn); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/rest/v1/companies" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotQuery != "on_conflict=organisationsidentitet" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotPrefer != "resolution=merge-duplicates,return=minimal" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if gotAuth != "Bearer service-key" || gotKey != "service-key" {
		t.Errorf("auth headers = %q / %q", gotAuth, gotKey)
	}
	if len(gotRows) != 2 {
		t.Fatalf("rows = %d, want 2", len(gotRows))
	}
	if gotRows[0]["registreringsdatum"] != "2001-02-03" {
		t.Errorf("date = %v", gotRows[0]["registreringsdatum"])
	}
	if v, ok := gotRows[1]["organisationsnamn"]; !ok || v != nil {
		t.Errorf("absent name should be explicit null, got %v (present=%v)", v, ok)
	}
	if gotRows[0]["pagandeavvecklingselleromsstruktureringsforfarande"] != false {
		t.Errorf("flag = %v", gotRows[0]["pagandeavvecklingselleromsstruktureringsforfarande"])
	}
}

func TestRESTUpsertClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"duplicate key"}`)
	}))
	defer srv.Close()

	r, err := NewREST(srv.URL, "k", "companies", WithRetry(3, time.Millisecond, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewREST: %v", err)
	}
	err = r.Upsert(context.Background(), testBatch("5500000001"), model.KeyColumn)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "duplicate key") {
		t.Errorf("error = %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestRESTUpsertRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r, err := NewREST(srv.URL, "k", "companies", WithRetry(3, time.Millisecond, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewREST: %v", err)
	}
	if err := r.Upsert(context.Background(), testBatch("5500000001"), model.KeyColumn); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestRESTPing(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.Header.Get("apikey") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	good, _ := NewREST(srv.URL, "good", "companies")
	if err := good.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if gotQuery != "limit=1&select=organisationsidentitet" {
		t.Errorf("query = %q", gotQuery)
	}

	bad, _ := NewREST(srv.URL, "bad", "companies", WithRetry(0, time.Millisecond, time.Millisecond))
	if err := bad.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Ping with bad key: %v", err)
	}
}

func TestNewRESTRejectsRelativeURL(t *testing.T) {
	if _, err := NewREST("not-a-url", "k", "companies"); err == nil {
		t.Fatal("expected error")
	}
}
