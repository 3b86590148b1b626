package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/54b3r/bclegal-go/internal/recommend"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

const lawyersArray = `[
  {"Name":"Jane Doe","Location":"Vancouver","Specialty":"Family Law","FeeStructure":"Sliding scale","embedding":[0.1,0.2,0.3]},
  {"Name":"","Specialty":"Tax Law","embedding":[0,0,1]},
  {"Name":"John Roe","Location":"Victoria","Specialty":"Criminal Law","embedding":[0.3,0.2,0.1]}
]`

const resourcesObject = `{
  "b": {"source":"Clicklaw","text":"Tenant rights","embedding":[1,0,0]},
  "a": {"source":"Legal Aid BC","text":"Family law help","embedding":[0,1,0]},
  "c": {"source":"Empty","text":"","embedding":[0,0,1]}
}`

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lp := writeFile(t, dir, "lawyers.json", lawyersArray)
	rp := writeFile(t, dir, "resources.json", resourcesObject)

	c, err := LoadJSON(lp, rp, discardLogger())
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}

	if len(c.Lawyers) != 2 || c.Lawyers[0].Name != "Jane Doe" || c.Lawyers[1].ID != "2" {
		t.Errorf("lawyers = %+v", c.Lawyers)
	}
	if len(c.Lawyers[0].Embedding) != 3 {
		t.Errorf("embedding not decoded: %v", c.Lawyers[0].Embedding)
	}
	if len(c.Resources) != 2 || c.Resources[0].ID != "a" || c.Resources[1].ID != "b" {
		t.Errorf("resources not in sorted key order: %+v", c.Resources)
	}
}

func TestLoadJSON_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "empty file", body: "  ", want: ErrEmpty},
		{name: "scalar", body: `"lawyers"`},
		{name: "malformed", body: `[{"Name":`},
		{name: "no usable records", body: `[{"Name":""}]`, want: ErrEmpty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := writeFile(t, dir, tc.name+".json", tc.body)
			_, err := LoadJSON(p, "", discardLogger())
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := LoadJSON(filepath.Join(dir, "missing.json"), "", nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func openTestCatalog(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory catalog: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_SQLite_ImportAndLoad(t *testing.T) {
	t.Parallel()
	s := openTestCatalog(t)
	ctx := context.Background()

	want := Fallback()
	if err := s.Import(ctx, want); err != nil {
		t.Fatalf("import: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Lawyers) != len(want.Lawyers) || len(got.Resources) != len(want.Resources) {
		t.Fatalf("counts = %d/%d, want %d/%d", len(got.Lawyers), len(got.Resources), len(want.Lawyers), len(want.Resources))
	}
	for i := range want.Lawyers {
		if got.Lawyers[i].Name != want.Lawyers[i].Name || got.Lawyers[i].FeeStructure != want.Lawyers[i].FeeStructure {
			t.Errorf("lawyer %d = %+v", i, got.Lawyers[i])
		}
		for j, x := range want.Lawyers[i].Embedding {
			if got.Lawyers[i].Embedding[j] != x {
				t.Fatalf("lawyer %d embedding differs at %d", i, j)
			}
		}
	}
	if got.Resources[2].Source != want.Resources[2].Source {
		t.Errorf("resource order not preserved")
	}
}

func Test_SQLite_OpenAppliesPragmas(t *testing.T) {
	t.Parallel()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var busy int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}
}

func Test_SQLite_ImportReplaces(t *testing.T) {
	t.Parallel()
	s := openTestCatalog(t)
	ctx := context.Background()

	if err := s.Import(ctx, Fallback()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	small := &Catalog{Resources: []*recommend.Resource{{ID: "only", Text: "only one"}}}
	if err := s.Import(ctx, small); err != nil {
		t.Fatalf("second import: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Lawyers) != 0 || len(got.Resources) != 1 {
		t.Errorf("got %d lawyers, %d resources", len(got.Lawyers), len(got.Resources))
	}
}

func Test_SQLite_LoadEmpty(t *testing.T) {
	t.Parallel()
	s := openTestCatalog(t)

	if _, err := s.Load(context.Background()); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	t.Parallel()

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error")
	}
	v, err := decodeVector(encodeVector([]float32{1.5, -2}))
	if err != nil || len(v) != 2 || v[0] != 1.5 || v[1] != -2 {
		t.Errorf("round trip = %v, %v", v, err)
	}
}

func TestImportFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lp := writeFile(t, dir, "lawyers.json", lawyersArray)
	db := filepath.Join(dir, "catalog.db")

	c, err := ImportFiles(context.Background(), db, lp, "", 0)
	if err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if len(c.Lawyers) != 2 {
		t.Errorf("imported %d lawyers", len(c.Lawyers))
	}

	loaded, src, err := Load(context.Background(), &Config{SQLitePath: db, Logger: discardLogger()})
	if err != nil || src != SourceSQLite || len(loaded.Lawyers) != 2 {
		t.Errorf("Load = %v lawyers from %s, err %v", len(loaded.Lawyers), src, err)
	}
}

func TestImportFiles_LockHeld(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lp := writeFile(t, dir, "lawyers.json", lawyersArray)
	db := filepath.Join(dir, "catalog.db")

	unlock, err := acquireImportLock(context.Background(), db, DefaultLockTimeout)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer unlock()

	if _, err := ImportFiles(context.Background(), db, lp, "", 300*time.Millisecond); err == nil {
		t.Error("expected lock timeout while another import holds the lock")
	}
}

func TestLoad_Fallback(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	c, src, err := Load(context.Background(), &Config{
		SQLitePath:  filepath.Join(t.TempDir(), "absent.db"),
		LawyersPath: filepath.Join(t.TempDir(), "absent.json"),
		Metrics:     m,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src != SourceFallback || c.Empty() {
		t.Fatalf("src = %s, empty = %v", src, c.Empty())
	}
	if got := testutil.ToFloat64(m.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("lawyer")); got != float64(len(c.Lawyers)) {
		t.Errorf("lawyer gauge = %v", got)
	}
}

func TestFallback_RanksForUser(t *testing.T) {
	t.Parallel()

	c := Fallback()
	for _, l := range c.Lawyers {
		if len(l.Embedding) != recommend.DefaultDimension {
			t.Fatalf("%s has dimension %d", l.Name, len(l.Embedding))
		}
	}

	r := recommend.New(&recommend.Config{Lawyers: c.Lawyers, Resources: c.Resources, Logger: discardLogger()})
	out := r.Recommend(context.Background(), recommend.UserProfile{
		Query:        "my landlord will not return my deposit",
		LegalType:    "tenancy",
		Demographics: recommend.LowIncome,
	})
	if len(out.Lawyers) != len(c.Lawyers) || len(out.Resources) != len(c.Resources) {
		t.Errorf("got %d lawyers, %d resources", len(out.Lawyers), len(out.Resources))
	}
	if out.Resources[0].Source != "Residential Tenancy Branch" {
		t.Errorf("top resource = %s", out.Resources[0].Source)
	}
}
