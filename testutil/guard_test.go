package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestStorageImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"database/sql", true},
		{"database/sql/driver", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"github.com/prometheus/client_golang/prometheus", true},
		{"database/sqlx", false},
		{"encoding/json", false},
	}
	for _, c := range cases {
		if got := StorageImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"example.com/m/internal/secret\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport _ \"database/sql\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, func(p string) bool {
		return InternalImportForbidden(p) || StorageImportForbidden(p)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "internal/secret") {
		t.Fatalf("unexpected violations %v", viols)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

type recordFatal struct{ msg string }

func (r *recordFatal) Fatalf(format string, args ...any) { r.msg = format }

func TestFailHelpers(t *testing.T) {
	var r recordFatal
	failIfDirectViolations(&r, "why", nil)
	failIfTransitiveViolations(&r, "why", nil)
	if r.msg != "" {
		t.Fatalf("no violations should not fail")
	}
	failIfDirectViolations(&r, "why", []string{"x"})
	if !strings.Contains(r.msg, "direct") {
		t.Fatalf("expected direct failure, got %q", r.msg)
	}
	failIfTransitiveViolations(&r, "why", []string{"x"})
	if !strings.Contains(r.msg, "transitive") {
		t.Fatalf("expected transitive failure, got %q", r.msg)
	}
}

func TestTransitiveViolationsWalkGraph(t *testing.T) {
	orig := loadPackages
	t.Cleanup(func() { loadPackages = orig })

	leaf := &packages.Package{PkgPath: "database/sql", Imports: map[string]*packages.Package{}}
	mid := &packages.Package{PkgPath: "example.com/m/internal/infra", Imports: map[string]*packages.Package{"database/sql": leaf}}
	root := &packages.Package{PkgPath: "example.com/m/pkg/a", Imports: map[string]*packages.Package{"example.com/m/internal/infra": mid}}
	loadPackages = func(string) ([]*packages.Package, error) { return []*packages.Package{root}, nil }

	viols, err := transitiveDependencyViolations("./...", StorageImportForbidden)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql" {
		t.Fatalf("unexpected violations %v", viols)
	}

	loadPackages = func(string) ([]*packages.Package, error) { return nil, errors.New("boom") }
	if _, err := transitiveDependencyViolations("./...", StorageImportForbidden); err == nil {
		t.Fatalf("expected load error")
	}

	broken := &packages.Package{PkgPath: "example.com/m/broken", Errors: []packages.Error{{Msg: "bad"}}}
	loadPackages = func(string) ([]*packages.Package, error) { return []*packages.Package{broken}, nil }
	if _, err := transitiveDependencyViolations("./...", StorageImportForbidden); err == nil {
		t.Fatalf("expected package error to surface")
	}
}
