package sqlcollection_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlcollection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlite"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shared.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCompileShapes(t *testing.T) {
	d := sqlite.Dialect{}
	cases := []struct {
		name  string
		crit  *criteria.Criteria
		where string
		tail  string
		args  int
	}{
		{"all", criteria.New(), "", " ORDER BY position", 1},
		{"eq nil", criteria.New().WhereExpr(criteria.Eq("a", nil)), " AND json_extract(payload, '$.a') IS NULL", " ORDER BY position", 1},
		{"neq nil", criteria.New().WhereExpr(criteria.Neq("a", nil)), " AND json_extract(payload, '$.a') IS NOT NULL", " ORDER BY position", 1},
		{"empty not in", criteria.New().WhereExpr(criteria.NotIn("a")), " AND 1=1", " ORDER BY position", 1},
		{"empty or", criteria.New().WhereExpr(criteria.Or()), " AND 1=0", " ORDER BY position", 1},
		{"limit", criteria.New().SetMaxResults(3), "", " ORDER BY position LIMIT 3", 1},
		{"offset", criteria.New().SetFirstResult(2), "", " ORDER BY position LIMIT -1 OFFSET 2", 1},
		{"nested path", criteria.New().WhereExpr(criteria.Lte("x.y", 4)).OrderBy("x.y", criteria.Asc),
			" AND json_extract(payload, '$.x.y') <= ?", " ORDER BY json_extract(payload, '$.x.y') ASC NULLS FIRST, position", 2},
	}
	prefix := "SELECT entry_key, payload FROM collection_entries WHERE collection = ?"
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := sqlcollection.Compile(d, "c", *tc.crit)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if want := prefix + tc.where + tc.tail; q.SQL != want {
				t.Fatalf("got %s\nwant %s", q.SQL, want)
			}
			if len(q.Args) != tc.args {
				t.Fatalf("expected %d args, got %v", tc.args, q.Args)
			}
		})
	}
}

func TestCompileRejectsBadInput(t *testing.T) {
	d := sqlite.Dialect{}
	if _, err := sqlcollection.Compile(d, "c", *criteria.New().SetMaxResults(-1)); err == nil {
		t.Fatalf("expected paging error")
	}
	bad := criteria.Criteria{Where: criteria.Comparison{Field: "a", Op: criteria.OpIn, Value: 5}}
	if _, err := sqlcollection.Compile(d, "c", bad); err == nil {
		t.Fatalf("expected list error")
	}
}

func TestSharedDatabaseIsNotClosed(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	c, err := sqlcollection.Open[string, int](ctx, db, sqlite.Dialect{}, "counts", false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Set("a", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("shared db closed by collection: %v", err)
	}
	again, err := sqlcollection.Open[string, int](ctx, db, sqlite.Dialect{}, "counts", false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := again.Get("a"); !ok || v != 1 {
		t.Fatalf("expected persisted value, got %v %v", v, ok)
	}
}

func TestOpenFailsOnUndecodablePayload(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	if _, err := sqlcollection.Open[string, int](ctx, db, sqlite.Dialect{}, "counts", false); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO collection_entries (collection, entry_key, position, payload) VALUES ('counts', '"a"', 0, '"not a number"')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := sqlcollection.Open[string, int](ctx, db, sqlite.Dialect{}, "counts", false)
	if err == nil || !strings.Contains(err.Error(), "decode value") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFailedInsertRollsBackMemory(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	c, err := sqlcollection.Open[int, string](ctx, db, sqlite.Dialect{}, "list", false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE collection_entries"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := c.Add("x"); err == nil {
		t.Fatalf("expected insert error")
	}
	if !c.IsEmpty() {
		t.Fatalf("memory not rolled back: %v", c.ToArray())
	}
	if err := c.Set(1, "y"); err == nil || c.ContainsKey(1) {
		t.Fatalf("set should fail without touching memory")
	}
	if _, err := c.MatchingContext(ctx, *criteria.New()); err == nil {
		t.Fatalf("expected matching error")
	}
	if err := c.Clear(); err == nil {
		t.Fatalf("expected clear error")
	}
}

func TestOpenRequiresName(t *testing.T) {
	_, err := sqlcollection.Open[int, int](context.Background(), openDB(t), sqlite.Dialect{}, "", false)
	if err == nil || !strings.Contains(err.Error(), "name required") {
		t.Fatalf("expected name error, got %v", err)
	}
}
