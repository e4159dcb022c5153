// Package sqlite persists collections in an embedded SQLite file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlcollection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const defaultPath = "collections.db"

// Dialect is the SQLite flavour of sqlcollection.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + sqlcollection.Table + ` (
		collection TEXT NOT NULL,
		entry_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (collection, entry_key)
	)`,
		`CREATE INDEX IF NOT EXISTS ` + sqlcollection.Table + `_position ON ` + sqlcollection.Table + ` (collection, position)`,
	}
}

func (Dialect) Bind(int) string        { return "?" }
func (Dialect) PayloadBind(int) string { return "?" }

func (Dialect) ScalarField(path []string, _ any) string {
	return fmt.Sprintf("json_extract(payload, '$.%s')", strings.Join(path, "."))
}

func (d Dialect) OrderField(path []string) string { return d.ScalarField(path, nil) }

// Pattern uses GLOB, which unlike LIKE is case-sensitive.
func (Dialect) Pattern(expr, param string) string { return expr + " GLOB " + param }

var globEscaper = strings.NewReplacer("*", "[*]", "?", "[?]", "[", "[[]")

func (Dialect) PatternArg(op criteria.Operator, needle string) string {
	esc := globEscaper.Replace(needle)
	switch op {
	case criteria.OpStartsWith:
		return esc + "*"
	case criteria.OpEndsWith:
		return "*" + esc
	default:
		return "*" + esc + "*"
	}
}

func (Dialect) NoLimit() string { return "-1" }

// Arg maps values onto what json_extract yields: booleans become 0/1 and
// times their JSON text form.
func (Dialect) Arg(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}

// Open opens (creating when needed) the SQLite file at path and returns the
// collection stored under name. Close on the collection closes the file.
func Open[K comparable, V any](ctx context.Context, path, name string) (*sqlcollection.Collection[K, V], error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite allows a single writer
	c, err := sqlcollection.Open[K, V](ctx, db, Dialect{}, name, true)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}
