// Package postgres persists collections in PostgreSQL through pgx's
// database/sql driver. Payloads are stored as JSONB so criteria can be
// evaluated by the server.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlcollection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/collections?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect is the PostgreSQL flavour of sqlcollection.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + sqlcollection.Table + ` (
		collection TEXT NOT NULL,
		entry_key TEXT NOT NULL,
		position BIGINT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (collection, entry_key)
	)`,
		`CREATE INDEX IF NOT EXISTS ` + sqlcollection.Table + `_position ON ` + sqlcollection.Table + ` (collection, position)`,
	}
}

func (Dialect) Bind(n int) string        { return fmt.Sprintf("$%d", n) }
func (Dialect) PayloadBind(n int) string { return fmt.Sprintf("$%d::jsonb", n) }

func jsonPath(path []string) string {
	return "'{" + strings.Join(path, ",") + "}'"
}

// ScalarField extracts the path as text and casts it to match sample so
// numbers, booleans and timestamps compare by value rather than lexically.
func (Dialect) ScalarField(path []string, sample any) string {
	expr := "(payload #>> " + jsonPath(path) + ")"
	if sample == nil {
		return expr
	}
	if _, ok := sample.(time.Time); ok {
		return expr + "::timestamptz"
	}
	switch reflect.TypeOf(sample).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return expr + "::numeric"
	case reflect.Bool:
		return expr + "::boolean"
	}
	return expr
}

// OrderField keeps the jsonb value so numbers sort numerically.
func (Dialect) OrderField(path []string) string {
	return "(payload #> " + jsonPath(path) + ")"
}

func (Dialect) Pattern(expr, param string) string { return expr + " LIKE " + param }

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (Dialect) PatternArg(op criteria.Operator, needle string) string {
	esc := likeEscaper.Replace(needle)
	switch op {
	case criteria.OpStartsWith:
		return esc + "%"
	case criteria.OpEndsWith:
		return "%" + esc
	default:
		return "%" + esc + "%"
	}
}

func (Dialect) NoLimit() string { return "ALL" }

func (Dialect) Arg(v any) any { return v }

// Open connects to dsn (falls back to defaultDSN), applies the schema and
// returns the collection stored under name. Close on the collection closes
// the connection pool.
func Open[K comparable, V any](ctx context.Context, dsn, name string) (*sqlcollection.Collection[K, V], error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	c, err := sqlcollection.Open[K, V](ctx, db, Dialect{}, name, true)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}
