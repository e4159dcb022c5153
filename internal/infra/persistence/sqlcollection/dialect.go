// Package sqlcollection implements collection.Collection on top of a single
// SQL table. Entries are hydrated into memory when the collection is opened
// and every mutation is written through, so reads never touch the database.
// Matching is compiled to SQL and evaluated by the server.
package sqlcollection

import "github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"

// Table holds entries of every collection, distinguished by name.
const Table = "collection_entries"

// Dialect isolates the SQL differences between backends.
type Dialect interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Schema returns idempotent DDL statements creating Table.
	Schema() []string
	// Bind returns the placeholder for the n-th (1-based) argument.
	Bind(n int) string
	// PayloadBind is Bind for the JSON payload column.
	PayloadBind(n int) string
	// ScalarField extracts a JSON path from payload for comparison against
	// sample, which carries the Go type of the right-hand side.
	ScalarField(path []string, sample any) string
	// OrderField extracts a JSON path from payload for ORDER BY.
	OrderField(path []string) string
	// Pattern builds a case-sensitive match of expr against the bound
	// pattern param.
	Pattern(expr, param string) string
	// PatternArg converts needle into the pattern param for op.
	PatternArg(op criteria.Operator, needle string) string
	// NoLimit is the LIMIT value meaning unlimited.
	NoLimit() string
	// Arg converts a comparison value into a driver argument.
	Arg(v any) any
}
