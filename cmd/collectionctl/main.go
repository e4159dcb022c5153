// Command collectionctl inspects a stored collection through a read-only
// view. The storage backend is selected by the ROCOLLECTIONS_* environment
// variables (see persistence.OpenFromEnv and blob.Open).
//
// Usage:
//
//	collectionctl [-collection name] [-v] [-metrics] [-expvar] <command> [flags]
//
// Commands:
//
//	list                                   print every entry
//	match -field f -op = -value v          print entries matching a criterion
//	snapshot -key k                        archive the collection to blob storage
//	import -file data.json                 load a JSON object of key/value pairs
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/catalog"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/observability"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/snapshot"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Record is the value type handled by the command: an arbitrary JSON object.
type Record = map[string]any

var (
	exitFunc  = os.Exit
	openStore = persistence.OpenFromEnv[string, Record]
	openBlobs = blob.Open
)

var errUsage = errors.New("usage: collectionctl [-collection name] [-v] [-metrics] [-expvar] list|match|snapshot|import [flags]")

func main() {
	code := cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("collectionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("collection", "default", "collection name")
	verbose := fs.Bool("v", false, "debug logging")
	showMetrics := fs.Bool("metrics", false, "print view metrics to stderr on exit")
	showExpvar := fs.Bool("expvar", false, "print view counters as expvar JSON to stderr on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stderr, errUsage)
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	reg := prometheus.NewRegistry()
	prom, err := observability.NewPrometheusRecorder(reg, "collectionctl")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "metrics: %v\n", err)
		return 1
	}
	var metrics observability.MetricsRecorder = prom
	var counters *observability.ExpvarRecorder
	if *showExpvar {
		counters = observability.NewExpvarRecorder("")
		metrics = observability.MultiRecorder{prom, counters}
	}

	store, err := openStore(ctx, *name)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open collection: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	cat := catalog.New(catalog.WithLogger(logger), catalog.WithMetrics(metrics))
	if err := catalog.Register[string, Record](cat, *name, store); err != nil {
		_, _ = fmt.Fprintf(stderr, "register: %v\n", err)
		return 1
	}
	env := &environment{ctx: ctx, name: *name, store: store, catalog: cat, stdout: stdout, stderr: stderr}

	err = env.dispatch(fs.Arg(0), fs.Args()[1:])
	if *showMetrics {
		printMetrics(reg, stderr)
	}
	if counters != nil {
		_ = json.NewEncoder(stderr).Encode(counters.Snapshot())
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "%s failed: %v\n", fs.Arg(0), err)
		return 1
	}
}

type environment struct {
	ctx     context.Context
	name    string
	store   persistence.Store[string, Record]
	catalog *catalog.Catalog
	stdout  io.Writer
	stderr  io.Writer
}

func (e *environment) dispatch(cmd string, args []string) error {
	switch cmd {
	case "list":
		return e.list(args)
	case "match":
		return e.match(args)
	case "snapshot":
		return e.snapshot(args)
	case "import":
		return e.importFile(args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (e *environment) view() (collection.Collection[string, Record], error) {
	return catalog.View[string, Record](e.catalog, e.name)
}

func (e *environment) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := e.view()
	if err != nil {
		return err
	}
	return writeEntries(e.stdout, v)
}

func (e *environment) match(args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	field := fs.String("field", "", "dotted field path")
	op := fs.String("op", "=", "operator: = <> < <= > >= IN NIN CONTAINS STARTS_WITH ENDS_WITH IS_NULL")
	value := fs.String("value", "", "comparison value, parsed as JSON when possible")
	order := fs.String("order", "", "field to order by")
	desc := fs.Bool("desc", false, "descending order")
	offset := fs.Int("offset", 0, "number of matches to skip")
	limit := fs.Int("limit", 0, "maximum number of matches (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *field == "" {
		return fmt.Errorf("%w: match requires -field", errUsage)
	}
	operator, err := criteria.ParseOperator(*op)
	if err != nil {
		return err
	}
	crit := criteria.New().
		WhereExpr(criteria.Comparison{Field: *field, Op: operator, Value: parseValue(*value)}).
		SetFirstResult(*offset).
		SetMaxResults(*limit)
	if *order != "" {
		dir := criteria.Asc
		if *desc {
			dir = criteria.Desc
		}
		crit.OrderBy(*order, dir)
	}
	v, err := e.view()
	if err != nil {
		return err
	}
	q, ok := v.(collection.Queryable[string, Record])
	if !ok {
		return fmt.Errorf("collection %s cannot be queried", e.name)
	}
	got, err := q.Matching(*crit)
	if err != nil {
		return err
	}
	return writeEntries(e.stdout, got)
}

func (e *environment) snapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	key := fs.String("key", "", "blob key (default <collection>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		*key = e.name + ".json"
	}
	store, err := openBlobs(e.ctx)
	if err != nil {
		return err
	}
	v, err := e.view()
	if err != nil {
		return err
	}
	info, err := snapshot.Save[string, Record](e.ctx, store, *key, v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "saved %s (%d bytes, %s driver)\n", info.Key, info.Size, store.Driver())
	return err
}

// importFile writes through the owning collection, never the view.
func (e *environment) importFile(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	path := fs.String("file", "", "JSON object mapping keys to records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: import requires -file", errUsage)
	}
	b, err := os.ReadFile(*path) // #nosec G304 -- path comes from the -file flag; this CLI accepts user-supplied paths.
	if err != nil {
		return err
	}
	var records map[string]Record
	if err := json.Unmarshal(b, &records); err != nil {
		return fmt.Errorf("decode %s: %w", *path, err)
	}
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.store.Set(k, records[k]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(e.stdout, "imported %d records into %s\n", len(keys), e.name)
	return err
}

// parseValue decodes s as JSON so numbers, booleans, null and lists keep
// their type; anything else is taken as a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func writeEntries(w io.Writer, r collection.Readable[string, Record]) error {
	enc := json.NewEncoder(w)
	for _, e := range r.ToArray() {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(g prometheus.Gatherer, w io.Writer) {
	families, err := g.Gather()
	if err != nil {
		_, _ = fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			_, _ = fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
}
