package integration

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/catalog"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/infra/persistence/sqlite"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/observability"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/snapshot"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/readonly"
)

type organism struct {
	Name    string `json:"name"`
	Species string `json:"species"`
	Age     int    `json:"age"`
}

// TestIntegrationSmoke publishes a collection through the catalog for each
// storage and blob variant, reads and queries it through the view, archives
// it and checks the owner saw no side effects.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	storeVariants := []struct {
		name string
		open func(t *testing.T) collection.Collection[int, organism]
	}{
		{
			name: "memory-collection",
			open: func(_ *testing.T) collection.Collection[int, organism] {
				return collection.NewList[organism]()
			},
		},
		{
			name: "sqlite-collection",
			open: func(t *testing.T) collection.Collection[int, organism] {
				c, err := sqlite.Open[int, organism](ctx, filepath.Join(t.TempDir(), "smoke.db"), "colony")
				if err != nil {
					t.Fatalf("open sqlite: %v", err)
				}
				t.Cleanup(func() { _ = c.Close() })
				return c
			},
		},
	}
	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{name: "memory-blob", open: func(_ *testing.T) blob.Store { return blob.NewMemory() }},
		{
			name: "filesystem-blob",
			open: func(t *testing.T) blob.Store {
				fs, err := blob.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem blob: %v", err)
				}
				return fs
			},
		},
	}

	for _, sv := range storeVariants {
		for _, bv := range blobVariants {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				owner := sv.open(t)
				for _, o := range []organism{{"m1", "mouse", 4}, {"r1", "rat", 2}, {"m2", "mouse", 1}} {
					if err := owner.Add(o); err != nil {
						t.Fatalf("seed: %v", err)
					}
				}
				metrics := observability.NewExpvarRecorder("")
				cat := catalog.New(catalog.WithMetrics(metrics))
				if err := catalog.Register(cat, "colony", owner); err != nil {
					t.Fatalf("register: %v", err)
				}
				view, err := catalog.View[int, organism](cat, "colony")
				if err != nil {
					t.Fatalf("view: %v", err)
				}

				if view.Count() != 3 || !slices.Equal(view.ToArray(), owner.ToArray()) {
					t.Fatalf("view diverges from owner")
				}
				mice, err := view.Matching(*criteria.New().WhereExpr(criteria.Eq("species", "mouse")).OrderBy("age", criteria.Asc))
				if err != nil {
					t.Fatalf("matching: %v", err)
				}
				if !slices.Equal(mice.Keys(), []int{2, 0}) {
					t.Fatalf("unexpected matches %v", mice.Keys())
				}
				if _, _, err := view.Remove(0); !errors.Is(err, readonly.ErrReadOnly) {
					t.Fatalf("expected read-only violation, got %v", err)
				}

				store := bv.open(t)
				if _, err := snapshot.Save[int, organism](ctx, store, "colony.json", view); err != nil {
					t.Fatalf("save: %v", err)
				}
				restored, err := snapshot.Load[int, organism](ctx, store, "colony.json")
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if !slices.Equal(restored.ToArray(), owner.ToArray()) {
					t.Fatalf("restored snapshot differs")
				}

				if err := owner.Add(organism{"h1", "hamster", 1}); err != nil {
					t.Fatalf("owner add: %v", err)
				}
				if view.Count() != 4 {
					t.Fatalf("owner mutation not visible through view")
				}
				snap := metrics.Snapshot()
				if snap.Counts["issued"]["colony"] != 1 || snap.Counts["violation"]["colony/"+readonly.ActionRemove] != 1 {
					t.Fatalf("unexpected metrics %+v", snap)
				}
			})
		}
	}
}
