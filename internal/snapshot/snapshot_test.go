package snapshot

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/readonly"
)

type cage struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
}

func TestSaveViewAndLoad(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	inner := collection.FromMap(map[string]cage{"b": {"B", 2}, "a": {"A", 4}})
	view := readonly.MustNew[string, cage](inner)
	before := inner.ToArray()

	info, err := Save[string, cage](ctx, store, "cages/1.json", view)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if info.ContentType != "application/json" || info.Metadata["count"] != "2" {
		t.Fatalf("unexpected info %+v", info)
	}
	if !slices.Equal(inner.ToArray(), before) {
		t.Fatalf("saving a view changed the wrapped collection")
	}

	restored, err := Load[string, cage](ctx, store, "cages/1.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(restored.ToArray(), before) {
		t.Fatalf("restored %v want %v", restored.ToArray(), before)
	}
	if err := restored.Set("c", cage{"C", 1}); err != nil {
		t.Fatalf("restored collection should be mutable: %v", err)
	}
	if inner.ContainsKey("c") {
		t.Fatalf("restored collection aliases the original")
	}
}

func TestSaveEmptyAndDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	empty := collection.NewList[int]()
	if _, err := Save[int, int](ctx, store, "empty", empty); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Save[int, int](ctx, store, "empty", empty); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, err := Load[int, int](ctx, store, "empty")
	if err != nil || !got.IsEmpty() {
		t.Fatalf("load empty: %v %v", got, err)
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	if _, err := Load[int, int](ctx, store, "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	docs := map[string]string{
		"garbage":   `{`,
		"version":   `{"version":9,"count":0,"entries":[]}`,
		"count":     `{"version":1,"count":2,"entries":[{"key":0,"value":1}]}`,
		"duplicate": `{"version":1,"count":2,"entries":[{"key":0,"value":1},{"key":0,"value":2}]}`,
	}
	for key, body := range docs {
		if _, err := store.Put(ctx, key, strings.NewReader(body), blob.PutOptions{}); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := Load[int, int](ctx, store, key); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", key, err)
		}
	}
}
