// Package snapshot archives the contents of a collection, typically a
// read-only view handed out by the catalog, into blob storage and restores
// it as an independent collection.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
)

const (
	formatVersion = 1
	contentType   = "application/json"
)

// ErrCorrupt is returned by Load when the stored document is inconsistent.
var ErrCorrupt = errors.New("snapshot: corrupt document")

// Document is the stored JSON form of a snapshot.
type Document[K comparable, V any] struct {
	Version int                      `json:"version"`
	TakenAt time.Time                `json:"taken_at"`
	Count   int                      `json:"count"`
	Entries []collection.Entry[K, V] `json:"entries"`
}

// Save writes the entries of r, in collection order, to store under key.
// Only reads are performed on r. Put is create-only, so an existing key
// yields an error wrapping blob.ErrExists.
func Save[K comparable, V any](ctx context.Context, store blob.Store, key string, r collection.Readable[K, V]) (blob.Info, error) {
	entries := r.ToArray()
	doc := Document[K, V]{Version: formatVersion, TakenAt: time.Now().UTC(), Count: len(entries), Entries: entries}
	b, err := json.Marshal(doc)
	if err != nil {
		return blob.Info{}, fmt.Errorf("snapshot: encode %s: %w", key, err)
	}
	info, err := store.Put(ctx, key, bytes.NewReader(b), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"count": fmt.Sprint(len(entries))},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("snapshot: store %s: %w", key, err)
	}
	return info, nil
}

// Load reads the snapshot at key into a new, mutable ArrayCollection.
func Load[K comparable, V any](ctx context.Context, store blob.Store, key string) (*collection.ArrayCollection[K, V], error) {
	doc, err := Read[K, V](ctx, store, key)
	if err != nil {
		return nil, err
	}
	return collection.NewArrayCollection(doc.Entries...), nil
}

// Read returns the stored document at key after checking its consistency.
func Read[K comparable, V any](ctx context.Context, store blob.Store, key string) (Document[K, V], error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return Document[K, V]{}, fmt.Errorf("snapshot: fetch %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return Document[K, V]{}, fmt.Errorf("snapshot: read %s: %w", key, err)
	}
	var doc Document[K, V]
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document[K, V]{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	if doc.Version != formatVersion {
		return Document[K, V]{}, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, key, doc.Version)
	}
	if doc.Count != len(doc.Entries) {
		return Document[K, V]{}, fmt.Errorf("%w: %s: count %d but %d entries", ErrCorrupt, key, doc.Count, len(doc.Entries))
	}
	seen := make(map[K]struct{}, len(doc.Entries))
	for _, e := range doc.Entries {
		if _, dup := seen[e.Key]; dup {
			return Document[K, V]{}, fmt.Errorf("%w: %s: duplicate key %v", ErrCorrupt, key, e.Key)
		}
		seen[e.Key] = struct{}{}
	}
	return doc, nil
}
