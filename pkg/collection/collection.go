// Package collection defines the contracts for ordered key/value collections
// and ships ArrayCollection, an insertion-ordered in-memory implementation.
//
// The contracts are split the way callers consume them: Readable is the query
// surface handed to untrusted code, Collection adds mutation, and Queryable is
// an optional capability for collections that can evaluate a
// criteria.Criteria themselves (in memory or in a backing store).
package collection

import (
	"errors"
	"iter"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Entry is a single key/value pair in collection order.
type Entry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Readable is the read and query surface of an ordered collection.
type Readable[K comparable, V any] interface {
	Contains(element V) bool
	ContainsKey(key K) bool
	IsEmpty() bool
	Count() int
	Get(key K) (V, bool)
	Keys() []K
	Values() []V
	// ToArray returns a copy of all entries in collection order.
	ToArray() []Entry[K, V]

	// First and Last reset the internal cursor to the respective end.
	First() (V, bool)
	Last() (V, bool)
	// Key, Current and Next operate on the collection's internal cursor.
	Key() (K, bool)
	Current() (V, bool)
	Next() (V, bool)

	IndexOf(element V) (K, bool)
	// Slice copies up to length entries starting at offset. A negative offset
	// counts from the end; a negative length means all remaining entries.
	Slice(offset, length int) []Entry[K, V]

	Exists(p func(K, V) bool) bool
	ForAll(p func(K, V) bool) bool
	// Filter, Map and Partition return new, caller-owned collections.
	Filter(p func(K, V) bool) Collection[K, V]
	Map(fn func(V) V) Collection[K, V]
	Partition(p func(K, V) bool) (Collection[K, V], Collection[K, V])

	Iterator() Iterator[K, V]
	All() iter.Seq2[K, V]

	OffsetExists(key K) bool
	OffsetGet(key K) (V, bool)
}

// Collection is a Readable that can also be modified.
type Collection[K comparable, V any] interface {
	Readable[K, V]

	Add(element V) error
	Clear() error
	Remove(key K) (V, bool, error)
	RemoveElement(element V) (bool, error)
	Set(key K, value V) error
	OffsetSet(key K, value V) error
	OffsetUnset(key K) error
}

// Queryable is implemented by collections able to evaluate criteria.
type Queryable[K comparable, V any] interface {
	Matching(c criteria.Criteria) (Collection[K, V], error)
}

// Iterator walks entries front to back.
//
//	for it := c.Iterator(); it.Next(); {
//		use(it.Key(), it.Value())
//	}
type Iterator[K comparable, V any] interface {
	Next() bool
	Key() K
	Value() V
}

// ErrKeyRequired is returned by Add on collections whose key type cannot be
// generated automatically; use Set instead.
var ErrKeyRequired = errors.New("collection: key type has no automatic keys, use Set")

// ErrKeyOverflow is returned by Add when the next integer key does not fit
// the key type.
var ErrKeyOverflow = errors.New("collection: next key overflows key type")
