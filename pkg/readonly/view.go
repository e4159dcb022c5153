// Package readonly exposes a mutable collection through a read-only view.
//
// A View forwards every query to the collection it wraps and rejects every
// mutation with a *ViolationError before the wrapped collection is reached.
// Views do not copy: changes made by the collection's owner are visible
// through the view immediately, and element values themselves are not made
// immutable. A View adds no synchronisation; concurrent use is exactly as
// safe as concurrent reads of the wrapped collection.
package readonly

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Compile-time contract assertions.
var (
	_ collection.Collection[int, any] = (*View[int, any])(nil)
	_ collection.Queryable[int, any]  = (*View[int, any])(nil)
)

// Observer receives notifications about rejected calls. It cannot change
// their outcome.
type Observer interface {
	Violation(action string, collectionType string)
	Unsupported(capability string, collectionType string)
}

// Option configures a View at construction.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver installs an observer notified of rejected calls.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// View is a read-only facade over a collection.Collection. Its fields are
// fixed at construction.
type View[K comparable, V any] struct {
	inner    collection.Collection[K, V]
	observer Observer
}

// New binds a view to c. A nil c, including a nil pointer held in the
// interface, yields ErrNilCollection.
func New[K comparable, V any](c collection.Collection[K, V], opts ...Option) (*View[K, V], error) {
	if isNil(c) {
		return nil, ErrNilCollection
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &View[K, V]{inner: c, observer: o.observer}, nil
}

// MustNew is like New but panics when c is nil.
func MustNew[K comparable, V any](c collection.Collection[K, V], opts ...Option) *View[K, V] {
	v, err := New(c, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func isNil(c any) bool {
	if c == nil {
		return true
	}
	switch rv := reflect.ValueOf(c); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (v *View[K, V]) innerType() string { return fmt.Sprintf("%T", v.inner) }

func (v *View[K, V]) deny(action string) error {
	if v.observer != nil {
		v.observer.Violation(action, v.innerType())
	}
	return &ViolationError{Action: action}
}

func (v *View[K, V]) Contains(element V) bool { return v.inner.Contains(element) }

func (v *View[K, V]) ContainsKey(key K) bool { return v.inner.ContainsKey(key) }

func (v *View[K, V]) IsEmpty() bool { return v.inner.IsEmpty() }

func (v *View[K, V]) Count() int { return v.inner.Count() }

// Get reports absent keys exactly as the wrapped collection does.
func (v *View[K, V]) Get(key K) (V, bool) { return v.inner.Get(key) }

func (v *View[K, V]) Keys() []K { return v.inner.Keys() }

func (v *View[K, V]) Values() []V { return v.inner.Values() }

func (v *View[K, V]) ToArray() []collection.Entry[K, V] { return v.inner.ToArray() }

func (v *View[K, V]) First() (V, bool) { return v.inner.First() }

func (v *View[K, V]) Last() (V, bool) { return v.inner.Last() }

// Key, Current and Next move the wrapped collection's own cursor, which is
// shared with its owner and every other view of it. Prefer Iterator or All
// for iteration that does not disturb other readers.
func (v *View[K, V]) Key() (K, bool) { return v.inner.Key() }

func (v *View[K, V]) Current() (V, bool) { return v.inner.Current() }

func (v *View[K, V]) Next() (V, bool) { return v.inner.Next() }

func (v *View[K, V]) IndexOf(element V) (K, bool) { return v.inner.IndexOf(element) }

// Slice follows the wrapped collection's offset and length rules.
func (v *View[K, V]) Slice(offset, length int) []collection.Entry[K, V] {
	return v.inner.Slice(offset, length)
}

func (v *View[K, V]) Exists(p func(K, V) bool) bool { return v.inner.Exists(p) }

func (v *View[K, V]) ForAll(p func(K, V) bool) bool { return v.inner.ForAll(p) }

// Filter returns the wrapped collection's result: a new, mutable collection
// owned by the caller.
func (v *View[K, V]) Filter(p func(K, V) bool) collection.Collection[K, V] {
	return v.inner.Filter(p)
}

func (v *View[K, V]) Map(fn func(V) V) collection.Collection[K, V] { return v.inner.Map(fn) }

func (v *View[K, V]) Partition(p func(K, V) bool) (collection.Collection[K, V], collection.Collection[K, V]) {
	return v.inner.Partition(p)
}

// Iterator returns the wrapped collection's iterator, so whether it is live
// or a snapshot depends on that collection.
func (v *View[K, V]) Iterator() collection.Iterator[K, V] { return v.inner.Iterator() }

func (v *View[K, V]) All() iter.Seq2[K, V] { return v.inner.All() }

func (v *View[K, V]) OffsetExists(key K) bool { return v.inner.OffsetExists(key) }

func (v *View[K, V]) OffsetGet(key K) (V, bool) { return v.inner.OffsetGet(key) }

// Matching forwards crit when the wrapped collection is collection.Queryable.
func (v *View[K, V]) Matching(crit criteria.Criteria) (collection.Collection[K, V], error) {
	q, ok := v.inner.(collection.Queryable[K, V])
	if !ok {
		if v.observer != nil {
			v.observer.Unsupported(CapabilityQueryable, v.innerType())
		}
		return nil, &UnsupportedCapabilityError{Capability: CapabilityQueryable, Type: v.innerType()}
	}
	return q.Matching(crit)
}

func (v *View[K, V]) Add(V) error { return v.deny(ActionAdd) }

func (v *View[K, V]) Clear() error { return v.deny(ActionClear) }

func (v *View[K, V]) Remove(K) (V, bool, error) {
	var zero V
	return zero, false, v.deny(ActionRemove)
}

func (v *View[K, V]) RemoveElement(V) (bool, error) { return false, v.deny(ActionRemove) }

func (v *View[K, V]) Set(K, V) error { return v.deny(ActionSet) }

func (v *View[K, V]) OffsetSet(K, V) error { return v.deny(ActionSet) }

func (v *View[K, V]) OffsetUnset(K) error { return v.deny(ActionRemove) }
