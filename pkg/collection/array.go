package collection

import (
	"cmp"
	"iter"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Compile-time contract assertions.
var (
	_ Collection[int, any] = (*ArrayCollection[int, any])(nil)
	_ Queryable[int, any]  = (*ArrayCollection[int, any])(nil)
)

// ArrayCollection is an insertion-ordered map. Setting an existing key keeps
// its position; new keys are appended. It is not safe for concurrent use.
type ArrayCollection[K comparable, V any] struct {
	keys   []K
	values map[K]V
	cursor int
	equal  func(a, b V) bool
}

// NewArrayCollection builds a collection from entries in order. A repeated key
// keeps its first position and its last value.
func NewArrayCollection[K comparable, V any](entries ...Entry[K, V]) *ArrayCollection[K, V] {
	c := &ArrayCollection[K, V]{values: make(map[K]V, len(entries))}
	for _, e := range entries {
		c.set(e.Key, e.Value)
	}
	return c
}

// NewList builds a collection keyed 0..n-1.
func NewList[V any](values ...V) *ArrayCollection[int, V] {
	c := &ArrayCollection[int, V]{
		keys:   make([]int, 0, len(values)),
		values: make(map[int]V, len(values)),
	}
	for i, v := range values {
		c.keys = append(c.keys, i)
		c.values[i] = v
	}
	return c
}

// FromMap builds a collection from m with keys in ascending order.
func FromMap[K cmp.Ordered, V any](m map[K]V) *ArrayCollection[K, V] {
	c := &ArrayCollection[K, V]{
		keys:   slices.Sorted(maps.Keys(m)),
		values: maps.Clone(m),
	}
	if c.values == nil {
		c.values = make(map[K]V)
	}
	return c
}

// MapValues returns a new collection with fn applied to every value of src,
// keeping keys and order. Unlike Map it may change the value type.
func MapValues[K comparable, V, R any](src Readable[K, V], fn func(V) R) *ArrayCollection[K, R] {
	out := &ArrayCollection[K, R]{values: make(map[K]R, src.Count())}
	for k, v := range src.All() {
		out.set(k, fn(v))
	}
	return out
}

// WithEquality replaces the value equality used by Contains, IndexOf and
// RemoveElement. The default is reflect.DeepEqual.
func (c *ArrayCollection[K, V]) WithEquality(eq func(a, b V) bool) *ArrayCollection[K, V] {
	c.equal = eq
	return c
}

func (c *ArrayCollection[K, V]) eq(a, b V) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

func (c *ArrayCollection[K, V]) derive() *ArrayCollection[K, V] {
	return &ArrayCollection[K, V]{values: make(map[K]V), equal: c.equal}
}

func (c *ArrayCollection[K, V]) set(key K, value V) {
	if c.values == nil {
		c.values = make(map[K]V)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

func (c *ArrayCollection[K, V]) Contains(element V) bool {
	_, ok := c.IndexOf(element)
	return ok
}

func (c *ArrayCollection[K, V]) ContainsKey(key K) bool {
	_, ok := c.values[key]
	return ok
}

func (c *ArrayCollection[K, V]) IsEmpty() bool { return len(c.keys) == 0 }

func (c *ArrayCollection[K, V]) Count() int { return len(c.keys) }

func (c *ArrayCollection[K, V]) Get(key K) (V, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *ArrayCollection[K, V]) Keys() []K { return slices.Clone(c.keys) }

func (c *ArrayCollection[K, V]) Values() []V {
	out := make([]V, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.values[k])
	}
	return out
}

func (c *ArrayCollection[K, V]) ToArray() []Entry[K, V] {
	out := make([]Entry[K, V], 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, Entry[K, V]{Key: k, Value: c.values[k]})
	}
	return out
}

func (c *ArrayCollection[K, V]) at(i int) (V, bool) {
	if i < 0 || i >= len(c.keys) {
		var zero V
		return zero, false
	}
	return c.values[c.keys[i]], true
}

func (c *ArrayCollection[K, V]) First() (V, bool) {
	c.cursor = 0
	return c.at(0)
}

func (c *ArrayCollection[K, V]) Last() (V, bool) {
	c.cursor = max(len(c.keys)-1, 0)
	return c.at(len(c.keys) - 1)
}

func (c *ArrayCollection[K, V]) Key() (K, bool) {
	if c.cursor < 0 || c.cursor >= len(c.keys) {
		var zero K
		return zero, false
	}
	return c.keys[c.cursor], true
}

func (c *ArrayCollection[K, V]) Current() (V, bool) { return c.at(c.cursor) }

func (c *ArrayCollection[K, V]) Next() (V, bool) {
	if c.cursor < len(c.keys) {
		c.cursor++
	}
	return c.at(c.cursor)
}

func (c *ArrayCollection[K, V]) IndexOf(element V) (K, bool) {
	for _, k := range c.keys {
		if c.eq(c.values[k], element) {
			return k, true
		}
	}
	var zero K
	return zero, false
}

func (c *ArrayCollection[K, V]) Slice(offset, length int) []Entry[K, V] {
	n := len(c.keys)
	if offset < 0 {
		offset = max(n+offset, 0)
	}
	if offset > n {
		offset = n
	}
	end := n
	if length >= 0 && length < n-offset {
		end = offset + length
	}
	out := make([]Entry[K, V], 0, end-offset)
	for _, k := range c.keys[offset:end] {
		out = append(out, Entry[K, V]{Key: k, Value: c.values[k]})
	}
	return out
}

func (c *ArrayCollection[K, V]) Exists(p func(K, V) bool) bool {
	for _, k := range c.keys {
		if p(k, c.values[k]) {
			return true
		}
	}
	return false
}

func (c *ArrayCollection[K, V]) ForAll(p func(K, V) bool) bool {
	for _, k := range c.keys {
		if !p(k, c.values[k]) {
			return false
		}
	}
	return true
}

func (c *ArrayCollection[K, V]) Filter(p func(K, V) bool) Collection[K, V] {
	out := c.derive()
	for _, k := range c.keys {
		if v := c.values[k]; p(k, v) {
			out.set(k, v)
		}
	}
	return out
}

func (c *ArrayCollection[K, V]) Map(fn func(V) V) Collection[K, V] {
	out := c.derive()
	for _, k := range c.keys {
		out.set(k, fn(c.values[k]))
	}
	return out
}

func (c *ArrayCollection[K, V]) Partition(p func(K, V) bool) (Collection[K, V], Collection[K, V]) {
	matched, rest := c.derive(), c.derive()
	for _, k := range c.keys {
		v := c.values[k]
		if p(k, v) {
			matched.set(k, v)
		} else {
			rest.set(k, v)
		}
	}
	return matched, rest
}

// Iterator returns an iterator over a copy of the current entries.
func (c *ArrayCollection[K, V]) Iterator() Iterator[K, V] {
	return &sliceIterator[K, V]{entries: c.ToArray(), pos: -1}
}

// All yields a copy of the current entries, so the collection may be
// modified while ranging.
func (c *ArrayCollection[K, V]) All() iter.Seq2[K, V] {
	entries := c.ToArray()
	return func(yield func(K, V) bool) {
		for _, e := range entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func (c *ArrayCollection[K, V]) OffsetExists(key K) bool { return c.ContainsKey(key) }

func (c *ArrayCollection[K, V]) OffsetGet(key K) (V, bool) { return c.Get(key) }

// Add appends element under the next integer key. Collections keyed by a
// non-integer type return ErrKeyRequired; ErrKeyOverflow is returned when
// the largest key is already the maximum of the key type.
func (c *ArrayCollection[K, V]) Add(element V) error {
	key, err := nextKey(c.keys)
	if err != nil {
		return err
	}
	c.set(key, element)
	return nil
}

func (c *ArrayCollection[K, V]) Clear() error {
	c.keys = nil
	c.values = make(map[K]V)
	c.cursor = 0
	return nil
}

func (c *ArrayCollection[K, V]) Remove(key K) (V, bool, error) {
	v, ok := c.values[key]
	if !ok {
		return v, false, nil
	}
	i := slices.Index(c.keys, key)
	c.keys = slices.Delete(c.keys, i, i+1)
	delete(c.values, key)
	if i < c.cursor {
		c.cursor--
	}
	return v, true, nil
}

func (c *ArrayCollection[K, V]) RemoveElement(element V) (bool, error) {
	key, ok := c.IndexOf(element)
	if !ok {
		return false, nil
	}
	_, _, err := c.Remove(key)
	return true, err
}

func (c *ArrayCollection[K, V]) Set(key K, value V) error {
	c.set(key, value)
	return nil
}

func (c *ArrayCollection[K, V]) OffsetSet(key K, value V) error { return c.Set(key, value) }

func (c *ArrayCollection[K, V]) OffsetUnset(key K) error {
	_, _, err := c.Remove(key)
	return err
}

// Matching evaluates crit in memory and returns the matches as a new
// collection, keys preserved.
func (c *ArrayCollection[K, V]) Matching(crit criteria.Criteria) (Collection[K, V], error) {
	if err := crit.Validate(); err != nil {
		return nil, err
	}
	var matched []Entry[K, V]
	for _, k := range c.keys {
		v := c.values[k]
		ok, err := criteria.Match(crit.Where, v)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, Entry[K, V]{Key: k, Value: v})
		}
	}
	if len(crit.Orderings) > 0 {
		order := criteria.OrderFunc(crit.Orderings)
		slices.SortStableFunc(matched, func(a, b Entry[K, V]) int {
			return order(a.Value, b.Value)
		})
	}
	matched = page(matched, crit.FirstResult, crit.MaxResults)
	out := c.derive()
	for _, e := range matched {
		out.set(e.Key, e.Value)
	}
	return out, nil
}

func page[T any](items []T, first, limit int) []T {
	if first >= len(items) {
		return nil
	}
	items = items[first:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// nextKey returns max(int keys)+1, or 0 when empty, for signed integer key
// types.
func nextKey[K comparable](keys []K) (K, error) {
	var zero K
	rv := reflect.New(reflect.TypeOf(&zero).Elem()).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return zero, ErrKeyRequired
	}
	var next int64
	for _, k := range keys {
		n := reflect.ValueOf(k).Int()
		if n == math.MaxInt64 {
			return zero, ErrKeyOverflow
		}
		if n+1 > next {
			next = n + 1
		}
	}
	if rv.OverflowInt(next) {
		return zero, ErrKeyOverflow
	}
	rv.SetInt(next)
	return rv.Interface().(K), nil
}

type sliceIterator[K comparable, V any] struct {
	entries []Entry[K, V]
	pos     int
}

func (it *sliceIterator[K, V]) Next() bool {
	if it.pos < len(it.entries) {
		it.pos++
	}
	return it.pos < len(it.entries)
}

func (it *sliceIterator[K, V]) Key() K {
	if it.pos < 0 || it.pos >= len(it.entries) {
		var zero K
		return zero
	}
	return it.entries[it.pos].Key
}

func (it *sliceIterator[K, V]) Value() V {
	if it.pos < 0 || it.pos >= len(it.entries) {
		var zero V
		return zero
	}
	return it.entries[it.pos].Value
}
