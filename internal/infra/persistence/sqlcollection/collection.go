package sqlcollection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Compile-time contract assertions.
var (
	_ collection.Collection[string, any] = (*Collection[string, any])(nil)
	_ collection.Queryable[string, any]  = (*Collection[string, any])(nil)
)

// Collection is a write-through, SQL-persisted ArrayCollection. Keys and
// values are stored as JSON. It is not safe for concurrent use.
type Collection[K comparable, V any] struct {
	*collection.ArrayCollection[K, V]
	db      *sql.DB
	dialect Dialect
	name    string
	nextPos int64
	ownsDB  bool
}

// Open ensures the schema exists on db and hydrates the entries stored under
// name. The caller keeps ownership of db unless ownDB is set, in which case
// Close closes it.
func Open[K comparable, V any](ctx context.Context, db *sql.DB, d Dialect, name string, ownDB bool) (*Collection[K, V], error) {
	if name == "" {
		return nil, errors.New("sqlcollection: collection name required")
	}
	for _, stmt := range d.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s: apply schema: %w", d.Name(), err)
		}
	}
	c := &Collection[K, V]{
		ArrayCollection: collection.NewArrayCollection[K, V](),
		db:              db,
		dialect:         d,
		name:            name,
		ownsDB:          ownDB,
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection[K, V]) load(ctx context.Context) error {
	q := fmt.Sprintf("SELECT entry_key, payload, position FROM %s WHERE collection = %s ORDER BY position", Table, c.dialect.Bind(1))
	rows, err := c.db.QueryContext(ctx, q, c.name)
	if err != nil {
		return fmt.Errorf("%s: select entries: %w", c.dialect.Name(), err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var rawKey, rawValue []byte
		var pos int64
		if err := rows.Scan(&rawKey, &rawValue, &pos); err != nil {
			return fmt.Errorf("%s: scan entry: %w", c.dialect.Name(), err)
		}
		k, v, err := decode[K, V](rawKey, rawValue)
		if err != nil {
			return err
		}
		_ = c.ArrayCollection.Set(k, v)
		if pos >= c.nextPos {
			c.nextPos = pos + 1
		}
	}
	return rows.Err()
}

func decode[K comparable, V any](rawKey, rawValue []byte) (K, V, error) {
	var k K
	var v V
	if err := json.Unmarshal(rawKey, &k); err != nil {
		return k, v, fmt.Errorf("sqlcollection: decode key %s: %w", rawKey, err)
	}
	if err := json.Unmarshal(rawValue, &v); err != nil {
		return k, v, fmt.Errorf("sqlcollection: decode value for key %s: %w", rawKey, err)
	}
	return k, v, nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlcollection: encode: %w", err)
	}
	return string(b), nil
}

// Name returns the collection name used as the partition key in Table.
func (c *Collection[K, V]) Name() string { return c.name }

// Close releases the database handle when the collection owns it.
func (c *Collection[K, V]) Close() error {
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

func (c *Collection[K, V]) insert(ctx context.Context, key K, value V) error {
	k, err := encode(key)
	if err != nil {
		return err
	}
	payload, err := encode(value)
	if err != nil {
		return err
	}
	d := c.dialect
	q := fmt.Sprintf("INSERT INTO %s (collection, entry_key, position, payload) VALUES (%s, %s, %s, %s)",
		Table, d.Bind(1), d.Bind(2), d.Bind(3), d.PayloadBind(4))
	if _, err := c.db.ExecContext(ctx, q, c.name, k, c.nextPos, payload); err != nil {
		return fmt.Errorf("%s: insert entry: %w", d.Name(), err)
	}
	c.nextPos++
	return nil
}

func (c *Collection[K, V]) update(ctx context.Context, key K, value V) error {
	k, err := encode(key)
	if err != nil {
		return err
	}
	payload, err := encode(value)
	if err != nil {
		return err
	}
	d := c.dialect
	q := fmt.Sprintf("UPDATE %s SET payload = %s WHERE collection = %s AND entry_key = %s",
		Table, d.PayloadBind(1), d.Bind(2), d.Bind(3))
	if _, err := c.db.ExecContext(ctx, q, payload, c.name, k); err != nil {
		return fmt.Errorf("%s: update entry: %w", d.Name(), err)
	}
	return nil
}

func (c *Collection[K, V]) delete(ctx context.Context, key K) error {
	k, err := encode(key)
	if err != nil {
		return err
	}
	d := c.dialect
	q := fmt.Sprintf("DELETE FROM %s WHERE collection = %s AND entry_key = %s", Table, d.Bind(1), d.Bind(2))
	if _, err := c.db.ExecContext(ctx, q, c.name, k); err != nil {
		return fmt.Errorf("%s: delete entry: %w", d.Name(), err)
	}
	return nil
}

// Add appends element in memory, then persists it; the in-memory append is
// undone if the insert fails.
func (c *Collection[K, V]) Add(element V) error {
	if err := c.ArrayCollection.Add(element); err != nil {
		return err
	}
	keys := c.ArrayCollection.Keys()
	key := keys[len(keys)-1]
	if err := c.insert(context.Background(), key, element); err != nil {
		_, _, _ = c.ArrayCollection.Remove(key)
		return err
	}
	return nil
}

func (c *Collection[K, V]) Set(key K, value V) error {
	var err error
	if c.ArrayCollection.ContainsKey(key) {
		err = c.update(context.Background(), key, value)
	} else {
		err = c.insert(context.Background(), key, value)
	}
	if err != nil {
		return err
	}
	return c.ArrayCollection.Set(key, value)
}

func (c *Collection[K, V]) OffsetSet(key K, value V) error { return c.Set(key, value) }

func (c *Collection[K, V]) Remove(key K) (V, bool, error) {
	if !c.ArrayCollection.ContainsKey(key) {
		var zero V
		return zero, false, nil
	}
	if err := c.delete(context.Background(), key); err != nil {
		var zero V
		return zero, false, err
	}
	return c.ArrayCollection.Remove(key)
}

func (c *Collection[K, V]) OffsetUnset(key K) error {
	_, _, err := c.Remove(key)
	return err
}

func (c *Collection[K, V]) RemoveElement(element V) (bool, error) {
	key, ok := c.ArrayCollection.IndexOf(element)
	if !ok {
		return false, nil
	}
	if _, _, err := c.Remove(key); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[K, V]) Clear() error {
	q := fmt.Sprintf("DELETE FROM %s WHERE collection = %s", Table, c.dialect.Bind(1))
	if _, err := c.db.ExecContext(context.Background(), q, c.name); err != nil {
		return fmt.Errorf("%s: clear entries: %w", c.dialect.Name(), err)
	}
	return c.ArrayCollection.Clear()
}

// Matching evaluates crit in the database.
func (c *Collection[K, V]) Matching(crit criteria.Criteria) (collection.Collection[K, V], error) {
	return c.MatchingContext(context.Background(), crit)
}

// MatchingContext is Matching bounded by ctx. The result is a detached,
// in-memory collection owned by the caller.
func (c *Collection[K, V]) MatchingContext(ctx context.Context, crit criteria.Criteria) (collection.Collection[K, V], error) {
	q, err := Compile(c.dialect, c.name, crit)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: matching: %w", c.dialect.Name(), err)
	}
	defer func() { _ = rows.Close() }()
	out := collection.NewArrayCollection[K, V]()
	for rows.Next() {
		var rawKey, rawValue []byte
		if err := rows.Scan(&rawKey, &rawValue); err != nil {
			return nil, fmt.Errorf("%s: scan match: %w", c.dialect.Name(), err)
		}
		k, v, err := decode[K, V](rawKey, rawValue)
		if err != nil {
			return nil, err
		}
		_ = out.Set(k, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
