// Package catalog publishes internally owned collections to untrusted
// consumers (plugins, templates, API handlers) as read-only views.
//
// The owner registers a mutable collection once and keeps mutating it
// directly; consumers ask the catalog for a view by name and observe the
// owner's changes live, but every write they attempt is rejected, logged and
// counted.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/observability"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/collection"
	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/readonly"
)

var (
	// ErrNotFound is returned when no collection is registered under a name.
	ErrNotFound = errors.New("catalog: collection not found")
	// ErrDuplicate is returned when a name is already registered.
	ErrDuplicate = errors.New("catalog: collection already registered")
	// ErrTypeMismatch is returned when a view is requested with key/value
	// types different from the registered collection.
	ErrTypeMismatch = errors.New("catalog: collection type mismatch")
	// ErrEmptyName is returned when registering under an empty name.
	ErrEmptyName = errors.New("catalog: name must not be empty")
)

// Clock supplies registration timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Option customises a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(l observability.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder; nil keeps the no-op default.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Catalog) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides the registration clock.
func WithClock(clk Clock) Option {
	return func(c *Catalog) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// Descriptor describes a registered collection without exposing it.
type Descriptor struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Queryable    bool      `json:"queryable"`
	Count        int       `json:"count"`
	RegisteredAt time.Time `json:"registered_at"`
}

type entry struct {
	collection any
	count      func() int
	typ        string
	queryable  bool
	registered time.Time
}

// Catalog is a name-indexed registry of collections. It is safe for
// concurrent use; the views it hands out are not synchronised beyond what
// the registered collections provide.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  observability.Logger
	metrics observability.MetricsRecorder
	clock   Clock
}

// New constructs an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries: make(map[string]entry),
		logger:  observability.NoopLogger{},
		metrics: observability.NoopMetrics{},
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register publishes coll under name. The catalog keeps a reference; the
// caller remains the owner and may keep mutating coll.
func Register[K comparable, V any](c *Catalog, name string, coll collection.Collection[K, V]) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := readonly.New(coll); err != nil {
		return err
	}
	_, queryable := coll.(collection.Queryable[K, V])
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	c.entries[name] = entry{
		collection: coll,
		count:      coll.Count,
		typ:        fmt.Sprintf("%T", coll),
		queryable:  queryable,
		registered: c.clock.Now(),
	}
	c.logger.Info("collection registered", "collection", name, "type", fmt.Sprintf("%T", coll), "queryable", queryable)
	return nil
}

// Unregister removes name, reporting whether it was present. Views already
// handed out keep working against the collection.
func (c *Catalog) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	c.logger.Info("collection unregistered", "collection", name)
	return true
}

// Names lists registered names in ascending order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Describe returns metadata about name.
func (c *Catalog) Describe(name string) (Descriptor, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Descriptor{
		Name:         name,
		Type:         e.typ,
		Queryable:    e.queryable,
		Count:        e.count(),
		RegisteredAt: e.registered,
	}, nil
}

// View returns a read-only view over the collection registered as name.
// Rejected calls on the view are logged at warn level and counted.
func View[K comparable, V any](c *Catalog, name string) (*readonly.View[K, V], error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	coll, ok := e.collection.(collection.Collection[K, V])
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %s", ErrTypeMismatch, name, e.typ)
	}
	v, err := readonly.New(coll, readonly.WithObserver(viewObserver{name: name, logger: c.logger, metrics: c.metrics}))
	if err != nil {
		return nil, err
	}
	c.metrics.ViewIssued(name)
	c.logger.Debug("read-only view issued", "collection", name)
	return v, nil
}

type viewObserver struct {
	name    string
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (o viewObserver) Violation(action, collectionType string) {
	o.metrics.Violation(o.name, action)
	o.logger.Warn("mutation rejected by read-only view", "collection", o.name, "action", action, "type", collectionType)
}

func (o viewObserver) Unsupported(capability, collectionType string) {
	o.metrics.Unsupported(o.name, capability)
	o.logger.Warn("capability not supported by collection", "collection", o.name, "capability", capability, "type", collectionType)
}
