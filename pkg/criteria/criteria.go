// Package criteria describes collection queries independently of where they
// are evaluated. A Criteria value is opaque to read-only views: it is handed
// unchanged to the wrapped collection, which either evaluates it in memory
// (see Match) or compiles it for a backing store.
package criteria

import (
	"errors"
	"fmt"
	"regexp"
)

// Direction is the sort direction of an Ordering.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Ordering sorts results by a single field.
type Ordering struct {
	Field     string
	Direction Direction
}

// Criteria bundles a filter expression with ordering and paging.
// The zero value matches everything.
type Criteria struct {
	Where       Expression
	Orderings   []Ordering
	FirstResult int
	// MaxResults caps the result size; zero means unlimited.
	MaxResults int
}

// ErrInvalidField is returned when a field path contains characters outside
// the permitted identifier set.
var ErrInvalidField = errors.New("criteria: invalid field name")

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField reports whether name is a dotted identifier path such as
// "owner.name". Store compilers rely on this before emitting field names.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// New returns an empty criteria builder.
func New() *Criteria {
	return &Criteria{}
}

// WhereExpr replaces the filter expression.
func (c *Criteria) WhereExpr(expr Expression) *Criteria {
	c.Where = expr
	return c
}

// AndWhere conjoins expr with the current filter.
func (c *Criteria) AndWhere(expr Expression) *Criteria {
	if c.Where == nil {
		c.Where = expr
		return c
	}
	c.Where = And(c.Where, expr)
	return c
}

// OrWhere disjoins expr with the current filter.
func (c *Criteria) OrWhere(expr Expression) *Criteria {
	if c.Where == nil {
		c.Where = expr
		return c
	}
	c.Where = Or(c.Where, expr)
	return c
}

// OrderBy appends an ordering.
func (c *Criteria) OrderBy(field string, dir Direction) *Criteria {
	c.Orderings = append(c.Orderings, Ordering{Field: field, Direction: dir})
	return c
}

// SetFirstResult sets the number of leading matches to skip.
func (c *Criteria) SetFirstResult(n int) *Criteria {
	c.FirstResult = n
	return c
}

// SetMaxResults caps the number of returned matches.
func (c *Criteria) SetMaxResults(n int) *Criteria {
	c.MaxResults = n
	return c
}

// Validate checks field names, operators and paging bounds.
func (c Criteria) Validate() error {
	if c.FirstResult < 0 {
		return fmt.Errorf("criteria: negative first result %d", c.FirstResult)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("criteria: negative max results %d", c.MaxResults)
	}
	for _, o := range c.Orderings {
		if !ValidField(o.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, o.Field)
		}
		if o.Direction != Asc && o.Direction != Desc {
			return fmt.Errorf("criteria: unknown direction %q", o.Direction)
		}
	}
	if c.Where == nil {
		return nil
	}
	return Walk(c.Where, validator{})
}

type validator struct{}

func (validator) VisitComparison(cmp Comparison) error {
	if !ValidField(cmp.Field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, cmp.Field)
	}
	if _, ok := knownOperators[cmp.Op]; !ok {
		return fmt.Errorf("criteria: unknown operator %q", cmp.Op)
	}
	return nil
}

func (validator) VisitComposite(Composite) error { return nil }
