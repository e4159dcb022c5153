package sqlcollection

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/pkg/criteria"
)

// Query is a compiled SELECT with its arguments.
type Query struct {
	SQL  string
	Args []any
}

// Compile translates crit into a SELECT over the entries of collection name.
// Results carry entry_key and payload columns.
func Compile(d Dialect, name string, crit criteria.Criteria) (Query, error) {
	if err := crit.Validate(); err != nil {
		return Query{}, err
	}
	c := &compiler{d: d}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT entry_key, payload FROM %s WHERE collection = %s", Table, c.bind(name))
	if crit.Where != nil {
		b.WriteString(" AND ")
		if err := crit.Where.Accept(c); err != nil {
			return Query{}, err
		}
		b.WriteString(c.sql.String())
	}
	b.WriteString(" ORDER BY ")
	for _, o := range crit.Orderings {
		nulls := "NULLS FIRST"
		if o.Direction == criteria.Desc {
			nulls = "NULLS LAST"
		}
		fmt.Fprintf(&b, "%s %s %s, ", d.OrderField(strings.Split(o.Field, ".")), o.Direction, nulls)
	}
	b.WriteString("position")
	switch {
	case crit.MaxResults > 0:
		fmt.Fprintf(&b, " LIMIT %d", crit.MaxResults)
	case crit.FirstResult > 0:
		fmt.Fprintf(&b, " LIMIT %s", d.NoLimit())
	}
	if crit.FirstResult > 0 {
		fmt.Fprintf(&b, " OFFSET %d", crit.FirstResult)
	}
	return Query{SQL: b.String(), Args: c.args}, nil
}

type compiler struct {
	d    Dialect
	sql  strings.Builder
	args []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return c.d.Bind(len(c.args))
}

func (c *compiler) VisitComposite(comp criteria.Composite) error {
	if len(comp.Parts) == 0 {
		if comp.Type == criteria.TypeOr {
			c.sql.WriteString("1=0")
		} else {
			c.sql.WriteString("1=1")
		}
		return nil
	}
	c.sql.WriteString("(")
	for i, p := range comp.Parts {
		if i > 0 {
			fmt.Fprintf(&c.sql, " %s ", comp.Type)
		}
		if err := p.Accept(c); err != nil {
			return err
		}
	}
	c.sql.WriteString(")")
	return nil
}

func (c *compiler) VisitComparison(cmp criteria.Comparison) error {
	path := strings.Split(cmp.Field, ".")
	switch cmp.Op {
	case criteria.OpIsNull:
		fmt.Fprintf(&c.sql, "%s IS NULL", c.d.ScalarField(path, nil))
	case criteria.OpEq:
		field := c.d.ScalarField(path, cmp.Value)
		if cmp.Value == nil {
			fmt.Fprintf(&c.sql, "%s IS NULL", field)
			return nil
		}
		fmt.Fprintf(&c.sql, "%s = %s", field, c.bind(c.d.Arg(cmp.Value)))
	case criteria.OpNeq:
		field := c.d.ScalarField(path, cmp.Value)
		if cmp.Value == nil {
			fmt.Fprintf(&c.sql, "%s IS NOT NULL", field)
			return nil
		}
		fmt.Fprintf(&c.sql, "(%s IS NULL OR %s <> %s)", field, field, c.bind(c.d.Arg(cmp.Value)))
	case criteria.OpLt, criteria.OpLte, criteria.OpGt, criteria.OpGte:
		fmt.Fprintf(&c.sql, "%s %s %s", c.d.ScalarField(path, cmp.Value), cmp.Op, c.bind(c.d.Arg(cmp.Value)))
	case criteria.OpIn, criteria.OpNotIn:
		return c.in(path, cmp)
	case criteria.OpContains, criteria.OpStartsWith, criteria.OpEndsWith:
		needle := fmt.Sprint(cmp.Value)
		param := c.bind(c.d.PatternArg(cmp.Op, needle))
		c.sql.WriteString(c.d.Pattern(c.d.ScalarField(path, needle), param))
	default:
		return fmt.Errorf("sqlcollection: unsupported operator %q", cmp.Op)
	}
	return nil
}

func (c *compiler) in(path []string, cmp criteria.Comparison) error {
	rv := reflect.ValueOf(cmp.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("sqlcollection: %s expects a list, got %T", cmp.Op, cmp.Value)
	}
	if rv.Len() == 0 {
		if cmp.Op == criteria.OpIn {
			c.sql.WriteString("1=0")
		} else {
			c.sql.WriteString("1=1")
		}
		return nil
	}
	field := c.d.ScalarField(path, rv.Index(0).Interface())
	params := make([]string, rv.Len())
	for i := range params {
		params[i] = c.bind(c.d.Arg(rv.Index(i).Interface()))
	}
	list := strings.Join(params, ", ")
	if cmp.Op == criteria.OpIn {
		fmt.Fprintf(&c.sql, "%s IN (%s)", field, list)
	} else {
		fmt.Fprintf(&c.sql, "(%s IS NULL OR %s NOT IN (%s))", field, field, list)
	}
	return nil
}
