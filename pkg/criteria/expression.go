package criteria

import (
	"fmt"
	"strings"
)

// Operator names a comparison between a field and a value.
type Operator string

// Supported comparison operators.
const (
	OpEq         Operator = "="
	OpNeq        Operator = "<>"
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NIN"
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
	OpIsNull     Operator = "IS_NULL"
)

var knownOperators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpIn: {}, OpNotIn: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {}, OpIsNull: {},
}

// ParseOperator resolves a textual operator such as ">=" or "in".
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	if op == "!=" {
		op = OpNeq
	}
	if _, ok := knownOperators[op]; !ok {
		return "", fmt.Errorf("criteria: unknown operator %q", s)
	}
	return op, nil
}

// CompositeType joins the parts of a Composite.
type CompositeType string

const (
	TypeAnd CompositeType = "AND"
	TypeOr  CompositeType = "OR"
)

// Expression is a node of a filter tree: either a Comparison or a Composite.
type Expression interface {
	// Accept dispatches to the matching Visitor method.
	Accept(v Visitor) error
	fmt.Stringer
}

// Visitor walks expression trees. Store compilers implement it to translate a
// filter into their own query language.
type Visitor interface {
	VisitComparison(Comparison) error
	VisitComposite(Composite) error
}

// Comparison tests a single field.
type Comparison struct {
	Field string
	Op    Operator
	Value any
}

func (c Comparison) Accept(v Visitor) error { return v.VisitComparison(c) }

func (c Comparison) String() string {
	if c.Op == OpIsNull {
		return fmt.Sprintf("%s IS NULL", c.Field)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Composite combines expressions with AND or OR.
type Composite struct {
	Type  CompositeType
	Parts []Expression
}

func (c Composite) Accept(v Visitor) error { return v.VisitComposite(c) }

func (c Composite) String() string {
	parts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " "+string(c.Type)+" ") + ")"
}

// Walk visits expr and, for composites, every descendant depth first.
func Walk(expr Expression, v Visitor) error {
	if err := expr.Accept(v); err != nil {
		return err
	}
	if comp, ok := expr.(Composite); ok {
		for _, p := range comp.Parts {
			if err := Walk(p, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func Eq(field string, value any) Comparison  { return Comparison{Field: field, Op: OpEq, Value: value} }
func Neq(field string, value any) Comparison { return Comparison{Field: field, Op: OpNeq, Value: value} }
func Lt(field string, value any) Comparison  { return Comparison{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Comparison { return Comparison{Field: field, Op: OpLte, Value: value} }
func Gt(field string, value any) Comparison  { return Comparison{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Comparison { return Comparison{Field: field, Op: OpGte, Value: value} }

// In matches fields equal to any of values.
func In(field string, values ...any) Comparison {
	return Comparison{Field: field, Op: OpIn, Value: values}
}

// NotIn matches fields equal to none of values.
func NotIn(field string, values ...any) Comparison {
	return Comparison{Field: field, Op: OpNotIn, Value: values}
}

func Contains(field, substr string) Comparison {
	return Comparison{Field: field, Op: OpContains, Value: substr}
}

func StartsWith(field, prefix string) Comparison {
	return Comparison{Field: field, Op: OpStartsWith, Value: prefix}
}

func EndsWith(field, suffix string) Comparison {
	return Comparison{Field: field, Op: OpEndsWith, Value: suffix}
}

func IsNull(field string) Comparison { return Comparison{Field: field, Op: OpIsNull} }

func And(parts ...Expression) Composite { return Composite{Type: TypeAnd, Parts: parts} }
func Or(parts ...Expression) Composite  { return Composite{Type: TypeOr, Parts: parts} }
