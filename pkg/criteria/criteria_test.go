package criteria

import (
	"errors"
	"slices"
	"testing"
	"time"
)

type owner struct {
	Name string `json:"name"`
}

type animal struct {
	ID      string `json:"id"`
	Species string `json:"species"`
	Age     int    `json:"age"`
	Owner   *owner `json:"owner,omitempty"`
	Born    time.Time
}

func TestMatchComparisons(t *testing.T) {
	born := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	a := animal{ID: "a1", Species: "mouse", Age: 3, Owner: &owner{Name: "lab"}, Born: born}
	cases := []struct {
		name string
		expr Expression
		want bool
	}{
		{"eq by tag", Eq("species", "mouse"), true},
		{"eq by field name", Eq("Species", "mouse"), true},
		{"eq numeric kinds", Eq("age", int64(3)), true},
		{"neq", Neq("age", 3), false},
		{"lt", Lt("age", 4), true},
		{"lte", Lte("age", 3), true},
		{"gt float", Gt("age", 2.5), true},
		{"gte", Gte("age", 4), false},
		{"in", In("species", "rat", "mouse"), true},
		{"not in", NotIn("species", "rat", "mouse"), false},
		{"contains", Contains("species", "ous"), true},
		{"starts", StartsWith("species", "mo"), true},
		{"ends", EndsWith("species", "se"), true},
		{"nested pointer", Eq("owner.name", "lab"), true},
		{"missing is null", IsNull("missing"), true},
		{"present not null", IsNull("owner"), false},
		{"time", Gt("Born", born.Add(-time.Hour)), true},
		{"mixed types never ordered", Lt("species", 3), false},
		{"and", And(Eq("species", "mouse"), Gt("age", 5)), false},
		{"or", Or(Eq("species", "rat"), Gt("age", 1)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(tc.expr, a)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tc.want {
				t.Fatalf("%s: expected %v got %v", tc.expr, tc.want, got)
			}
		})
	}
}

func TestMatchMapsAndNil(t *testing.T) {
	v := map[string]any{"name": "x", "tags": nil}
	if ok, _ := Match(IsNull("tags"), v); !ok {
		t.Fatalf("expected nil map value to be null")
	}
	if ok, _ := Match(Eq("name", "x"), v); !ok {
		t.Fatalf("expected map lookup to match")
	}
	if ok, _ := Match(nil, v); !ok {
		t.Fatalf("nil expression should match everything")
	}
	if ok, _ := Match(Eq("name", "x"), (*animal)(nil)); ok {
		t.Fatalf("nil pointer should not match")
	}
}

func TestMatchInRequiresList(t *testing.T) {
	_, err := Match(Comparison{Field: "id", Op: OpIn, Value: "a"}, animal{})
	if err == nil {
		t.Fatalf("expected error for scalar IN operand")
	}
}

func TestValidate(t *testing.T) {
	good := New().WhereExpr(Eq("owner.name", "x")).OrderBy("age", Desc).SetMaxResults(3)
	if err := good.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bad := New().AndWhere(Eq("name; DROP TABLE", 1))
	if err := bad.Validate(); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	if err := New().OrderBy("age", "sideways").Validate(); err == nil {
		t.Fatalf("expected direction error")
	}
	if err := New().SetFirstResult(-1).Validate(); err == nil {
		t.Fatalf("expected first result error")
	}
	if err := New().AndWhere(Comparison{Field: "a", Op: "LIKE"}).Validate(); err == nil {
		t.Fatalf("expected operator error")
	}
}

func TestBuilderComposition(t *testing.T) {
	c := New().AndWhere(Eq("a", 1)).AndWhere(Eq("b", 2)).OrWhere(Eq("c", 3))
	comp, ok := c.Where.(Composite)
	if !ok || comp.Type != TypeOr || len(comp.Parts) != 2 {
		t.Fatalf("unexpected tree %v", c.Where)
	}
	if got := c.Where.String(); got != "((a = 1 AND b = 2) OR c = 3)" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{"=": OpEq, "!=": OpNeq, "in": OpIn, " >= ": OpGte} {
		got, err := ParseOperator(in)
		if err != nil || got != want {
			t.Fatalf("parse %q: %v %v", in, got, err)
		}
	}
	if _, err := ParseOperator("~"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOrderFunc(t *testing.T) {
	items := []any{
		animal{ID: "b", Age: 2},
		animal{ID: "a", Age: 2},
		animal{ID: "c", Age: 1},
	}
	slices.SortStableFunc(items, OrderFunc([]Ordering{{Field: "age", Direction: Desc}, {Field: "id", Direction: Asc}}))
	var ids []string
	for _, it := range items {
		ids = append(ids, it.(animal).ID)
	}
	if !slices.Equal(ids, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", ids)
	}
}
