package criteria

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Match reports whether value satisfies expr. A nil expression matches
// everything. Missing fields evaluate as nil.
func Match(expr Expression, value any) (bool, error) {
	if expr == nil {
		return true, nil
	}
	switch e := expr.(type) {
	case Comparison:
		return matchComparison(e, value)
	case Composite:
		return matchComposite(e, value)
	default:
		return false, fmt.Errorf("criteria: unsupported expression %T", expr)
	}
}

func matchComposite(c Composite, value any) (bool, error) {
	switch c.Type {
	case TypeAnd:
		for _, p := range c.Parts {
			ok, err := Match(p, value)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case TypeOr:
		for _, p := range c.Parts {
			ok, err := Match(p, value)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("criteria: unknown composite type %q", c.Type)
	}
}

func matchComparison(c Comparison, value any) (bool, error) {
	got, _ := Field(value, c.Field)
	switch c.Op {
	case OpIsNull:
		return isNil(got), nil
	case OpEq:
		return equal(got, c.Value), nil
	case OpNeq:
		return !equal(got, c.Value), nil
	case OpLt, OpLte, OpGt, OpGte:
		n, ok := compare(got, c.Value)
		if !ok {
			return false, nil
		}
		switch c.Op {
		case OpLt:
			return n < 0, nil
		case OpLte:
			return n <= 0, nil
		case OpGt:
			return n > 0, nil
		default:
			return n >= 0, nil
		}
	case OpIn, OpNotIn:
		list, err := asList(c.Value)
		if err != nil {
			return false, err
		}
		found := false
		for _, candidate := range list {
			if equal(got, candidate) {
				found = true
				break
			}
		}
		return found == (c.Op == OpIn), nil
	case OpContains, OpStartsWith, OpEndsWith:
		s, ok := got.(string)
		if !ok {
			return false, nil
		}
		needle := fmt.Sprint(c.Value)
		switch c.Op {
		case OpContains:
			return strings.Contains(s, needle), nil
		case OpStartsWith:
			return strings.HasPrefix(s, needle), nil
		default:
			return strings.HasSuffix(s, needle), nil
		}
	default:
		return false, fmt.Errorf("criteria: unknown operator %q", c.Op)
	}
}

// Field resolves a dotted path against maps with string keys, structs (by
// field name or json tag) and pointers to either. The boolean is false when
// some segment does not exist.
func Field(value any, path string) (any, bool) {
	cur := reflect.ValueOf(value)
	for _, seg := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, false
		}
		switch cur.Kind() {
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			v := cur.MapIndex(reflect.ValueOf(seg).Convert(cur.Type().Key()))
			if !v.IsValid() {
				return nil, false
			}
			cur = v
		case reflect.Struct:
			v, ok := structField(cur, seg)
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	cur = indirect(cur)
	if !cur.IsValid() {
		return nil, true
	}
	return cur.Interface(), true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if f.Name == name || (tag != "" && tag != "-" && tag == name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func asList(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("criteria: IN expects a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if n, ok := compare(a, b); ok {
		return n == 0
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two scalar values. Numbers of any kind compare numerically,
// strings lexically, booleans false before true, times chronologically. nil
// sorts before everything. The boolean is false for incomparable pairs.
func Compare(a, b any) (int, bool) {
	switch {
	case isNil(a) && isNil(b):
		return 0, true
	case isNil(a):
		return -1, true
	case isNil(b):
		return 1, true
	}
	return compare(a, b)
}

func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmp3(fa < fb, fa > fb), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmp3(!x && y, x && !y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// OrderFunc returns a comparison over values following orderings in turn.
// Incomparable field pairs are treated as equal so the sort stays stable.
func OrderFunc(orderings []Ordering) func(a, b any) int {
	return func(a, b any) int {
		for _, o := range orderings {
			fa, _ := Field(a, o.Field)
			fb, _ := Field(b, o.Field)
			n, ok := Compare(fa, fb)
			if !ok || n == 0 {
				continue
			}
			if o.Direction == Desc {
				return -n
			}
			return n
		}
		return 0
	}
}
