package campaign

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// object is a decoded raw campaign (or one of its nested groups).
type object map[string]any

// lookup walks path through nested objects. A missing key anywhere yields
// (nil, false, nil). Stepping into a value that is not an object, including
// JSON null, is a structural error.
func (o object) lookup(path ...string) (any, bool, error) {
	var cur any = map[string]any(o)
	for i, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false, eris.Errorf("%s is %s, not an object", strings.Join(path[:i], "."), typeName(cur))
		}
		v, ok := m[key]
		if !ok {
			return nil, false, nil
		}
		cur = v
	}
	return cur, true, nil
}

// value returns the leaf at path, or "" when absent or null.
func (o object) value(path ...string) (any, error) {
	v, ok, err := o.lookup(path...)
	if err != nil {
		return nil, err
	}
	if !ok || v == nil {
		return "", nil
	}
	return v, nil
}

// number returns the leaf at path as a float64. An absent leaf counts as 0;
// null is not a number.
func (o object) number(path ...string) (float64, error) {
	v, ok, err := o.lookup(path...)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, isNum := v.(json.Number)
	if !isNum {
		return 0, eris.Errorf("%s is %s, not a number", strings.Join(path, "."), typeName(v))
	}
	f, err := n.Float64()
	if err != nil {
		return 0, eris.Wrapf(err, "%s", strings.Join(path, "."))
	}
	return f, nil
}

// truthy reports whether the leaf at path is present and non-empty:
// not null, not 0, not "", not false, not an empty list or object.
func (o object) truthy(path ...string) (bool, error) {
	v, ok, err := o.lookup(path...)
	if err != nil || !ok {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, eris.Wrapf(err, "%s", strings.Join(path, "."))
		}
		return f != 0, nil
	case string:
		return t != "", nil
	case bool:
		return t, nil
	case []any:
		return len(t) > 0, nil
	case map[string]any:
		return len(t) > 0, nil
	default:
		return true, nil
	}
}

// roundTo rounds f to the given number of decimal places. Formatting rounds
// the exact binary value, so true halves go to the even digit (3.125 -> 3.12)
// and values stored just below a half stay below it (1.005 -> 1.0).
func roundTo(f float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', places, 64), 64)
	if err != nil {
		return f
	}
	return r
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return "an unknown value"
	}
}
