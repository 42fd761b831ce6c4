package feature

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of property value types.
type Kind int

const (
	// KindNull is an explicit null value.
	KindNull Kind = iota
	// KindString is a text value.
	KindString
	// KindNumber is a numeric value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

// Value is a single feature property value: string, number, boolean, or
// null. Source data (CSV cells, JSON properties) is coerced into this
// closed variant so search and serialization stay well-defined.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String creates a text value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny coerces an arbitrary decoded JSON value into a Value.
// Scalars map directly; composite values are flattened to their JSON text.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		return Bool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprintf("%v", t))
		}
		return String(string(data))
	}
}

// Kind returns the value's type discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the value's text form. Null renders as the empty string,
// numbers in their shortest decimal form, booleans as "true"/"false".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Number returns the numeric value, or 0 for non-numbers.
func (v Value) Number() float64 { return v.num }

// Interface returns the value as a plain Go value for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Properties maps property names to scalar values. Insertion order is not
// significant.
type Properties map[string]Value

// PropertiesFromAny coerces a decoded JSON property map.
func PropertiesFromAny(m map[string]any) Properties {
	if m == nil {
		return nil
	}
	p := make(Properties, len(m))
	for k, v := range m {
		p[k] = FromAny(v)
	}
	return p
}

// SearchText returns the lower-cased, space-joined text form of all
// non-null values. Keys are excluded. Values join in sorted key order so
// the result is deterministic.
func (p Properties) SearchText() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := p[k]
		if v.IsNull() {
			continue
		}
		parts = append(parts, strings.ToLower(v.String()))
	}
	return strings.Join(parts, " ")
}

// Interface returns the properties as a plain map for JSON encoding.
func (p Properties) Interface() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}
