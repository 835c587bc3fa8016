// Package value models the dynamically shaped data flowing through a response
// parse: decoded body documents on the way in and parse results on the way out.
//
// A Value is one of four kinds:
//
//   - Null
//   - Scalar (string, bool, json.Number, int64, float64, ...)
//   - Seq, an ordered sequence of Values
//   - Map, an ordered string-keyed collection of Values
//
// Maps remember insertion order so results render in schema declaration order
// and raw documents keep the order the decoder saw.
package value

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable-by-convention tagged variant. The zero Value is Null.
type Value struct {
	kind   Kind
	scalar any
	items  []Value
	m      *Map
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Scalar wraps a leaf value. A nil argument yields Null.
func Scalar(x any) Value {
	if x == nil {
		return Value{}
	}
	return Value{kind: KindScalar, scalar: x}
}

// String is shorthand for Scalar(s).
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Seq builds a sequence from items. The slice is used as is.
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSeq, items: items}
}

// Object wraps m as a Map Value. A nil m yields an empty map.
func Object(m *Map) Value {
	if m == nil {
		m = NewMap(0)
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsComposite reports whether v is a Seq or a Map.
func (v Value) IsComposite() bool { return v.kind == KindSeq || v.kind == KindMap }

// Raw returns the scalar payload, or nil for non-scalars.
func (v Value) Raw() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Items returns the elements of a Seq (nil otherwise). Callers must not mutate
// the returned slice.
func (v Value) Items() []Value {
	if v.kind != KindSeq {
		return nil
	}
	return v.items
}

// Map returns the underlying map of a Map Value (nil otherwise).
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Clone returns a deep copy of v. Containers are copied at every level;
// scalar payloads are immutable and shared.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSeq:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: KindSeq, items: items}
	case KindMap:
		m := NewMap(v.m.Len())
		for _, k := range v.m.Keys() {
			m.Set(k, v.m.vals[k].Clone())
		}
		return Value{kind: KindMap, m: m}
	default:
		return v
	}
}

// Len is the number of elements of a Seq or entries of a Map; 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSeq:
		return len(v.items)
	case KindMap:
		return v.m.Len()
	default:
		return 0
	}
}

// Text renders a scalar as a string. Strings are returned verbatim; numbers and
// booleans use their canonical text form.
func (v Value) Text() (string, bool) {
	if v.kind != KindScalar {
		return "", false
	}
	switch t := v.scalar.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
