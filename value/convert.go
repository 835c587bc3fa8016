package value

import (
	"bytes"
	"encoding/json"
	"sort"

	gojson "github.com/goccy/go-json"
)

// FromAny converts plain Go data into a Value. map[string]any keys are sorted
// because Go maps carry no order; use the engine decoder to keep document order.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Map:
		return Object(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap(len(keys))
		for _, k := range keys {
			m.Set(k, FromAny(t[k]))
		}
		return Object(m)
	case []any:
		items := make([]Value, len(t))
		for i := range t {
			items[i] = FromAny(t[i])
		}
		return Seq(items...)
	case []string:
		items := make([]Value, len(t))
		for i := range t {
			items[i] = String(t[i])
		}
		return Seq(items...)
	default:
		return Scalar(x)
	}
}

// Interface converts v back into plain Go data: map[string]any, []any, the
// scalar payload, or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindSeq:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.keys {
			out[k] = v.m.vals[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v with map keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindScalar:
		if n, ok := v.scalar.(json.Number); ok && n != "" {
			buf.WriteString(n.String())
			return nil
		}
		b, err := gojson.Marshal(v.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindSeq:
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := gojson.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.m.vals[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
