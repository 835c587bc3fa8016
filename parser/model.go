package parser

import (
	"strconv"
	"strings"

	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

// Model is the result of a model response together with the schema that
// shaped it.
type Model struct {
	Schema *schema.Parameter
	Data   value.Value
}

// Get returns the top-level entry key, or Null.
func (m *Model) Get(key string) value.Value {
	v, _ := m.Path(key)
	return v
}

// Path walks a slash separated path such as "user/tags/0". Map segments are
// keys, sequence segments are indexes.
func (m *Model) Path(path string) (value.Value, bool) {
	cur := m.Data
	if path == "" {
		return cur, true
	}
	for _, seg := range strings.Split(path, "/") {
		switch cur.Kind() {
		case value.KindMap:
			v, ok := cur.Map().Get(seg)
			if !ok {
				return value.Null(), false
			}
			cur = v
		case value.KindSeq:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= cur.Len() {
				return value.Null(), false
			}
			cur = cur.Items()[i]
		default:
			return value.Null(), false
		}
	}
	return cur, true
}

// Interface returns the data as plain Go values.
func (m *Model) Interface() any { return m.Data.Interface() }

// MarshalJSON renders the data in declaration order.
func (m *Model) MarshalJSON() ([]byte, error) { return m.Data.MarshalJSON() }
