package filters_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zubr/guzzle/filters"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

func apply(t *testing.T, name string, args []any, in value.Value) value.Value {
	t.Helper()
	f, err := filters.Default().Build(name, args)
	require.NoError(t, err)
	out, err := f.Apply(in)
	require.NoError(t, err)
	return out
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		args   []any
		in     value.Value
		want   any
	}{
		{"trim", "trim", nil, value.String("  a "), "a"},
		{"trim cutset", "trim", []any{"@value", "/"}, value.String("/p/"), "p"},
		{"upper", "upper", nil, value.String("x"), "X"},
		{"lower", "lower", nil, value.String("X"), "x"},
		{"upper ignores numbers", "upper", nil, value.Scalar(json.Number("5")), json.Number("5")},
		{"int from string", "int", nil, value.String(" 42 "), int64(42)},
		{"int from number", "int", nil, value.Scalar(json.Number("7")), int64(7)},
		{"float", "float", nil, value.String("1.5"), 1.5},
		{"bool", "bool", nil, value.String("true"), true},
		{"string", "string", nil, value.Scalar(json.Number("3")), "3"},
		{"split", "split", []any{";"}, value.String("a;b"), []any{"a", "b"}},
		{"join", "join", []any{"-"}, value.Seq(value.String("a"), value.String("b")), "a-b"},
		{"rfc3339", "rfc3339", nil, value.String("2024-01-02T03:04:05+02:00"), "2024-01-02T01:04:05Z"},
		{"rfc1123", "rfc3339", nil, value.String("Tue, 02 Jan 2024 01:04:05 GMT"), "2024-01-02T01:04:05Z"},
		{"unixtime", "unixtime", nil, value.Scalar(json.Number("0")), "1970-01-01T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, tt.filter, tt.args, tt.in).Interface())
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := filters.Default().Build("nope", nil)
	assert.ErrorContains(t, err, "unknown filter")

	_, err = filters.Default().Build("upper", []any{"extra"})
	assert.Error(t, err)

	f, err := filters.Default().Build("int", nil)
	require.NoError(t, err)
	_, err = f.Apply(value.String("abc"))
	assert.Error(t, err)
}

func TestRegister_Custom(t *testing.T) {
	r := filters.NewRegistry()
	r.Register("const", func(args []any) (schema.FilterFunc, error) {
		return func(value.Value) (value.Value, error) { return value.String("c"), nil }, nil
	})
	assert.Equal(t, []string{"const"}, r.Names())
	f, err := r.Build("const", nil)
	require.NoError(t, err)
	out, err := f.Apply(value.String("x"))
	require.NoError(t, err)
	assert.Equal(t, "c", out.Raw())
}

func TestCEL(t *testing.T) {
	tests := []struct {
		expr string
		in   value.Value
		want any
	}{
		{"value * 2", value.Scalar(json.Number("21")), int64(42)},
		{"value + '!'", value.String("abc"), "abc!"},
		{"size(value)", value.Seq(value.String("a"), value.String("b")), int64(2)},
		{"value.a + '!'", value.FromAny(map[string]any{"a": "hi"}), "hi!"},
		{"[value, value]", value.String("x"), []any{"x", "x"}},
		{"null", value.String("x"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, filters.CELPrefix+tt.expr, nil, tt.in).Interface())
		})
	}
}

func TestCEL_CompileError(t *testing.T) {
	_, err := filters.CEL("value +")
	assert.Error(t, err)
}
