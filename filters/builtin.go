package filters

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

func registerBuiltins(r *Registry) {
	r.Register("trim", func(args []any) (schema.FilterFunc, error) {
		cutset, err := stringArg(args, 0, "")
		if err != nil {
			return nil, err
		}
		return textFilter(func(s string) string {
			if cutset == "" {
				return strings.TrimSpace(s)
			}
			return strings.Trim(s, cutset)
		}), nil
	})
	r.Register("upper", noArgs(textFilter(strings.ToUpper)))
	r.Register("lower", noArgs(textFilter(strings.ToLower)))
	r.Register("string", noArgs(func(v value.Value) (value.Value, error) {
		if s, ok := v.Text(); ok {
			return value.String(s), nil
		}
		return v, nil
	}))
	r.Register("int", noArgs(scalarFilter(func(v value.Value) (value.Value, error) {
		i, err := ToInt64(v)
		if err != nil {
			return value.Null(), err
		}
		return value.Scalar(i), nil
	})))
	r.Register("float", noArgs(scalarFilter(func(v value.Value) (value.Value, error) {
		f, err := ToFloat64(v)
		if err != nil {
			return value.Null(), err
		}
		return value.Scalar(f), nil
	})))
	r.Register("bool", noArgs(scalarFilter(func(v value.Value) (value.Value, error) {
		if b, ok := v.Raw().(bool); ok {
			return value.Scalar(b), nil
		}
		s, _ := v.Text()
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return value.Null(), err
		}
		return value.Scalar(b), nil
	})))
	r.Register("split", func(args []any) (schema.FilterFunc, error) {
		sep, err := stringArg(args, 0, ",")
		if err != nil {
			return nil, err
		}
		return scalarFilter(func(v value.Value) (value.Value, error) {
			s, _ := v.Text()
			parts := strings.Split(s, sep)
			items := make([]value.Value, len(parts))
			for i, p := range parts {
				items[i] = value.String(p)
			}
			return value.Seq(items...), nil
		}), nil
	})
	r.Register("join", func(args []any) (schema.FilterFunc, error) {
		sep, err := stringArg(args, 0, ",")
		if err != nil {
			return nil, err
		}
		return func(v value.Value) (value.Value, error) {
			if v.Kind() != value.KindSeq {
				return v, nil
			}
			parts := make([]string, 0, v.Len())
			for _, it := range v.Items() {
				s, ok := it.Text()
				if !ok {
					return value.Null(), fmt.Errorf("cannot join %s element", it.Kind())
				}
				parts = append(parts, s)
			}
			return value.String(strings.Join(parts, sep)), nil
		}, nil
	})
	r.Register("rfc3339", noArgs(scalarFilter(func(v value.Value) (value.Value, error) {
		s, _ := v.Text()
		t, err := parseRFC3339(s)
		if err != nil {
			return value.Null(), err
		}
		return value.String(formatRFC3339Canonical(t)), nil
	})))
	r.Register("unixtime", noArgs(scalarFilter(func(v value.Value) (value.Value, error) {
		sec, err := ToInt64(v)
		if err != nil {
			return value.Null(), err
		}
		return value.String(formatRFC3339Canonical(time.Unix(sec, 0))), nil
	})))
}

func noArgs(fn schema.FilterFunc) Factory {
	return func(args []any) (schema.FilterFunc, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no arguments, got %d", len(args))
		}
		return fn, nil
	}
}

// textFilter applies fn to string scalars; everything else passes through.
func textFilter(fn func(string) string) schema.FilterFunc {
	return func(v value.Value) (value.Value, error) {
		s, ok := v.Raw().(string)
		if !ok {
			return v, nil
		}
		return value.String(fn(s)), nil
	}
}

// scalarFilter applies fn to scalars; composites pass through.
func scalarFilter(fn schema.FilterFunc) schema.FilterFunc {
	return func(v value.Value) (value.Value, error) {
		if v.Kind() != value.KindScalar {
			return v, nil
		}
		return fn(v)
	}
}

// ToInt64 converts numeric-like scalars (numbers, numeric strings, booleans)
// to int64. Fractional numbers are rejected.
func ToInt64(v value.Value) (int64, error) {
	switch t := v.Raw().(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case json.Number:
		return strconv.ParseInt(t.String(), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %s to integer", v.Kind())
}

// ToFloat64 converts numeric-like scalars to float64.
func ToFloat64(v value.Value) (float64, error) {
	switch t := v.Raw().(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("cannot convert %s to number", v.Kind())
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		if t2, err2 := time.Parse(time.RFC1123, strings.TrimSpace(s)); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
