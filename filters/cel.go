package filters

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

var (
	celOnce   sync.Once
	celShared *cel.Env
	celErr    error
)

func celEnv() (*cel.Env, error) {
	celOnce.Do(func() {
		celShared, celErr = cel.NewEnv(cel.Variable("value", cel.DynType))
	})
	return celShared, celErr
}

// CEL compiles expr into a filter. The expression sees the extracted value as
// `value`; numbers arrive as int or double, objects as maps, sequences as lists.
func CEL(expr string) (schema.Filter, error) {
	env, err := celEnv()
	if err != nil {
		return schema.Filter{}, fmt.Errorf("filters: cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return schema.Filter{}, fmt.Errorf("filters: cel %q: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return schema.Filter{}, fmt.Errorf("filters: cel %q: %w", expr, err)
	}
	return schema.Filter{Name: CELPrefix + expr, Apply: func(v value.Value) (value.Value, error) {
		out, _, err := prg.Eval(map[string]any{"value": toCEL(v)})
		if err != nil {
			return value.Null(), err
		}
		return fromCEL(out)
	}}, nil
}

func toCEL(v value.Value) any {
	switch v.Kind() {
	case value.KindScalar:
		if n, ok := v.Raw().(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i
			}
			f, _ := n.Float64()
			return f
		}
		return v.Raw()
	case value.KindSeq:
		out := make([]any, v.Len())
		for i, it := range v.Items() {
			out[i] = toCEL(it)
		}
		return out
	case value.KindMap:
		out := make(map[string]any, v.Len())
		v.Map().Range(func(k string, x value.Value) bool {
			out[k] = toCEL(x)
			return true
		})
		return out
	default:
		return nil
	}
}

func fromCEL(out ref.Val) (value.Value, error) {
	if types.IsError(out) {
		return value.Null(), fmt.Errorf("cel: %v", out)
	}
	if out.Type() == types.NullType {
		return value.Null(), nil
	}
	if l, ok := out.(traits.Lister); ok {
		var items []value.Value
		for it := l.Iterator(); it.HasNext() == types.True; {
			x, err := fromCEL(it.Next())
			if err != nil {
				return value.Null(), err
			}
			items = append(items, x)
		}
		return value.Seq(items...), nil
	}
	if m, ok := out.(traits.Mapper); ok {
		entries := map[string]value.Value{}
		var keys []string
		for it := m.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			x, err := fromCEL(m.Get(k))
			if err != nil {
				return value.Null(), err
			}
			ks := fmt.Sprint(k.Value())
			keys = append(keys, ks)
			entries[ks] = x
		}
		sort.Strings(keys)
		res := value.NewMap(len(keys))
		for _, k := range keys {
			res.Set(k, entries[k])
		}
		return value.Object(res), nil
	}
	switch t := out.Value().(type) {
	case []byte:
		return value.String(string(t)), nil
	case uint64:
		return value.Scalar(int64(t)), nil
	default:
		return value.Scalar(t), nil
	}
}
