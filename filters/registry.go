// Package filters resolves filter declarations from service descriptions into
// schema.Filter values.
//
// A declaration names a filter and optionally passes arguments. The token
// "@value" may appear among the arguments to mark where the extracted value
// goes; built-in filters always receive the value first, so the token is
// dropped before the factory sees the arguments. Names starting with "cel:"
// compile the remainder as a CEL expression over the variable `value`.
package filters

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zubr/guzzle/schema"
)

// ValueToken marks the position of the filtered value in an argument list.
const ValueToken = "@value"

// CELPrefix selects an expression filter.
const CELPrefix = "cel:"

// Factory builds a filter from declaration arguments.
type Factory func(args []any) (schema.FilterFunc, error)

// Registry maps filter names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry pre-populated with the built-in filters.
func Default() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register installs f under name, replacing any previous factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Names lists registered filter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build resolves a declaration into a Filter.
func (r *Registry) Build(name string, args []any) (schema.Filter, error) {
	name = strings.TrimSpace(name)
	if expr, ok := strings.CutPrefix(name, CELPrefix); ok {
		return CEL(strings.TrimSpace(expr))
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return schema.Filter{}, fmt.Errorf("filters: unknown filter %q", name)
	}
	fn, err := f(stripValueToken(args))
	if err != nil {
		return schema.Filter{}, fmt.Errorf("filters: %s: %w", name, err)
	}
	return schema.Filter{Name: name, Apply: fn}, nil
}

func stripValueToken(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if s, ok := a.(string); ok && s == ValueToken {
			continue
		}
		out = append(out, a)
	}
	return out
}

func stringArg(args []any, i int, def string) (string, error) {
	if i >= len(args) {
		return def, nil
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %T", i, args[i])
	}
	return s, nil
}
