// Package visitor extracts schema-described fields from one part of a
// response (body, headers, status line) into a shared result.
//
// Every visitor follows the same lifecycle for a single parse: Before once,
// Visit once per schema node bound to its location, After once. Visitors hold
// no per-parse state; whatever a visitor needs between Before and After lives
// in the Scope that the parser creates for that parse. A visitor instance can
// therefore serve concurrent parses.
package visitor

import (
	"context"
	"sync"

	"github.com/zubr/guzzle/response"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

// Location tags of the built-in visitors.
const (
	LocationBody         = "body"
	LocationJSON         = "json"
	LocationHeader       = "header"
	LocationStatusCode   = "statusCode"
	LocationReasonPhrase = "reasonPhrase"
)

// Visitor extracts data for one location.
type Visitor interface {
	// Before prepares per-parse state for model. It runs once per parse.
	Before(s *Scope, model *schema.Parameter) error
	// Visit writes the data p describes into result. whole asks the visitor to
	// treat the entire source as the target instead of a single key.
	Visit(s *Scope, p *schema.Parameter, result *value.Value, whole bool) error
	// After releases per-parse state. It runs once per parse, also on failure.
	After(s *Scope, model *schema.Parameter, result *value.Value) error
}

// Scope is the state of one parse. It is not safe for concurrent use; each
// parse creates its own.
type Scope struct {
	ctx      context.Context
	Response *response.Response
	state    map[string]any
}

// NewScope returns a Scope over resp. A nil resp is treated as an empty
// response.
func NewScope(ctx context.Context, resp *response.Response) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	if resp == nil {
		resp = response.New(0, nil, value.Null())
	}
	return &Scope{ctx: ctx, Response: resp, state: map[string]any{}}
}

// Context returns the parse context.
func (s *Scope) Context() context.Context { return s.ctx }

// Set stores per-parse state under key.
func (s *Scope) Set(key string, v any) { s.state[key] = v }

// Get loads per-parse state.
func (s *Scope) Get(key string) (any, bool) {
	v, ok := s.state[key]
	return v, ok
}

// Delete drops per-parse state.
func (s *Scope) Delete(key string) { delete(s.state, key) }

// Len reports how many state entries are held. After a completed parse it is 0.
func (s *Scope) Len() int { return len(s.state) }

// Func adapts plain functions to Visitor. Nil hooks are no-ops.
type Func struct {
	BeforeFunc func(s *Scope, model *schema.Parameter) error
	VisitFunc  func(s *Scope, p *schema.Parameter, result *value.Value, whole bool) error
	AfterFunc  func(s *Scope, model *schema.Parameter, result *value.Value) error
}

func (f Func) Before(s *Scope, model *schema.Parameter) error {
	if f.BeforeFunc == nil {
		return nil
	}
	return f.BeforeFunc(s, model)
}

func (f Func) Visit(s *Scope, p *schema.Parameter, result *value.Value, whole bool) error {
	if f.VisitFunc == nil {
		return nil
	}
	return f.VisitFunc(s, p, result, whole)
}

func (f Func) After(s *Scope, model *schema.Parameter, result *value.Value) error {
	if f.AfterFunc == nil {
		return nil
	}
	return f.AfterFunc(s, model, result)
}

// Registry maps location tags to shared visitor instances. Instances are
// created lazily from factories on first use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Visitor
	instances map[string]Visitor
}

// NewRegistry returns a registry holding the built-in visitors: body (also
// reachable as json), header, statusCode and reasonPhrase.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.RegisterFactory(LocationBody, func() Visitor { return BodyVisitor{} })
	r.RegisterFactory(LocationJSON, func() Visitor { return BodyVisitor{} })
	r.RegisterFactory(LocationHeader, func() Visitor { return HeaderVisitor{} })
	r.RegisterFactory(LocationStatusCode, func() Visitor { return StatusCodeVisitor{} })
	r.RegisterFactory(LocationReasonPhrase, func() Visitor { return ReasonPhraseVisitor{} })
	return r
}

// NewEmptyRegistry returns a registry with no locations.
func NewEmptyRegistry() *Registry {
	return &Registry{factories: map[string]func() Visitor{}, instances: map[string]Visitor{}}
}

// Register installs v for location, replacing any previous visitor.
func (r *Registry) Register(location string, v Visitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, location)
	r.instances[location] = v
}

// RegisterFactory installs a lazily invoked constructor for location.
func (r *Registry) RegisterFactory(location string, f func() Visitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, location)
	r.factories[location] = f
}

// Get returns the visitor for location. Unknown tags fail with an
// unknown_location issue.
func (r *Registry) Get(location string) (Visitor, error) {
	r.mu.RLock()
	v, ok := r.instances[location]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.instances[location]; ok {
		return v, nil
	}
	f, ok := r.factories[location]
	if !ok {
		return nil, unknownLocation(location)
	}
	v = f()
	r.instances[location] = v
	return v, nil
}

// Has reports whether location is registered.
func (r *Registry) Has(location string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, inst := r.instances[location]
	_, fac := r.factories[location]
	return inst || fac
}
