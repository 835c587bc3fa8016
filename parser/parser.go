// Package parser turns HTTP responses into results according to the
// operation that produced them.
//
// An operation's response type selects the mode. Primitive and documentation
// responses return the decoded body. Class responses go to a ClassBuilder.
// Model responses run the visitor engine: every location the model refers to
// gets one Before, each property is visited by its location's visitor, and
// every visitor that ran Before gets one After, whatever the outcome.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/description"
	"github.com/zubr/guzzle/internal/metrics"
	"github.com/zubr/guzzle/response"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
	"github.com/zubr/guzzle/visitor"
)

// ResponseParser parses responses. It holds no per-parse state and is safe
// for concurrent use as long as the registered visitors are.
type ResponseParser struct {
	registry *visitor.Registry
	cfg      config
}

// New returns a parser resolving locations through reg. A nil reg uses
// visitor.NewRegistry().
func New(reg *visitor.Registry, opts ...Option) *ResponseParser {
	if reg == nil {
		reg = visitor.NewRegistry()
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &ResponseParser{registry: reg, cfg: cfg}
}

// Parse handles resp as described by op. The result is the decoded body for
// primitive and documentation responses, a *Model for model responses and
// whatever the class builder returns for class responses. Any error aborts
// the parse; no partial result is returned.
func (p *ResponseParser) Parse(ctx context.Context, op *description.Operation, resp *response.Response) (any, error) {
	if op == nil {
		return nil, errors.New("parser: nil operation")
	}
	mode := op.ResponseType
	if mode == "" {
		mode = description.ResponsePrimitive
	}

	id := uuid.New().String()
	ctx, span := p.cfg.tracer.Start(ctx, "guzzle.parse", trace.WithAttributes(
		attribute.String("guzzle.operation", op.Name),
		attribute.String("guzzle.response_type", string(mode)),
		attribute.String("guzzle.parse_id", id),
	))
	defer span.End()
	start := time.Now()

	out, err := p.dispatch(ctx, id, op, mode, resp)

	p.observe(string(mode), start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (p *ResponseParser) dispatch(ctx context.Context, id string, op *description.Operation, mode description.ResponseType, resp *response.Response) (any, error) {
	switch mode {
	case description.ResponseModel:
		if op.Model == nil {
			return nil, guzzle.NewIssue(guzzle.CodeUnknownModel, "", map[string]string{"model": op.ResponseModel}, nil)
		}
		return p.parseModel(ctx, id, op.Model, resp)
	case description.ResponseClass:
		build, ok := p.cfg.builders[op.ResponseClass]
		if !ok || build == nil {
			return nil, guzzle.NewIssue(guzzle.CodeResponseClass, "", map[string]string{"class": op.ResponseClass}, nil)
		}
		out, err := build(ctx, resp, op)
		if err != nil {
			p.cfg.logger.WarnContext(ctx, "class builder failed", "parse_id", id, "operation", op.Name, "class", op.ResponseClass, "error", err)
			return nil, fmt.Errorf("parser: build %s: %w", op.ResponseClass, err)
		}
		return out, nil
	default:
		if resp == nil {
			return value.Null(), nil
		}
		return resp.Body, nil
	}
}

// ParseModel runs the visitor engine for model directly, without an
// operation.
func (p *ResponseParser) ParseModel(ctx context.Context, model *schema.Parameter, resp *response.Response) (*Model, error) {
	var name string
	if model != nil {
		name = model.Name
	}
	id := uuid.New().String()
	ctx, span := p.cfg.tracer.Start(ctx, "guzzle.parse_model", trace.WithAttributes(
		attribute.String("guzzle.model", name),
		attribute.String("guzzle.parse_id", id),
	))
	defer span.End()
	start := time.Now()

	m, err := p.parseModel(ctx, id, model, resp)

	p.observe(string(description.ResponseModel), start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return m, nil
}

func (p *ResponseParser) parseModel(ctx context.Context, id string, model *schema.Parameter, resp *response.Response) (*Model, error) {
	if model == nil {
		return nil, guzzle.NewIssue(guzzle.CodeInvalidModel, "", nil, errors.New("nil model"))
	}
	r := &run{
		p:     p,
		ctx:   ctx,
		log:   p.cfg.logger.With("parse_id", id),
		scope: visitor.NewScope(ctx, resp),
		model: model,
		seen:  map[string]visitor.Visitor{},
	}
	var err error
	switch {
	case model.Is(schema.TypeArray):
		r.result = value.Seq()
		err = r.array()
	case model.Is(schema.TypeObject) || model.Type == "":
		r.result = value.Object(nil)
		err = r.object()
	default:
		err = guzzle.NewIssue(guzzle.CodeInvalidModel, "", map[string]string{"type": string(model.Type)}, nil)
	}
	if err = errors.Join(err, r.cleanup()); err != nil {
		return nil, err
	}
	return &Model{Schema: model, Data: r.result}, nil
}

func (p *ResponseParser) observe(mode string, start time.Time, err error) {
	if !p.cfg.metrics {
		return
	}
	metrics.ParsesTotal.WithLabelValues(mode, metrics.Outcome(err)).Inc()
	metrics.ParseDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		code := guzzle.CodeOf(err)
		if code == "" {
			code = "other"
		}
		metrics.ErrorsTotal.WithLabelValues(code).Inc()
	}
}

// run is the state of one model parse.
type run struct {
	p      *ResponseParser
	ctx    context.Context
	log    *slog.Logger
	scope  *visitor.Scope
	model  *schema.Parameter
	result value.Value

	// visitors whose Before succeeded, in discovery order
	used []located
	seen map[string]visitor.Visitor
}

type located struct {
	location string
	v        visitor.Visitor
}

// acquire returns the visitor for location, running its Before on first use.
func (r *run) acquire(location string) (visitor.Visitor, error) {
	if v, ok := r.seen[location]; ok {
		return v, nil
	}
	v, err := r.p.registry.Get(location)
	if err != nil {
		return nil, err
	}
	r.log.DebugContext(r.ctx, "visitor before", "location", location, "model", r.model.Name)
	if err := v.Before(r.scope, r.model); err != nil {
		return nil, fmt.Errorf("visitor %s: before: %w", location, err)
	}
	r.seen[location] = v
	r.used = append(r.used, located{location: location, v: v})
	return v, nil
}

func (r *run) visit(location string, v visitor.Visitor, param *schema.Parameter, whole bool) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.p.cfg.metrics {
		metrics.VisitsTotal.WithLabelValues(location).Inc()
	}
	r.log.DebugContext(r.ctx, "visitor visit", "location", location, "param", param.Name, "whole", whole)
	return v.Visit(r.scope, param, &r.result, whole)
}

func (r *run) locationOf(param *schema.Parameter) string {
	if param.Location != "" {
		return param.Location
	}
	return r.model.Location
}

func (r *run) object() error {
	type binding struct {
		param    *schema.Parameter
		location string
		v        visitor.Visitor
	}
	var bound []binding
	for _, prop := range r.model.Properties {
		loc := r.locationOf(prop)
		if loc == "" {
			continue
		}
		v, err := r.acquire(loc)
		if err != nil {
			return err
		}
		bound = append(bound, binding{param: prop, location: loc, v: v})
	}

	add := r.model.AdditionalProperties
	if add.Mode == schema.AdditionalSchema && add.Schema != nil && add.Schema.Location != "" {
		v, err := r.acquire(add.Schema.Location)
		if err != nil {
			return err
		}
		if err := r.visit(add.Schema.Location, v, r.model.Anonymous(), true); err != nil {
			return err
		}
	}

	for _, b := range bound {
		if err := r.visit(b.location, b.v, b.param, false); err != nil {
			return err
		}
	}

	if add.Mode == schema.AdditionalDeny {
		r.result.Retain(r.model.PropertyNames())
	}
	return nil
}

func (r *run) array() error {
	loc := r.model.Location
	if r.model.Items != nil && r.model.Items.Location != "" {
		loc = r.model.Items.Location
	}
	if loc == "" {
		return nil
	}
	v, err := r.acquire(loc)
	if err != nil {
		return err
	}
	if err := r.visit(loc, v, r.model, true); err != nil {
		return err
	}
	if r.result.IsNull() {
		r.result = value.Seq()
	}
	return nil
}

// cleanup runs After on every visitor that ran Before, in discovery order.
func (r *run) cleanup() error {
	var errs []error
	for _, u := range r.used {
		r.log.DebugContext(r.ctx, "visitor after", "location", u.location)
		if err := u.v.After(r.scope, r.model, &r.result); err != nil {
			r.log.LogAttrs(r.ctx, slog.LevelWarn, "visitor after failed",
				slog.String("location", u.location), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("visitor %s: after: %w", u.location, err))
		}
	}
	return errors.Join(errs...)
}
