package parser

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zubr/guzzle/description"
	"github.com/zubr/guzzle/response"
)

// ClassBuilder constructs the result of a class response. It runs instead of
// the visitor engine.
type ClassBuilder func(ctx context.Context, resp *response.Response, op *description.Operation) (any, error)

// Option configures a ResponseParser.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	builders map[string]ClassBuilder
	metrics  bool
}

func defaultConfig() config {
	return config{
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("guzzle/parser"),
		builders: map[string]ClassBuilder{},
		metrics:  true,
	}
}

// WithLogger sets the logger used for lifecycle debug output and class
// builder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer that records one span per parse.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithClassBuilder registers b for operations whose response class is class.
func WithClassBuilder(class string, b ClassBuilder) Option {
	return func(c *config) { c.builders[class] = b }
}

// WithoutMetrics stops the parser from updating the Prometheus collectors.
func WithoutMetrics() Option {
	return func(c *config) { c.metrics = false }
}
