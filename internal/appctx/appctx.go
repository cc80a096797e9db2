// Package appctx defines the explicit application context threaded through
// service constructors, replacing the teacher's reliance on package-level
// singletons (internal/logging.Log, internal/config globals) for anything
// beyond the process entrypoint.
package appctx

import (
	"corectx/internal/config"
	"corectx/internal/logging"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Context bundles the cross-cutting dependencies every component needs:
// configuration, a logger, and the OpenTelemetry tracer/meter pair used for
// per-stage timing spans and counters. It is not Go's context.Context (that
// still flows per-call for cancellation/deadlines) — this is the
// constructor-time wiring bundle.
type Context struct {
	Config *config.Config
	Logger logging.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// New builds a Context from loaded configuration, defaulting the logger to
// the package-level logrus instance and using the given tracer/meter.
func New(cfg *config.Config, tracer trace.Tracer, meter metric.Meter) *Context {
	return &Context{
		Config: cfg,
		Logger: logging.Default{},
		Tracer: tracer,
		Meter:  meter,
	}
}

// WithLogger returns a copy of c with its logger replaced, useful in tests
// that want a Noop logger or a capturing one.
func (c *Context) WithLogger(l logging.Logger) *Context {
	cp := *c
	cp.Logger = l
	return &cp
}
