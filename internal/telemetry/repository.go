package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gin-gonic-todos/internal/todo"
)

const instrumentationName = "gin-gonic-todos/repository"

type Option func(*options)

type options struct {
	tp trace.TracerProvider
	mp metric.MeterProvider
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

type instrumentedRepository struct {
	next     todo.Repository
	tracer   trace.Tracer
	ops      metric.Int64Counter
	failures metric.Int64Counter
	backend  attribute.KeyValue
}

// InstrumentRepository wraps repo so that every call opens a span and is
// counted. A not-found result is not treated as a failure.
func InstrumentRepository(repo todo.Repository, backend string, opts ...Option) todo.Repository {
	o := options{tp: otel.GetTracerProvider(), mp: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.mp.Meter(instrumentationName)
	ops, _ := meter.Int64Counter(
		"todo_repository_operations_total",
		metric.WithDescription("Total number of repository operations"),
	)
	failures, _ := meter.Int64Counter(
		"todo_repository_failures_total",
		metric.WithDescription("Repository operations that returned an error"),
	)

	return &instrumentedRepository{
		next:     repo,
		tracer:   o.tp.Tracer(instrumentationName),
		ops:      ops,
		failures: failures,
		backend:  attribute.String("todo.backend", backend),
	}
}

func (r *instrumentedRepository) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, r.backend)
	ctx, span := r.tracer.Start(ctx, "todo."+op, trace.WithAttributes(attrs...))
	opAttrs := metric.WithAttributes(r.backend, attribute.String("op", op))

	return ctx, func(err error) {
		r.ops.Add(ctx, 1, opAttrs)
		if err != nil && !errors.Is(err, todo.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.failures.Add(ctx, 1, opAttrs)
		}
		span.End()
	}
}

func (r *instrumentedRepository) GetAll(ctx context.Context) ([]todo.Todo, error) {
	ctx, done := r.start(ctx, "get_all")
	todos, err := r.next.GetAll(ctx)
	done(err)
	return todos, err
}

func (r *instrumentedRepository) GetByID(ctx context.Context, id string) (todo.Todo, bool, error) {
	ctx, done := r.start(ctx, "get_by_id", attribute.String("todo.id", id))
	t, ok, err := r.next.GetByID(ctx, id)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("todo.found", ok))
	done(err)
	return t, ok, err
}

func (r *instrumentedRepository) Create(ctx context.Context, title string) (todo.Todo, error) {
	ctx, done := r.start(ctx, "create")
	t, err := r.next.Create(ctx, title)
	if err == nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("todo.id", t.ID))
	}
	done(err)
	return t, err
}

func (r *instrumentedRepository) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	ctx, done := r.start(ctx, "update", attribute.String("todo.id", id))
	t, err := r.next.Update(ctx, id, patch)
	done(err)
	return t, err
}

func (r *instrumentedRepository) Delete(ctx context.Context, id string) error {
	ctx, done := r.start(ctx, "delete", attribute.String("todo.id", id))
	err := r.next.Delete(ctx, id)
	done(err)
	return err
}

// Ping passes through untraced.
func (r *instrumentedRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(todo.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
