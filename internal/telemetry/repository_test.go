package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gin-gonic-todos/internal/config"
	"gin-gonic-todos/internal/storage/localstore"
	"gin-gonic-todos/internal/todo"
	"gin-gonic-todos/internal/todo/todotest"
)

func newInstrumented(t *testing.T) (todo.Repository, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	repo, err := localstore.Open("")
	if err != nil {
		t.Fatal(err)
	}
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return InstrumentRepository(repo, "local", WithTracerProvider(tp), WithMeterProvider(mp)), recorder, reader
}

func TestContract(t *testing.T) {
	todotest.RunContract(t, func(t *testing.T) todo.Repository {
		repo, _, _ := newInstrumented(t)
		return repo
	})
}

func TestSpans(t *testing.T) {
	ctx := context.Background()
	repo, recorder, reader := newInstrumented(t)

	created, err := repo.Create(ctx, "traced")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Update(ctx, "missing", todo.SetCompleted(true)); !errors.Is(err, todo.ErrNotFound) {
		t.Fatalf("Update: got %v, want ErrNotFound", err)
	}
	if _, _, err := repo.GetByID(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("spans: got %d, want 3", len(spans))
	}
	wantNames := []string{"todo.create", "todo.update", "todo.get_by_id"}
	for i, span := range spans {
		if span.Name() != wantNames[i] {
			t.Errorf("span %d: got %q, want %q", i, span.Name(), wantNames[i])
		}
		if span.Status().Code == codes.Error {
			t.Errorf("span %q: unexpected error status", span.Name())
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	if got := sumCounter(rm, "todo_repository_operations_total"); got != 3 {
		t.Errorf("operations: got %d, want 3", got)
	}
	if got := sumCounter(rm, "todo_repository_failures_total"); got != 0 {
		t.Errorf("failures: got %d, want 0", got)
	}
}

func TestFailureRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo, recorder, reader := newInstrumented(t)

	if _, err := repo.GetAll(ctx); err == nil {
		t.Fatal("GetAll: want error on canceled context")
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("spans: want one error span, got %v", spans)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	if got := sumCounter(rm, "todo_repository_failures_total"); got != 1 {
		t.Errorf("failures: got %d, want 1", got)
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
