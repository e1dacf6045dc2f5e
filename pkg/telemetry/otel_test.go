package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestNewProvider_RecordError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(DefaultConfig(), sdktrace.WithSpanProcessor(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), "load")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "boom" {
		t.Errorf("Unexpected status: %+v", spans[0].Status())
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("Expected 1 error event, got %d", len(spans[0].Events()))
	}
}

func TestNewProvider_NeverSample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(cfg, sdktrace.WithSpanProcessor(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), "compute")
	span.End()
	if n := len(rec.Ended()); n != 0 {
		t.Errorf("Expected no sampled spans, got %d", n)
	}
}

func TestAttr(t *testing.T) {
	tests := []struct {
		value interface{}
		want  attribute.Value
	}{
		{"x", attribute.StringValue("x")},
		{3, attribute.IntValue(3)},
		{int64(4), attribute.Int64Value(4)},
		{0.5, attribute.Float64Value(0.5)},
		{true, attribute.BoolValue(true)},
		{2 * time.Second, attribute.StringValue("2s")},
		{[]int{1}, attribute.StringValue("[1]")},
	}

	for _, tt := range tests {
		if got := Attr("k", tt.value).Value; got != tt.want {
			t.Errorf("Attr(%v) = %v, want %v", tt.value, got.Emit(), tt.want.Emit())
		}
	}
}
