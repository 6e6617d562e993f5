package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	cfg := DefaultConfig("storefront-go")
	cfg.Enabled = false

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init(disabled) returned error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function should not be nil even when disabled")
	}

	// Calling shutdown should be a no-op and return nil.
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown(disabled) returned error: %v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	// Use a non-routable endpoint so the exporter doesn't actually connect,
	// but the SDK initializes successfully (batched export is async).
	cfg := Config{
		ServiceName:  "storefront-go",
		Environment:  "test",
		OTLPEndpoint: "127.0.0.1:0",
		SampleRate:   1.0,
		Enabled:      true,
	}

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init(enabled) returned error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function should not be nil")
	}

	// Verify the global tracer provider was set to an SDK provider.
	tp := otel.GetTracerProvider()
	if _, ok := tp.(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected *sdktrace.TracerProvider, got %T", tp)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Logf("shutdown returned (expected due to unreachable endpoint): %v", err)
	}
}
