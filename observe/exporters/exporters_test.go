package exporters

import (
	"context"
	"strings"
	"testing"
)

// TestNewTracingExporter_Stdout verifies the stdout span exporter builds.
func TestNewTracingExporter_Stdout(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("NewTracingExporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestNewTracingExporter_None verifies "none" disables export without error.
func TestNewTracingExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil {
			t.Fatalf("name=%q: %v", name, err)
		}
		if exp != nil {
			t.Errorf("name=%q: expected nil exporter, got %T", name, exp)
		}
	}
}

// TestNewTracingExporter_UnknownName verifies unknown names are rejected.
func TestNewTracingExporter_UnknownName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "zipkin")
	if err == nil {
		t.Fatal("expected error for unknown exporter name")
	}
	if !strings.Contains(err.Error(), "unknown exporter") {
		t.Errorf("expected 'unknown exporter' in error, got: %v", err)
	}
}

// TestNewTracingExporter_OtlpRequiresEndpoint verifies OTLP fails fast
// without an endpoint rather than dialing a default blindly.
func TestNewTracingExporter_OtlpRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp")
	if err == nil {
		t.Fatal("expected error when OTLP endpoint not configured")
	}
	if !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("expected 'endpoint' in error, got: %v", err)
	}
}

// TestNewTracingExporter_OtlpWithEndpoint verifies OTLP builds once an
// endpoint is configured.
func TestNewTracingExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("NewTracingExporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestNewMetricsReader_Stdout verifies the stdout metrics reader builds.
func TestNewMetricsReader_Stdout(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("NewMetricsReader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestNewMetricsReader_Prometheus verifies the Prometheus reader builds.
func TestNewMetricsReader_Prometheus(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("NewMetricsReader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestNewMetricsReader_None verifies "none" disables export without error.
func TestNewMetricsReader_None(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "none")
	if err != nil {
		t.Fatalf("NewMetricsReader: %v", err)
	}
	if reader != nil {
		t.Errorf("expected nil reader, got %T", reader)
	}
}

// TestNewMetricsReader_UnknownName verifies unknown names are rejected.
func TestNewMetricsReader_UnknownName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "statsd")
	if err == nil {
		t.Fatal("expected error for unknown metrics exporter name")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("expected 'unknown' in error, got: %v", err)
	}
}
