package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, "INFO")

	ctx, l := WithTraceContext(context.Background(), base)
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		t.Fatal("expected a trace ID in the context")
	}
	if FromContext(ctx) != l {
		t.Error("expected the traced logger to be stored in the context")
	}

	l.Info("traced")
	entries := decodeEntries(t, &buf)
	if len(entries) != 1 || entries[0].TraceID != traceID {
		t.Errorf("expected entry with trace ID %s, got %+v", traceID, entries)
	}

	if TraceIDFromContext(context.Background()) != "" {
		t.Error("expected no trace ID in a bare context")
	}
}

func TestGenerateTraceID(t *testing.T) {
	a, b := GenerateTraceID(), GenerateTraceID()
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected a UUID trace ID, got %q: %v", a, err)
	}
	if a == b {
		t.Error("expected distinct trace IDs")
	}
}

func TestConfigurationAndStorageContext(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, "INFO")

	ConfigurationContext(base, "user/config.json").Info("checked")
	StorageContext(base, "redis", "tradebot:config:default").Info("loaded")

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Component != "Configuration" || entries[0].Fields["config_path"] != "user/config.json" {
		t.Errorf("unexpected configuration entry: %+v", entries[0])
	}
	if entries[1].Component != "storage" || entries[1].Fields["backend"] != "redis" {
		t.Errorf("unexpected storage entry: %+v", entries[1])
	}
}
