package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"montage/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Level: "debug", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger = NewComponentLogger(logger, "pipeline")
	logger.Info("stage started", String(FieldStage, "filter"), Int("tiles", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO pipeline: stage started") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "stage=filter") || !strings.Contains(line, "tiles=2") {
		t.Fatalf("missing attributes in console line: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("msg", String("path", "/tmp/with space"))
	if !strings.Contains(buf.String(), `path="/tmp/with space"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("run finished", String(FieldRunID, "abc"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, buf.String())
	}
	if payload["msg"] != "run finished" {
		t.Fatalf("unexpected msg field: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level field: %v", payload["level"])
	}
	if payload[FieldRunID] != "abc" {
		t.Fatalf("unexpected run_id field: %v", payload[FieldRunID])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Level: "warn", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn should pass at warn level: %q", out)
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := services.WithRunID(context.Background(), "run-9")
	ctx = services.WithStage(ctx, "concat")

	WithContext(ctx, logger).Info("stage completed")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-9") || !strings.Contains(line, "stage=concat") {
		t.Fatalf("expected context fields, got %q", line)
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	// Must not panic and must stay silent.
	logger.Info("noop")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
