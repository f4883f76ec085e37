package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "json", "info"); err != nil {
		t.Fatalf("init: %v", err)
	}

	Named("feed").Info(context.Background(), "aggregated", String("service", "home"), Int("events", 3))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "aggregated" {
		t.Fatalf("msg = %v, want aggregated", line["msg"])
	}
	if line["component"] != "feed" {
		t.Fatalf("component = %v, want feed", line["component"])
	}
	if line["events"] != float64(3) {
		t.Fatalf("events = %v, want 3", line["events"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "text", "warn"); err != nil {
		t.Fatalf("init: %v", err)
	}

	Get().Debug(context.Background(), "hidden")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestInitRejectsUnknownSettings(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "xml", "info"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if err := InitWriter(&buf, "json", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
