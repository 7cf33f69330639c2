package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"trawl/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trawl.log")
	logger, err := New(Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("sync started", String(FieldComponent, "syncer"))

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("parse log line: %v", err)
	}
	if record["msg"] != "sync started" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record[FieldComponent] != "syncer" {
		t.Fatalf("component = %v", record[FieldComponent])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFieldsCarriesJobAndTask(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 7)
	ctx = services.WithTaskID(ctx, 21)

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("fields = %v", fields)
	}
	if fields[0].Key != FieldJobID || fields[0].Value.Int64() != 7 {
		t.Fatalf("job field = %v", fields[0])
	}
	if fields[1].Key != FieldTaskID || fields[1].Value.Int64() != 21 {
		t.Fatalf("task field = %v", fields[1])
	}
}

func TestWithContextReturnsSameLoggerWhenEmpty(t *testing.T) {
	logger := NewNop()
	if got := WithContext(context.Background(), logger); got != logger {
		t.Fatal("empty context must not rebuild the logger")
	}
}
