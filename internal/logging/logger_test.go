package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("started")

	if !strings.Contains(readLog(t, filepath.Join(cfg.Paths.LogDir, "ytanalyzer.log")), "started") {
		t.Fatal("expected log file to contain message")
	}
}

func TestConsoleLoggerLiftsComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	scraper := logging.NewComponentLogger(logger, "scraper")
	scraper.Info("comments saved", logging.VideoID("abc123"), logging.Int("count", 20))

	content := readLog(t, logPath)
	if !strings.Contains(content, "[scraper] video abc123: comments saved count=20") {
		t.Fatalf("unexpected console line %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information at info level, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("probe")
	if !strings.Contains(readLog(t, logPath), "logger_test.go:") {
		t.Fatal("expected source location in debug output")
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithBatchID(context.Background(), "deadbeef")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("batch started")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "batch started" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry[logging.FieldBatchID] != "deadbeef" || entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("expected context fields, got %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "quota low", "quota_low", logging.Impact("scrape paused"))

	content := readLog(t, logPath)
	for _, fragment := range []string{`"event_type":"quota_low"`, `"error_hint":"see the log file for the failing call"`, `"impact":"scrape paused"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %s", fragment, content)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
}
