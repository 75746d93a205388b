package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/webconsole/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesJSONWithServiceAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, err := New(config.Logging{Level: "info", Service: "webconsole"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()

	ctx := WithRequestID(context.Background(), "req-1")
	l.InfoContext(ctx, "hello", "k", "v")
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["service"] != "webconsole" || rec["request_id"] != "req-1" || rec["msg"] != "hello" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewFansOutToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	var buf bytes.Buffer
	l, closeFn, err := New(config.Logging{Level: "debug", File: path}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("to both")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Fatalf("file=%q stream=%q", data, buf.String())
	}
}
