package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauern/treesync/internal/logging"
)

// capture installs a default logger writing text at level into a buffer.
func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logging.Default()
	logging.SetDefault(logging.New(logging.Options{Level: level, Output: &buf}))
	t.Cleanup(func() { logging.SetDefault(prev) })
	return &buf
}

func TestNew_Formats(t *testing.T) {
	tests := map[string]struct {
		opts logging.Options
		want []string
	}{
		"text": {
			opts: logging.Options{Level: logging.LevelInfo},
			want: []string{"msg=copied", "path=/dst/a.txt", "level=INFO"},
		},
		"json": {
			opts: logging.Options{Level: logging.LevelInfo, JSON: true},
			want: []string{`"msg":"copied"`, `"path":"/dst/a.txt"`},
		},
		"source location": {
			opts: logging.Options{Level: logging.LevelInfo, AddSource: true},
			want: []string{"source=", "logger_test.go"},
		},
		"json wins over color": {
			opts: logging.Options{Level: logging.LevelInfo, JSON: true, Color: true},
			want: []string{`"level":"INFO"`},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf
			logging.New(tt.opts).Info("copied", logging.Path("/dst/a.txt"))

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestNew_JSONIsParseable(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelDebug, Output: &buf, JSON: true})
	logger.Debug("renamed", logging.Source("/d/a"), logging.Target("/d/b"), logging.Count(2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if rec["source"] != "/d/a" || rec["target"] != "/d/b" || rec["count"] != float64(2) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	levels := map[slog.Level][]string{
		logging.LevelDebug: {"d", "i", "w", "e"},
		logging.LevelInfo:  {"i", "w", "e"},
		logging.LevelWarn:  {"w", "e"},
		logging.LevelError: {"e"},
	}

	for level, want := range levels {
		t.Run(level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.New(logging.Options{Level: level, Output: &buf})
			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			got := strings.Count(buf.String(), "\n")
			if got != len(want) {
				t.Errorf("records = %d, want %d:\n%s", got, len(want), buf.String())
			}
		})
	}
}

func TestNew_NilOutputUsesStderr(t *testing.T) {
	if logging.New(logging.Options{}) == nil {
		t.Fatal("New() returned nil")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := logging.DefaultOptions()
	if opts.Level != logging.LevelWarn {
		t.Errorf("Level = %v, want warn", opts.Level)
	}
	if opts.Output != os.Stderr {
		t.Error("Output should default to stderr")
	}
	if opts.JSON || opts.AddSource || opts.File != "" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestDefaultAndPackageLevel(t *testing.T) {
	buf := capture(t, logging.LevelDebug)

	if logging.Default() != slog.Default() {
		t.Error("SetDefault should also set slog's default")
	}

	logging.Debug("debug-msg")
	logging.Info("info-msg")
	logging.With("run", 7).Info("with-msg")

	for _, want := range []string{"debug-msg", "info-msg", "with-msg run=7"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestContextLogger(t *testing.T) {
	buf := capture(t, logging.LevelInfo)

	if logging.FromContext(context.Background()) != nil {
		t.Error("FromContext() on an empty context should be nil")
	}
	if logging.WithContext(context.Background()) != logging.Default() {
		t.Error("WithContext() should fall back to the default logger")
	}

	var ctxBuf bytes.Buffer
	ctxLogger := logging.New(logging.Options{Level: logging.LevelInfo, Output: &ctxBuf})
	ctx := logging.NewContext(context.Background(), ctxLogger)

	if logging.FromContext(ctx) != ctxLogger {
		t.Error("FromContext() should return the attached logger")
	}
	logging.WithContext(ctx).Info("scoped")

	if !strings.Contains(ctxBuf.String(), "scoped") {
		t.Errorf("context logger output = %q", ctxBuf.String())
	}
	if strings.Contains(buf.String(), "scoped") {
		t.Error("default logger should not receive context logger records")
	}
}

func TestAttributeHelpers(t *testing.T) {
	tests := map[string]struct {
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		"path":      {logging.Path("/a"), logging.KeyPath, "/a"},
		"source":    {logging.Source("/s"), logging.KeySource, "/s"},
		"target":    {logging.Target("/t"), logging.KeyTarget, "/t"},
		"operation": {logging.Operation("rename"), logging.KeyOperation, "rename"},
		"policy":    {logging.Policy("ask"), logging.KeyPolicy, "ask"},
		"count":     {logging.Count(42), logging.KeyCount, "42"},
		"error":     {logging.Err(errors.New("boom")), logging.KeyError, "boom"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if got := tt.attr.Value.String(); got != tt.wantVal {
				t.Errorf("value = %q, want %q", got, tt.wantVal)
			}
		})
	}

	if attr := logging.Err(nil); !attr.Equal(slog.Attr{}) {
		t.Errorf("Err(nil) = %v, want the empty attr", attr)
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var text, js bytes.Buffer
	handler := logging.NewMultiHandler(
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: logging.LevelInfo}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: logging.LevelDebug}),
	)
	logger := slog.New(handler).With("run", "1")

	logger.Debug("only json")
	logger.Info("both")

	if strings.Contains(text.String(), "only json") {
		t.Error("text handler should filter debug records")
	}
	if !strings.Contains(text.String(), "both") || !strings.Contains(text.String(), "run=1") {
		t.Errorf("text handler missing record or attrs: %s", text.String())
	}

	lines := strings.Split(strings.TrimSpace(js.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 json records, got %d: %s", len(lines), js.String())
	}
}

func TestNew_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treesync.log")
	var buf bytes.Buffer
	logger := logging.New(logging.Options{
		Level:  logging.LevelWarn,
		Output: &buf,
		File:   path,
	})

	logger.Debug("file only")
	logger.Warn("everywhere")

	if strings.Contains(buf.String(), "file only") {
		t.Error("console output should respect level")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "file only") || !strings.Contains(string(data), "everywhere") {
		t.Errorf("log file missing records: %s", data)
	}
}

func TestTimer(t *testing.T) {
	var buf bytes.Buffer
	logging.SetDefault(logging.New(logging.Options{
		Level:  logging.LevelDebug,
		Output: &buf,
	}))

	done := logging.Timer("scan")
	done()

	output := buf.String()
	if !strings.Contains(output, "operation=scan") || !strings.Contains(output, "duration=") {
		t.Errorf("expected timer output with operation and duration, got: %s", output)
	}
}
