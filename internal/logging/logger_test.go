package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var typed *slogPrintfLogger
	var logger Logger = typed
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world") // should not panic
}

func TestNewFormatsMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: "info", Format: "text", Output: buf})
	logger.Info("hello %s", "world")

	if want := "hello world"; !bytes.Contains(buf.Bytes(), []byte(want)) {
		t.Fatalf("expected %q in output, got %q", want, buf.String())
	}
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: "warn", Output: buf})
	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info message leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("expected warn message, got %q", out)
	}
}

func TestComponentLoggerCarriesComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Configure(Config{Level: "debug", Format: "json", Output: buf})
	t.Cleanup(func() { Configure(Config{Level: "warn"}) })

	NewComponentLogger("abilities").Debug("merged %d tools", 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"abilities"`) {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "merged 3 tools") {
		t.Fatalf("expected formatted message, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"error":   slog.LevelError,
		"warn":    slog.LevelWarn,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
