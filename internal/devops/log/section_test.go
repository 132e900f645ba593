package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestSectionWriterPlainOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	sw := NewSectionWriter(&out, false).WithErrorWriter(&errOut)

	sw.Section("backend")
	sw.Info("Starting %s", "run script")
	sw.Success("Started (PID: %d)", 42)
	sw.Warn("slow")
	sw.Error("failed: %v", "boom")
	sw.Plain("raw %d", 1)

	want := "\n── backend ──\n▸ Starting run script\n✓ Started (PID: 42)\n⚠ slow\nraw 1\n"
	if got := out.String(); got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
	if got := errOut.String(); got != "✗ failed: boom\n" {
		t.Fatalf("stderr = %q", got)
	}
	if sw.ColorEnabled() {
		t.Fatal("colors should be disabled")
	}
}

func TestSectionWriterColors(t *testing.T) {
	var out bytes.Buffer
	sw := NewSectionWriter(&out, true)
	sw.Success("ok")
	if !strings.Contains(out.String(), "\x1b[") {
		t.Fatalf("expected ANSI escape in %q", out.String())
	}
}

func TestShouldColorNil(t *testing.T) {
	if ShouldColor(nil) {
		t.Fatal("nil file must not be colored")
	}
}
