package log

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// SectionWriter provides structured terminal output with color-coded sections.
type SectionWriter struct {
	w      io.Writer
	errW   io.Writer
	colors bool

	header  *color.Color
	info    *color.Color
	success *color.Color
	warn    *color.Color
	fail    *color.Color
}

// NewSectionWriter creates a SectionWriter. Errors go to stderr unless
// redirected with WithErrorWriter.
func NewSectionWriter(w io.Writer, colors bool) *SectionWriter {
	if w == nil {
		w = os.Stdout
	}
	s := &SectionWriter{
		w:       w,
		errW:    os.Stderr,
		colors:  colors,
		header:  color.New(color.FgCyan, color.Bold),
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed),
	}
	for _, c := range []*color.Color{s.header, s.info, s.success, s.warn, s.fail} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// WithErrorWriter redirects Error output, mainly for tests.
func (s *SectionWriter) WithErrorWriter(w io.Writer) *SectionWriter {
	if w != nil {
		s.errW = w
	}
	return s
}

// Writer returns the underlying standard output writer.
func (s *SectionWriter) Writer() io.Writer { return s.w }

// ColorEnabled reports whether the writer emits ANSI colors.
func (s *SectionWriter) ColorEnabled() bool { return s.colors }

// ShouldColor reports whether f is a terminal and NO_COLOR is unset.
func ShouldColor(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Section prints a section header.
func (s *SectionWriter) Section(name string) {
	fmt.Fprintf(s.w, "\n%s\n", s.header.Sprintf("── %s ──", name))
}

// Info prints an info message.
func (s *SectionWriter) Info(format string, args ...any) {
	fmt.Fprintf(s.w, "%s %s\n", s.info.Sprint("▸"), fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (s *SectionWriter) Success(format string, args ...any) {
	fmt.Fprintf(s.w, "%s %s\n", s.success.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func (s *SectionWriter) Warn(format string, args ...any) {
	fmt.Fprintf(s.w, "%s %s\n", s.warn.Sprint("⚠"), fmt.Sprintf(format, args...))
}

// Error prints an error message to the error writer.
func (s *SectionWriter) Error(format string, args ...any) {
	fmt.Fprintf(s.errW, "%s %s\n", s.fail.Sprint("✗"), fmt.Sprintf(format, args...))
}

// Plain prints an unadorned line.
func (s *SectionWriter) Plain(format string, args ...any) {
	fmt.Fprintf(s.w, format+"\n", args...)
}
