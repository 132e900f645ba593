package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Generator renders line-based unified diffs.
type Generator struct {
	contextLines int
	header       *color.Color
	hunk         *color.Color
	added        *color.Color
	deleted      *color.Color
}

// NewGenerator creates a generator that keeps contextLines unchanged lines
// around each change.
func NewGenerator(contextLines int, colorEnabled bool) *Generator {
	if contextLines < 0 {
		contextLines = 0
	}
	g := &Generator{
		contextLines: contextLines,
		header:       color.New(color.Bold),
		hunk:         color.New(color.FgCyan),
		added:        color.New(color.FgGreen),
		deleted:      color.New(color.FgRed),
	}
	for _, c := range []*color.Color{g.header, g.hunk, g.added, g.deleted} {
		if colorEnabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return g
}

// Result is a rendered diff with line statistics.
type Result struct {
	Text    string
	Added   int
	Deleted int
}

// Changed reports whether the inputs differed.
func (r Result) Changed() bool { return r.Added > 0 || r.Deleted > 0 }

type line struct {
	kind byte // ' ', '-', '+'
	text string
}

// Unified diffs oldContent against newContent for the file name.
func (g *Generator) Unified(name, oldContent, newContent string) Result {
	if oldContent == newContent {
		return Result{}
	}
	lines := diffLines(oldContent, newContent)

	var res Result
	var b strings.Builder
	b.WriteString(g.header.Sprintf("--- a/%s", name) + "\n")
	b.WriteString(g.header.Sprintf("+++ b/%s", name) + "\n")

	// oldNo[i] and newNo[i] count the lines of each side before lines[i].
	oldNo := make([]int, len(lines)+1)
	newNo := make([]int, len(lines)+1)
	for i, l := range lines {
		oldNo[i+1], newNo[i+1] = oldNo[i], newNo[i]
		switch l.kind {
		case ' ':
			oldNo[i+1]++
			newNo[i+1]++
		case '-':
			oldNo[i+1]++
			res.Deleted++
		case '+':
			newNo[i+1]++
			res.Added++
		}
	}

	for _, h := range g.hunks(lines) {
		start, end := h[0], h[1]
		oldCount := oldNo[end] - oldNo[start]
		newCount := newNo[end] - newNo[start]
		b.WriteString(g.hunk.Sprintf("@@ -%s +%s @@", hunkRange(oldNo[start], oldCount), hunkRange(newNo[start], newCount)) + "\n")
		for _, l := range lines[start:end] {
			text := string(l.kind) + l.text
			switch l.kind {
			case '-':
				text = g.deleted.Sprint(text)
			case '+':
				text = g.added.Sprint(text)
			}
			b.WriteString(text + "\n")
		}
	}

	res.Text = b.String()
	return res
}

func hunkRange(before, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", before)
	}
	if count == 1 {
		return fmt.Sprintf("%d", before+1)
	}
	return fmt.Sprintf("%d,%d", before+1, count)
}

// hunks groups changes separated by at most twice the context into
// [start, end) ranges of lines.
func (g *Generator) hunks(lines []line) [][2]int {
	var out [][2]int
	n := len(lines)
	ctx := g.contextLines
	i := 0
	for i < n {
		for i < n && lines[i].kind == ' ' {
			i++
		}
		if i >= n {
			break
		}
		start := i - ctx
		if start < 0 {
			start = 0
		}
		end := i
		for {
			for end < n && lines[end].kind != ' ' {
				end++
			}
			next := end
			for next < n && lines[next].kind == ' ' {
				next++
			}
			if next < n && next-end <= 2*ctx {
				end = next
				continue
			}
			end += ctx
			if end > next {
				end = next
			}
			break
		}
		out = append(out, [2]int{start, end})
		i = end
	}
	return out
}

func diffLines(oldContent, newContent string) []line {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []line
	for _, d := range diffs {
		var kind byte
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			kind = ' '
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, line{kind: kind, text: text})
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}
