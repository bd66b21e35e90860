// Package summary renders end-of-run report sections from the metrics bus.
package summary

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"probekit/internal/core"
)

// DefaultWidth is used when no width is configured and stdout is not a terminal.
const DefaultWidth = 80

// TerminalWidth returns the width of f if it is a terminal, else DefaultWidth.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// Summary collects the header, body and footer lines of one report section.
type Summary struct {
	width  int
	header []string
	lines  []string
	footer []string
}

// New creates an empty summary laid out for width columns.
func New(width int) *Summary {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Summary{width: width}
}

// Width returns the layout width.
func (s *Summary) Width() int {
	return s.width
}

// Title frames the section: a rule, the title and a rule above the body,
// and a rule below it.
func (s *Summary) Title(title string) {
	rule := s.Rule()
	s.Header(rule, title, rule)
	s.Footer(rule)
}

// Rule returns a full-width separator line.
func (s *Summary) Rule() string {
	return strings.Repeat("~", s.width)
}

// Header appends lines above the body.
func (s *Summary) Header(lines ...string) {
	s.header = append(s.header, lines...)
}

// Footer appends lines below the body.
func (s *Summary) Footer(lines ...string) {
	s.footer = append(s.footer, lines...)
}

// Log appends values to the body. A record (or map) holding a location and
// exactly one other field is laid out as the location on the left and the
// value flush right; anything else is printed as is.
func (s *Summary) Log(values ...any) {
	for _, v := range values {
		s.lines = append(s.lines, s.line(v))
	}
}

// Logf appends a formatted line to the body.
func (s *Summary) Logf(format string, args ...any) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// Pad lays out left and right on one line of the summary's width. Text
// wider than the line is not truncated.
func (s *Summary) Pad(left, right string) string {
	padding := s.width - runewidth.StringWidth(right)
	return runewidth.FillRight(left, padding) + right
}

func (s *Summary) line(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case core.Record:
		if value, ok := x.Value(); ok {
			return s.Pad(x.Location, fmt.Sprint(value))
		}
		return x.Location + ": " + joinFields(x.Fields)
	case map[string]any:
		if loc, ok := x[core.LocationField]; ok && len(x) == 2 {
			for k, value := range x {
				if k != core.LocationField {
					return s.Pad(fmt.Sprint(loc), fmt.Sprint(value))
				}
			}
		}
	}
	return fmt.Sprint(v)
}

// Lines returns the header, body and footer in order.
func (s *Summary) Lines() []string {
	out := make([]string, 0, len(s.header)+len(s.lines)+len(s.footer))
	out = append(out, s.header...)
	out = append(out, s.lines...)
	return append(out, s.footer...)
}

// Empty reports whether nothing was logged to the body.
func (s *Summary) Empty() bool {
	return len(s.lines) == 0
}

// Dump writes every line to w.
func (s *Summary) Dump(w io.Writer) error {
	for _, line := range s.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func joinFields(fields []core.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%v", f.Name, f.Value)
	}
	return strings.Join(parts, ", ")
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
