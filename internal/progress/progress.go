// Package progress prints per-test outcome lines and the end-of-run tally.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"probekit/internal/core"
)

var colorAttributes = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

type Progress struct {
	output io.Writer
	quiet  bool
	colors bool
	mu     sync.Mutex
}

// NewProgress writes to stderr with colors when stderr supports them.
func NewProgress(quiet bool) *Progress {
	return &Progress{
		output: os.Stderr,
		quiet:  quiet,
		colors: !color.NoColor,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// SetColor forces colored output on or off.
func (p *Progress) SetColor(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.colors = enabled
}

func (p *Progress) paint(name string, bold bool, s string) string {
	if !p.colors {
		return s
	}
	attr, ok := colorAttributes[strings.ToLower(name)]
	if !ok {
		attr = color.FgWhite
	}
	c := color.New(attr)
	if bold {
		c.Add(color.Bold)
	}
	c.EnableColor()
	return c.Sprint(s)
}

// Outcome prints "<test id> <LABEL>" for r. A status label replaces PASSED;
// failures are followed by the indented error.
func (p *Progress) Outcome(r *core.TestResult) {
	if p.quiet {
		return
	}
	label, colorName := "PASSED", "green"
	if s, ok := r.Display(); ok {
		label, colorName = s.Label, s.Color
	} else if r.Outcome == core.OutcomeFailed {
		label, colorName = "FAILED", "red"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "%s %s\n", r.ID, p.paint(colorName, false, label))
	if r.Outcome == core.OutcomeFailed && r.Err != nil {
		for _, line := range strings.Split(r.Err.Error(), "\n") {
			fmt.Fprintf(p.output, "    %s\n", line)
		}
	}
}

// Tally prints the tally between rules, colored red if any test failed.
func (p *Progress) Tally(t Tally) {
	if p.quiet {
		return
	}
	colorName := "green"
	if t.Count(string(core.OutcomeFailed)) > 0 {
		colorName = "red"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.output, p.paint(colorName, true, "==== "+t.String()+" ===="))
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, format+"\n", args...)
	p.mu.Unlock()
}
