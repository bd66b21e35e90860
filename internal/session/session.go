// Package session drives probes, summaries and the metrics bus across one
// test run. Tests run one at a time: RunTest activates the probes selected
// for a test, runs its body and always deactivates them, even when the body
// fails or panics.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"probekit/internal/bus"
	"probekit/internal/core"
	"probekit/internal/probe"
	"probekit/internal/progress"
	"probekit/internal/reporter"
	"probekit/internal/source"
	"probekit/internal/stream"
	"probekit/internal/summary"
)

// ErrFinished is returned by Finish when called more than once.
var ErrFinished = errors.New("session already finished")

// Options configures a Session.
type Options struct {
	Logger     *slog.Logger
	Clock      core.Clock
	Width      int
	Display    io.Writer // output of display probes
	Selectors  []string  // applied to every test
	Thresholds summary.Thresholds
}

// Session is one test run.
type Session struct {
	id         string
	logger     *slog.Logger
	probes     *probe.Registry
	summaries  *summary.Registry
	adapter    *source.Adapter
	bus        *bus.Bus
	renderer   *summary.Renderer
	display    io.Writer
	selectors  []string
	thresholds summary.Thresholds
	results    []*core.TestResult
	runErrors  []error
	reported   map[string]bool
	finished   bool
}

// New creates a session resolving references through inst.
func New(inst source.Instrumentation, probes *probe.Registry, summaries *summary.Registry, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	display := opts.Display
	if display == nil {
		display = io.Discard
	}
	if probes == nil {
		probes = probe.NewRegistry()
	}
	if summaries == nil {
		summaries = summary.NewRegistry()
	}
	id := uuid.NewString()
	return &Session{
		id:         id,
		logger:     logger.With("run", id),
		probes:     probes,
		summaries:  summaries,
		adapter:    source.NewAdapter(inst),
		bus:        bus.New(opts.Clock),
		renderer:   summary.NewRenderer(opts.Width),
		display:    display,
		selectors:  opts.Selectors,
		thresholds: opts.Thresholds,
		reported:   make(map[string]bool),
	}
}

// ID returns the run identifier.
func (s *Session) ID() string {
	return s.id
}

// Bus returns the run's metrics bus.
func (s *Session) Bus() *bus.Bus {
	return s.bus
}

// Results returns the results of the tests run so far, in order.
func (s *Session) Results() []*core.TestResult {
	return s.results
}

// RunErrors returns the run-local errors reported so far.
func (s *Session) RunErrors() []error {
	return s.runErrors
}

// ListProbes returns the registered probe definitions.
func (s *Session) ListProbes() []probe.Definition {
	return s.probes.Definitions()
}

// ListSummaries returns the registered summary definitions.
func (s *Session) ListSummaries() []summary.Definition {
	return s.summaries.Definitions()
}

// RunTest runs body as test with the run's selectors plus selectors. Probes
// are active only while body runs. Errors returned by body, raised by
// pipelines, or a panic fail the test; an empty reduction only logs a warning.
func (s *Session) RunTest(ctx context.Context, test core.TestContext, selectors []string, body func(ctx context.Context) error) *core.TestResult {
	result := core.NewTestResult(test)
	s.results = append(s.results, result)

	probes := s.Activate(test, result, selectors)
	err := s.call(ctx, body)
	if closeErr := s.Deactivate(probes); closeErr != nil {
		err = joinDistinct(err, closeErr)
	}
	if err != nil {
		result.Fail(err)
	}
	s.logger.Debug("test finished", "test", result.ID, "outcome", result.Outcome)
	return result
}

// call runs body, converting a panic into an error.
func (s *Session) call(ctx context.Context, body func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return body(ctx)
}

// Activate resolves the selectors for test, requires selected summaries and
// opens selected probes. Resolution and setup failures are run-local: they
// are reported once and the offending probe is skipped.
func (s *Session) Activate(test core.TestContext, result *core.TestResult, selectors []string) []*probe.Probe {
	var probes []*probe.Probe
	for _, sel := range ExpandSelectors(s.selectors, selectors) {
		def, isProbe := s.probes.Lookup(sel, test)
		sum, isSummary := s.summaries.Lookup(sel, test)
		if !isProbe && !isSummary {
			if !source.IsReference(sel) {
				s.runError(fmt.Errorf("%w: %q", core.ErrUnknownSelector, sel))
				continue
			}
			def, isProbe = probe.Display(sel, s.display), true
		}

		if isSummary {
			if err := s.renderer.Require(sum, s.bus.Live()); err != nil {
				s.runError(err)
			}
		}
		if !isProbe {
			continue
		}

		rep := reporter.New(sel, test, result, s.bus)
		p, err := probe.Activate(def, s.adapter, rep)
		if err != nil {
			s.runError(err)
			continue
		}
		probes = append(probes, p)
	}

	for i, p := range probes {
		if err := p.Open(); err != nil {
			s.runError(err)
			_ = s.Deactivate(probes[i:])
			probes = probes[:i]
			break
		}
		s.logger.Debug("probe activated", "probe", p.Name(), "test", test.ID())
	}
	return probes
}

// Deactivate closes probes in order and returns their joined errors,
// leaving out empty reductions, which are logged as warnings.
func (s *Session) Deactivate(probes []*probe.Probe) error {
	var errs []error
	for _, p := range probes {
		for _, err := range flatten(p.Close()) {
			if errors.Is(err, stream.ErrNoElements) {
				s.logger.Warn("a probe attempted a reduction with no elements", "probe", p.Name())
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) runError(err error) {
	key := err.Error()
	if s.reported[key] {
		return
	}
	s.reported[key] = true
	s.runErrors = append(s.runErrors, err)
	s.logger.Error("run error", "error", err)
}

// ExpandSelectors concatenates run and test selectors, splits comma lists
// and removes duplicates, keeping the first occurrence.
func ExpandSelectors(run, test []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(run)+len(test))
	for _, group := range [][]string{run, test} {
		for _, sel := range group {
			for _, part := range strings.Split(sel, ",") {
				part = strings.TrimSpace(part)
				if part == "" || seen[part] {
					continue
				}
				seen[part] = true
				out = append(out, part)
			}
		}
	}
	return out
}

// Finish freezes the bus, renders required summaries in require order and
// checks thresholds. A failing live subscriber or summary is reported in the
// report's errors; the rest of the report is still produced.
func (s *Session) Finish() (*Report, error) {
	if s.finished {
		return nil, ErrFinished
	}
	s.finished = true

	view, err := s.bus.Freeze()
	if err != nil {
		s.runError(fmt.Errorf("freezing metrics bus: %w", err))
	}

	sections := s.renderer.Render(view)
	for _, sec := range sections {
		if sec.EmptyReduction {
			s.logger.Warn("a summary attempted a reduction with no elements", "summary", sec.Name)
		}
		if sec.Err != nil {
			s.logger.Error("summary failed", "summary", sec.Name, "error", sec.Err)
		}
	}

	report := &Report{
		RunID:      s.id,
		Results:    s.results,
		Tally:      progress.NewTally(s.results),
		Summaries:  sections,
		Thresholds: s.thresholds.Check(view),
		Records:    view.Len(),
	}
	for _, err := range s.runErrors {
		report.Errors = append(report.Errors, err.Error())
	}
	for _, sec := range sections {
		if sec.Err != nil {
			report.Errors = append(report.Errors, sec.Err.Error())
		}
	}
	return report, nil
}

// flatten expands joined errors into their leaves.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// joinDistinct adds the leaves of extra that err does not already carry.
func joinDistinct(err, extra error) error {
	errs := []error{err}
	for _, e := range flatten(extra) {
		if err != nil && errors.Is(err, e) {
			continue
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}
