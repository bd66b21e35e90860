package session

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"probekit/internal/core"
	"probekit/internal/probe"
	"probekit/internal/reporter"
	"probekit/internal/source"
	"probekit/internal/stream"
	"probekit/internal/summary"
)

type fixture struct {
	hub       *source.Hub
	probes    *probe.Registry
	summaries *summary.Registry
	logs      *core.MockWriter
	display   *core.MockWriter
}

func newFixture() *fixture {
	h := source.NewHub()
	h.Declare("app/handler", "x")
	return &fixture{
		hub:       h,
		probes:    probe.NewRegistry(),
		summaries: summary.NewRegistry(),
		logs:      &core.MockWriter{},
		display:   &core.MockWriter{},
	}
}

func (f *fixture) session(selectors ...string) *Session {
	return New(f.hub, f.probes, f.summaries, Options{
		Logger:    slog.New(slog.NewTextHandler(f.logs, nil)),
		Width:     20,
		Display:   f.display,
		Selectors: selectors,
	})
}

func (f *fixture) emit(values ...int) func(context.Context) error {
	return func(context.Context) error {
		for _, v := range values {
			if err := f.hub.EmitPairs("app/handler", "x", v); err != nil {
				return err
			}
		}
		return nil
	}
}

func test(name string) core.TestContext {
	return core.TestContext{File: "tests/test_app.py", Name: name}
}

func countProbe(counts *[]int) probe.Definition {
	return probe.Definition{
		Name: "count",
		Setup: func(p *probe.Probe, rep *reporter.Reporter) error {
			events, err := p.Source("app/handler > x")
			if err != nil {
				return err
			}
			c := stream.Count(events)
			c.Subscribe(func(n int) { *counts = append(*counts, n) })
			c.Pipe(rep.Broadcast("count"))
			return nil
		},
	}
}

func TestRunTest_IsolationBetweenTests(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	s := f.session("count")

	s.RunTest(context.Background(), test("test_a"), nil, f.emit(1, 2, 3))
	f.hub.EmitPairs("app/handler", "x", 99) // between tests
	s.RunTest(context.Background(), test("test_b"), nil, f.emit())

	if !reflect.DeepEqual(counts, []int{3, 0}) {
		t.Errorf("expected [3 0], got %v", counts)
	}
}

func TestRunTest_StatusTally(t *testing.T) {
	f := newFixture()
	f.probes.Register(probe.Definition{
		Name: "wow",
		Setup: func(p *probe.Probe, rep *reporter.Reporter) error {
			events, err := p.Source("app/handler > x")
			if err != nil {
				return err
			}
			stream.Some(stream.GetItem(events, "x"), func(v any) bool { return v == 42 }).
				Pipe(rep.Status("WOW", reporter.WithCategory("surprises")))
			return nil
		},
	})
	s := f.session("wow")

	s.RunTest(context.Background(), test("test_a"), nil, f.emit(42))
	s.RunTest(context.Background(), test("test_b"), nil, f.emit(1))
	s.RunTest(context.Background(), test("test_c"), nil, f.emit(1, 42))
	report, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}

	if got := report.Tally.Count("surprises"); got != 2 {
		t.Errorf("expected surprises = 2, got %d", got)
	}
	if got := report.Tally.String(); got != "1 passed, 2 surprises" {
		t.Errorf("unexpected tally %q", got)
	}
	statuses := 0
	for _, r := range report.Results {
		statuses += len(r.Statuses)
	}
	if statuses != 2 {
		t.Errorf("expected 2 status annotations, got %d", statuses)
	}
}

func TestRunTest_AbnormalExit(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	s := f.session("count")

	result := s.RunTest(context.Background(), test("test_a"), nil, func(ctx context.Context) error {
		f.emit(1, 2)(ctx)
		panic("boom")
	})

	if result.Outcome != core.OutcomeFailed || !strings.Contains(result.Err.Error(), "panic: boom") {
		t.Errorf("panic should fail the test, got %v %v", result.Outcome, result.Err)
	}
	if f.hub.Listeners("app/handler") != 0 {
		t.Fatal("subscription leaked")
	}

	s.RunTest(context.Background(), test("test_b"), nil, f.emit())
	if !reflect.DeepEqual(counts, []int{2, 0}) {
		t.Errorf("expected flushed [2 0], got %v", counts)
	}
}

func TestRunTest_AssertionFailureReportedOnce(t *testing.T) {
	f := newFixture()
	f.probes.Register(probe.Definition{
		Name: "positive",
		Setup: func(p *probe.Probe, _ *reporter.Reporter) error {
			events, err := p.Source("app/handler > x")
			if err != nil {
				return err
			}
			stream.GetItem(events, "x").Fail(func(v any) bool {
				n, _ := core.Number(v)
				return n > 0
			}, "x must be positive, got ${value}")
			return nil
		},
	})
	s := f.session("positive")

	result := s.RunTest(context.Background(), test("test_a"), nil, f.emit(1, -1))

	if result.Outcome != core.OutcomeFailed {
		t.Fatal("expected failure")
	}
	if got := strings.Count(result.Err.Error(), "x must be positive, got -1"); got != 1 {
		t.Errorf("failure should appear once, got %d in %q", got, result.Err)
	}
}

func TestRunTest_IgnoredPipelineErrorStillFails(t *testing.T) {
	f := newFixture()
	f.probes.Register(probe.Definition{
		Name: "key",
		Setup: func(p *probe.Probe, _ *reporter.Reporter) error {
			events, err := p.Source("app/handler")
			if err != nil {
				return err
			}
			stream.GetItem(events, "missing").Subscribe(func(any) {})
			return nil
		},
	})
	s := f.session("key")

	result := s.RunTest(context.Background(), test("test_a"), nil, func(context.Context) error {
		_ = f.hub.EmitPairs("app/handler", "x", 1)
		return nil
	})

	var missing *core.KeyNotPresentError
	if !errors.As(result.Err, &missing) {
		t.Errorf("expected KeyNotPresentError, got %v", result.Err)
	}
}

func TestRunTest_EmptyReductionWarns(t *testing.T) {
	f := newFixture()
	f.probes.Register(probe.Definition{
		Name: "max",
		Setup: func(p *probe.Probe, rep *reporter.Reporter) error {
			events, err := p.Source("app/handler > x")
			if err != nil {
				return err
			}
			values := stream.GetItem(events, "x")
			stream.Reduce1(values, func(a, b any) any { return b }).Pipe(rep.Broadcast("max"))
			return nil
		},
	})
	s := f.session("max")

	result := s.RunTest(context.Background(), test("test_a"), nil, f.emit())

	if result.Outcome != core.OutcomePassed {
		t.Errorf("empty reduction should not fail, got %v", result.Err)
	}
	if !strings.Contains(f.logs.String(), "a probe attempted a reduction with no elements") {
		t.Errorf("expected a warning, got %q", f.logs.String())
	}
}

func TestActivate_UnknownSelectorReportedOnce(t *testing.T) {
	f := newFixture()
	s := f.session("nope")

	s.RunTest(context.Background(), test("test_a"), nil, f.emit())
	s.RunTest(context.Background(), test("test_b"), nil, f.emit())

	if len(s.RunErrors()) != 1 || !errors.Is(s.RunErrors()[0], core.ErrUnknownSelector) {
		t.Errorf("expected one ErrUnknownSelector, got %v", s.RunErrors())
	}
	report, _ := s.Finish()
	if report.Passed() {
		t.Error("run errors should fail the report")
	}
}

func TestActivate_UnresolvedReferenceIsRunLocal(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	f.probes.Register(probe.Definition{
		Name: "broken",
		Setup: func(p *probe.Probe, _ *reporter.Reporter) error {
			_, err := p.Source("app/nowhere > y")
			return err
		},
	})
	s := f.session("broken,count")

	a := s.RunTest(context.Background(), test("test_a"), nil, f.emit(1))
	s.RunTest(context.Background(), test("test_b"), nil, f.emit(1))

	if a.Outcome != core.OutcomePassed {
		t.Errorf("registration errors should not fail tests, got %v", a.Err)
	}
	if !reflect.DeepEqual(counts, []int{1, 1}) {
		t.Errorf("other probes must keep working, got %v", counts)
	}
	var unresolved *core.UnresolvedReferenceError
	if len(s.RunErrors()) != 1 || !errors.As(s.RunErrors()[0], &unresolved) {
		t.Errorf("expected one unresolved reference error, got %v", s.RunErrors())
	}
}

func TestActivate_DisplayProbeForReferences(t *testing.T) {
	f := newFixture()
	s := f.session()

	s.RunTest(context.Background(), test("test_a"), []string{"app/handler > x"}, f.emit(7))

	if got := f.display.Lines(); len(got) != 1 || got[0] != "app/handler: x=7" {
		t.Errorf("unexpected display output %q", got)
	}
}

func TestActivate_ScopedDefinitions(t *testing.T) {
	f := newFixture()
	var root, unit []int
	rootDef := countProbe(&root)
	unitDef := countProbe(&unit)
	unitDef.Scope = "tests/unit"
	f.probes.Register(rootDef)
	f.probes.Register(unitDef)
	s := f.session("count")

	s.RunTest(context.Background(), core.TestContext{File: "tests/unit/test_x.py", Name: "a"}, nil, f.emit(1))
	s.RunTest(context.Background(), core.TestContext{File: "tests/test_y.py", Name: "b"}, nil, f.emit(1, 2))

	if !reflect.DeepEqual(unit, []int{1}) || !reflect.DeepEqual(root, []int{2}) {
		t.Errorf("unexpected resolution: unit=%v root=%v", unit, root)
	}
}

func TestFinish_SummariesInRequireOrder(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	records := summary.Records("count")
	records.Name = "count-records"
	f.summaries.Register(records)
	f.summaries.Register(summary.Definition{
		Name: "live",
		Before: func(live stream.Stream[core.Record], s *summary.Summary) error {
			stream.Count(live).Subscribe(func(n int) { s.Logf("%d records while running", n) })
			return nil
		},
	})
	s := f.session("count")

	s.RunTest(context.Background(), test("test_a"), []string{"live"}, f.emit(1))
	s.RunTest(context.Background(), test("test_b"), []string{"count-records"}, f.emit(1, 2))
	report, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Summaries) != 2 || report.Summaries[0].Name != "live" || report.Summaries[1].Name != "count-records" {
		t.Fatalf("unexpected summaries %+v", report.Summaries)
	}
	if got := report.Summaries[0].Lines; !reflect.DeepEqual(got, []string{"2 records while running"}) {
		t.Errorf("unexpected live summary %q", got)
	}
	body := report.Summaries[1].Lines[3:5]
	if !strings.HasPrefix(body[0], "tests/test_app.py::test_a") || !strings.HasSuffix(body[0], "1") ||
		!strings.HasPrefix(body[1], "tests/test_app.py::test_b") || !strings.HasSuffix(body[1], "2") {
		t.Errorf("unexpected records %q", body)
	}
	if report.Records != 2 {
		t.Errorf("expected 2 records, got %d", report.Records)
	}

	if _, err := s.Finish(); !errors.Is(err, ErrFinished) {
		t.Errorf("expected ErrFinished, got %v", err)
	}
}

func TestFinish_EmptyLiveReductionKeepsReport(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	records := summary.Records("count")
	records.Name = "count-records"
	f.summaries.Register(records)
	f.summaries.Register(summary.Definition{
		Name:    "largest-latency",
		Channel: "latency",
		Before: func(live stream.Stream[core.Record], s *summary.Summary) error {
			stream.Reduce1(live, func(a, _ core.Record) core.Record { return a }).
				Subscribe(func(r core.Record) { s.Log(r) })
			return nil
		},
	})
	s := f.session("count", "largest-latency", "count-records")

	s.RunTest(context.Background(), test("test_a"), nil, f.emit(1, 2))
	report, err := s.Finish()
	if err != nil || report == nil {
		t.Fatalf("expected a report, got %v, %v", report, err)
	}

	if len(report.Summaries) != 2 || report.Summaries[1].Name != "count-records" {
		t.Fatalf("unexpected summaries %+v", report.Summaries)
	}
	if !report.Summaries[0].EmptyReduction || report.Summaries[0].Err != nil {
		t.Errorf("expected an empty reduction without error, got %+v", report.Summaries[0])
	}
	if len(report.Summaries[1].Lines) == 0 {
		t.Error("count-records should still render")
	}
	if !report.Passed() || report.Tally.Count("passed") != 1 {
		t.Errorf("expected a passing report, got errors %v tally %v", report.Errors, report.Tally)
	}
	if !strings.Contains(f.logs.String(), "a summary attempted a reduction with no elements") {
		t.Errorf("expected a warning, got %q", f.logs.String())
	}
}

func TestFinish_Thresholds(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	s := New(f.hub, f.probes, f.summaries, Options{
		Selectors:  []string{"count"},
		Thresholds: summary.Thresholds{"count": {Below: map[string]float64{"max": 2}}},
	})

	s.RunTest(context.Background(), test("test_a"), nil, f.emit(1, 2, 3))
	report, _ := s.Finish()

	if report.Thresholds.Passed || report.Passed() {
		t.Error("threshold violation should fail the run")
	}
}

func TestRunTest_CanceledContext(t *testing.T) {
	f := newFixture()
	s := f.session()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := s.RunTest(ctx, test("test_a"), nil, func(context.Context) error {
		called = true
		return nil
	})
	if called || !errors.Is(result.Err, context.Canceled) {
		t.Errorf("canceled test should not run, got called=%v err=%v", called, result.Err)
	}
}

func TestRunTest_AfterFinishFailsAppends(t *testing.T) {
	f := newFixture()
	var counts []int
	f.probes.Register(countProbe(&counts))
	s := f.session("count")
	s.Finish()

	result := s.RunTest(context.Background(), test("test_a"), nil, f.emit())
	if !errors.Is(result.Err, core.ErrBusFrozen) {
		t.Errorf("expected ErrBusFrozen, got %v", result.Err)
	}
}

func TestExpandSelectors(t *testing.T) {
	got := ExpandSelectors([]string{"a,b", "c"}, []string{"b", " d ,a", ""})
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestJoinDistinct(t *testing.T) {
	shared := errors.New("shared")
	other := errors.New("other")

	err := joinDistinct(errors.Join(shared), errors.Join(shared, other))
	if got := len(flatten(err)); got != 2 {
		t.Errorf("expected 2 distinct errors, got %d: %v", got, err)
	}
	if err := joinDistinct(nil, other); err.Error() != "other" {
		t.Errorf("unexpected %v", err)
	}
}

func TestListDefinitions(t *testing.T) {
	f := newFixture()
	f.probes.Register(probe.Definition{Name: "b"})
	f.probes.Register(probe.Definition{Name: "a"})
	f.summaries.Register(summary.Records("c"))
	s := f.session()

	if p := s.ListProbes(); len(p) != 2 || p[0].Name != "a" {
		t.Errorf("unexpected probes %v", p)
	}
	if sums := s.ListSummaries(); len(sums) != 1 || sums[0].Name != "c" {
		t.Errorf("unexpected summaries %v", sums)
	}
	if s.Bus() == nil || s.ID() == "" {
		t.Error("session should own a bus and an id")
	}
}
