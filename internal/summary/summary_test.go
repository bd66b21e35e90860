package summary

import (
	"reflect"
	"testing"

	"probekit/internal/core"
)

func TestSummary_TitleFramesBody(t *testing.T) {
	s := New(10)
	s.Title("Latency")
	s.Log("first")
	s.Logf("n=%d", 2)

	want := []string{
		"~~~~~~~~~~",
		"Latency",
		"~~~~~~~~~~",
		"first",
		"n=2",
		"~~~~~~~~~~",
	}
	if got := s.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestSummary_LogPadsLocationAndValue(t *testing.T) {
	s := New(20)
	s.Log(core.Record{Location: "t::a", Fields: core.Pairs("value", 42)})
	s.Log(map[string]any{"location": "t::b", "ms": 7})

	lines := s.Lines()
	if lines[0] != "t::a              42" {
		t.Errorf("unexpected record line %q", lines[0])
	}
	if lines[1] != "t::b               7" {
		t.Errorf("unexpected map line %q", lines[1])
	}
	for _, l := range lines {
		if len(l) != 20 {
			t.Errorf("line %q should span the width", l)
		}
	}
}

func TestSummary_LogWideRunes(t *testing.T) {
	s := New(10)
	s.Log(core.Record{Location: "日本", Fields: core.Pairs("value", 1)})

	if got := s.Lines()[0]; got != "日本     1" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestSummary_LogMultiFieldRecord(t *testing.T) {
	s := New(20)
	s.Log(core.Record{Location: "t::a", Fields: core.Pairs("x", 1, "y", 2)})

	if got := s.Lines()[0]; got != "t::a: x=1, y=2" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestSummary_Dump(t *testing.T) {
	s := New(0)
	if s.Width() != DefaultWidth {
		t.Errorf("expected default width, got %d", s.Width())
	}
	s.Header("h")
	s.Log("b")
	s.Footer("f")

	w := &core.MockWriter{}
	if err := s.Dump(w); err != nil {
		t.Fatal(err)
	}
	if w.String() != "h\nb\nf\n" {
		t.Errorf("unexpected dump %q", w.String())
	}
	if s.Empty() {
		t.Error("summary has a body")
	}
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	if got := TerminalWidth(nil); got != DefaultWidth {
		t.Errorf("expected %d, got %d", DefaultWidth, got)
	}
}
