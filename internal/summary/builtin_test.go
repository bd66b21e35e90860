package summary

import (
	"reflect"
	"strings"
	"testing"

	"probekit/internal/bus"
	"probekit/internal/core"
	"probekit/internal/stream"
)

func latencyView(format core.Format) *bus.View {
	records := []core.Record{
		{Channel: "latency", Location: "t::a", Fields: core.Pairs("value", 5)},
		{Channel: "latency", Location: "t::b", Fields: core.Pairs("value", 5)},
		{Channel: "latency", Location: "t::c", Fields: core.Pairs("value", 3)},
		{Channel: "other", Location: "t::c", Fields: core.Pairs("value", 100)},
	}
	return bus.NewView(records, map[string]core.Format{"latency": format})
}

func render(t *testing.T, def Definition, view *bus.View) []string {
	t.Helper()
	r := NewRenderer(12)
	r.Require(def, stream.Stream[core.Record]{})
	sections := r.Render(view)
	if sections[0].Err != nil {
		t.Fatal(sections[0].Err)
	}
	return sections[0].Lines
}

func TestRecords(t *testing.T) {
	lines := render(t, Records("latency"), latencyView(core.Format{Unit: "ms"}))

	want := []string{
		"~~~~~~~~~~~~", "latency", "~~~~~~~~~~~~",
		"t::a     5ms",
		"t::b     5ms",
		"t::c     3ms",
		"~~~~~~~~~~~~",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

func TestRecords_FormatTopAndAscending(t *testing.T) {
	lines := render(t, Records("latency"), latencyView(core.Format{Top: 2}))
	if body := lines[3:5]; body[0] != "t::a       5" || body[1] != "t::b       5" {
		t.Errorf("expected the two 5s in emission order, got %q", body)
	}

	lines = render(t, Records("latency"), latencyView(core.Format{Ascending: true}))
	if body := lines[3:6]; body[0] != "t::c       3" {
		t.Errorf("expected ascending order, got %q", body)
	}
}

func TestTopN(t *testing.T) {
	lines := render(t, TopN("latency", 2, ""), latencyView(core.Format{}))

	if lines[1] != "Top 2 latency (value)" {
		t.Errorf("unexpected title %q", lines[1])
	}
	if body := lines[3:5]; body[0] != "t::a       5" || body[1] != "t::b       5" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestStats(t *testing.T) {
	lines := render(t, Stats("latency", "value"), latencyView(core.Format{}))
	out := strings.Join(lines, "\n")

	for _, want := range []string{"LOCATION", "t::a", "t::c", "ALL"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestStats_Empty(t *testing.T) {
	lines := render(t, Stats("missing", ""), latencyView(core.Format{}))
	if lines[3] != "No records" {
		t.Errorf("unexpected body %q", lines)
	}
}
