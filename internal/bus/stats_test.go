package bus

import (
	"testing"

	"probekit/internal/core"
)

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 50},
		{0.9, 90},
		{1, 100},
	}
	for _, tc := range tests {
		if got := Percentile(values, tc.p); got != tc.want {
			t.Errorf("Percentile(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	if Percentile(nil, 0.5) != 0 {
		t.Error("empty percentile should be 0")
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats([]float64{4, 1, 3, 2})

	if s.Count != 4 || s.Min != 1 || s.Max != 4 || s.Sum != 10 || s.Avg != 2.5 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.P50 != 2 {
		t.Errorf("expected p50=2, got %v", s.P50)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	if s := ComputeStats(nil); s != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestStats_Get(t *testing.T) {
	s := Stats{Count: 2, P95: 7}
	for _, name := range StatNames {
		if _, ok := s.Get(name); !ok {
			t.Errorf("Get(%q) not supported", name)
		}
	}
	if v, _ := s.Get("p95"); v != 7 {
		t.Errorf("unexpected p95 %v", v)
	}
	if _, ok := s.Get("median"); ok {
		t.Error("unknown stat should not be found")
	}
}

func TestView_Stats(t *testing.T) {
	view := NewView([]core.Record{
		record("c", "a", "value", 1),
		record("c", "b", "value", "x"),
		record("c", "c", "value", 3),
	}, nil)

	if s := view.Stats("value"); s.Count != 2 || s.Avg != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
}
