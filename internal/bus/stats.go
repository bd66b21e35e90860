package bus

import "sort"

// Stats summarizes the numeric values of a channel field.
type Stats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// StatNames lists the names accepted by Stats.Get, in display order.
var StatNames = []string{"count", "min", "avg", "p50", "p90", "p95", "p99", "max", "sum"}

// Get returns a statistic by name.
func (s Stats) Get(name string) (float64, bool) {
	switch name {
	case "count":
		return float64(s.Count), true
	case "min":
		return s.Min, true
	case "max":
		return s.Max, true
	case "sum":
		return s.Sum, true
	case "avg":
		return s.Avg, true
	case "p50":
		return s.P50, true
	case "p90":
		return s.P90, true
	case "p95":
		return s.P95, true
	case "p99":
		return s.P99, true
	}
	return 0, false
}

// Percentile returns the nearest-rank percentile of a sorted slice.
// p is between 0 and 1 (e.g. 0.95 for p95).
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeStats computes Stats over values. Pure function; values is not modified.
func ComputeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Stats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Sum:   sum,
		Avg:   sum / float64(len(sorted)),
		P50:   Percentile(sorted, 0.50),
		P90:   Percentile(sorted, 0.90),
		P95:   Percentile(sorted, 0.95),
		P99:   Percentile(sorted, 0.99),
	}
}

// Stats computes statistics over field for the selected records.
func (v *View) Stats(field string) Stats {
	return ComputeStats(v.Values(field))
}
