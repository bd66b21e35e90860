package summary

import (
	"fmt"
	"io"
	"sort"

	"probekit/internal/bus"
	"probekit/internal/core"
)

// Thresholds defines pass/fail criteria on channel statistics, keyed by channel.
type Thresholds map[string]Bound

// Bound limits statistics of one field of a channel. Keys of Below and
// Above are stat names (count, min, avg, p50, p90, p95, p99, max, sum):
// a stat must be strictly below its Below limit and strictly above its
// Above limit.
type Bound struct {
	Field string             `yaml:"field" toml:"field" json:"field,omitempty"`
	Below map[string]float64 `yaml:"below" toml:"below" json:"below,omitempty"`
	Above map[string]float64 `yaml:"above" toml:"above" json:"above,omitempty"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Check evaluates all thresholds against the frozen view. Statistics other
// than count are not evaluated for a channel without numeric values.
func (t Thresholds) Check(view *bus.View) *ThresholdResults {
	results := &ThresholdResults{Passed: true, Results: make([]ThresholdResult, 0)}
	if len(t) == 0 {
		return results
	}

	channels := make([]string, 0, len(t))
	for ch := range t {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	for _, ch := range channels {
		bound := t[ch]
		field := bound.Field
		if field == "" {
			field = core.ValueField
		}
		stats := view.Where(ch).Stats(field)
		f := view.Format(ch)
		for _, name := range bus.StatNames {
			if limit, ok := bound.Below[name]; ok {
				results.check(ch, name, "<", limit, stats, f)
			}
			if limit, ok := bound.Above[name]; ok {
				results.check(ch, name, ">", limit, stats, f)
			}
		}
	}
	return results
}

func (r *ThresholdResults) check(channel, stat, op string, limit float64, stats bus.Stats, f core.Format) {
	result := ThresholdResult{
		Name:      channel + "." + stat,
		Passed:    true,
		Threshold: fmt.Sprintf("%s %s", op, f.FormatValue(limit)),
		Actual:    "n/a",
	}
	if stats.Count > 0 || stat == "count" {
		actual, _ := stats.Get(stat)
		result.Actual = f.FormatValue(actual)
		if op == "<" {
			result.Passed = actual < limit
		} else {
			result.Passed = actual > limit
		}
	}
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}

// FormatText writes one ✓/✗ line per result.
func (r *ThresholdResults) FormatText(w io.Writer) {
	if r == nil || len(r.Results) == 0 {
		return
	}
	fmt.Fprintln(w, "Thresholds:")
	for _, result := range r.Results {
		symbol := "✓"
		if !result.Passed {
			symbol = "✗"
		}
		fmt.Fprintf(w, "  %s %s %s (actual: %s)\n",
			symbol, result.Name, result.Threshold, result.Actual)
	}
}

// ValidStat reports whether name is a statistic thresholds can bound.
func ValidStat(name string) bool {
	_, ok := bus.Stats{}.Get(name)
	return ok
}
