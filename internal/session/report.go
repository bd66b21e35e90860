package session

import (
	"encoding/json"
	"fmt"
	"io"

	"probekit/internal/core"
	"probekit/internal/progress"
	"probekit/internal/summary"
)

// Report is the outcome of a finished run.
type Report struct {
	RunID      string
	Results    []*core.TestResult
	Tally      progress.Tally
	Summaries  []summary.Section
	Thresholds *summary.ThresholdResults
	Records    int
	Errors     []string
}

// Passed reports whether no test failed, every threshold held and no
// run-local error occurred.
func (r *Report) Passed() bool {
	if r.Tally.Count(string(core.OutcomeFailed)) > 0 || len(r.Errors) > 0 {
		return false
	}
	return r.Thresholds == nil || r.Thresholds.Passed
}

// FormatText writes the summaries, threshold results and run errors.
func FormatText(w io.Writer, r *Report) {
	for _, sec := range r.Summaries {
		for _, line := range sec.Lines {
			fmt.Fprintln(w, line)
		}
	}
	if r.Thresholds != nil && len(r.Thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		r.Thresholds.FormatText(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Errors:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

type jsonResult struct {
	ID       string        `json:"id"`
	Outcome  core.Outcome  `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Statuses []core.Status `json:"statuses,omitempty"`
}

// FormatJSON writes the whole report as indented JSON.
func FormatJSON(w io.Writer, r *Report) {
	output := struct {
		RunID      string                    `json:"runId"`
		Passed     bool                      `json:"passed"`
		Tally      progress.Tally            `json:"tally"`
		Tests      []jsonResult              `json:"tests"`
		Records    int                       `json:"records"`
		Summaries  []summary.Section         `json:"summaries"`
		Thresholds *summary.ThresholdResults `json:"thresholds,omitempty"`
		Errors     []string                  `json:"errors,omitempty"`
	}{
		RunID:      r.RunID,
		Passed:     r.Passed(),
		Tally:      r.Tally,
		Tests:      make([]jsonResult, 0, len(r.Results)),
		Records:    r.Records,
		Summaries:  r.Summaries,
		Thresholds: r.Thresholds,
		Errors:     r.Errors,
	}
	for _, res := range r.Results {
		jr := jsonResult{ID: res.ID, Outcome: res.Outcome, Statuses: res.Statuses}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		output.Tests = append(output.Tests, jr)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}
