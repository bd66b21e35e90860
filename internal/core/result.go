package core

import (
	"path"
	"strings"
)

// TestContext identifies the test a probe is activated for.
type TestContext struct {
	File string
	Name string
}

// ID returns the fully qualified test identifier ("file::name").
func (t TestContext) ID() string {
	return t.File + "::" + t.Name
}

// ModulePath splits the test file into path segments without the extension,
// e.g. "tests/unit/test_x.py" becomes [tests unit test_x].
func (t TestContext) ModulePath() []string {
	p := strings.TrimSuffix(t.File, path.Ext(t.File))
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// ParseTestID is the inverse of TestContext.ID.
func ParseTestID(id string) TestContext {
	file, name, ok := strings.Cut(id, "::")
	if !ok {
		return TestContext{Name: id}
	}
	return TestContext{File: file, Name: name}
}

// Outcome is the final state of a test.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
)

// Status is a custom annotation of a test's outcome line.
type Status struct {
	Label    string `json:"label"`
	Short    string `json:"short"`
	Color    string `json:"color"`
	Category string `json:"category"`
}

// TestResult is the host-tracked result of one test.
// Statuses is the only part mutated by probes, via Reporter.Status.
type TestResult struct {
	Test     TestContext `json:"-"`
	ID       string      `json:"id"`
	Outcome  Outcome     `json:"outcome"`
	Err      error       `json:"-"`
	Statuses []Status    `json:"statuses,omitempty"`
}

// NewTestResult creates a passing result for test.
func NewTestResult(test TestContext) *TestResult {
	return &TestResult{Test: test, ID: test.ID(), Outcome: OutcomePassed}
}

// AddStatus records a status annotation.
func (r *TestResult) AddStatus(s Status) {
	r.Statuses = append(r.Statuses, s)
}

// Fail marks the result failed with err.
func (r *TestResult) Fail(err error) {
	r.Outcome = OutcomeFailed
	r.Err = err
}

// Display returns the status that decorates the outcome line, if any.
// Failures are never decorated; the first recorded status wins otherwise.
func (r *TestResult) Display() (Status, bool) {
	if r.Outcome == OutcomeFailed || len(r.Statuses) == 0 {
		return Status{}, false
	}
	return r.Statuses[0], true
}

// Category returns the tally bucket for this result.
func (r *TestResult) Category() string {
	if s, ok := r.Display(); ok {
		return s.Category
	}
	return string(r.Outcome)
}

// ScopeDepth reports whether scope (a slash-separated package path, "" for
// the root) encloses the test's package, and how many segments deep it is.
func (t TestContext) ScopeDepth(scope string) (int, bool) {
	pkg := t.ModulePath()
	if len(pkg) > 0 {
		pkg = pkg[:len(pkg)-1]
	}
	scope = strings.Trim(scope, "/")
	if scope == "" {
		return 0, true
	}
	segments := strings.Split(scope, "/")
	if len(segments) > len(pkg) {
		return 0, false
	}
	for i, s := range segments {
		if pkg[i] != s {
			return 0, false
		}
	}
	return len(segments), true
}
