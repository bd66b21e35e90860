package progress

import (
	"fmt"
	"strings"

	"probekit/internal/core"
)

// CategoryCount is the number of tests in one tally category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Tally counts tests per outcome category: failed, passed, then custom
// status categories in first-seen order. Empty categories are omitted.
type Tally []CategoryCount

// NewTally counts results by their category.
func NewTally(results []*core.TestResult) Tally {
	counts := make(map[string]int)
	custom := make([]string, 0)
	for _, r := range results {
		c := r.Category()
		if counts[c] == 0 && c != string(core.OutcomeFailed) && c != string(core.OutcomePassed) {
			custom = append(custom, c)
		}
		counts[c]++
	}

	order := append([]string{string(core.OutcomeFailed), string(core.OutcomePassed)}, custom...)
	t := make(Tally, 0, len(order))
	for _, c := range order {
		if counts[c] > 0 {
			t = append(t, CategoryCount{Category: c, Count: counts[c]})
		}
	}
	return t
}

// Count returns the count of category, 0 if absent.
func (t Tally) Count(category string) int {
	for _, c := range t {
		if c.Category == category {
			return c.Count
		}
	}
	return 0
}

func (t Tally) String() string {
	if len(t) == 0 {
		return "no tests ran"
	}
	parts := make([]string, len(t))
	for i, c := range t {
		parts[i] = fmt.Sprintf("%d %s", c.Count, c.Category)
	}
	return strings.Join(parts, ", ")
}
