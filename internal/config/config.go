// Package config handles YAML and TOML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"probekit/internal/core"
	"probekit/internal/source"
	"probekit/internal/summary"
	"probekit/internal/template"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config is the root configuration structure.
type Config struct {
	Recording  string              `yaml:"recording" toml:"recording"`
	Selectors  []string            `yaml:"selectors" toml:"selectors"`
	Tests      map[string][]string `yaml:"tests,omitempty" toml:"tests"`
	Output     string              `yaml:"output" toml:"output"`
	Width      int                 `yaml:"width" toml:"width"`
	Color      *bool               `yaml:"color,omitempty" toml:"color"`
	Probes     []ProbeConfig       `yaml:"probes" toml:"probes"`
	Summaries  []SummaryConfig     `yaml:"summaries" toml:"summaries"`
	Thresholds summary.Thresholds  `yaml:"thresholds,omitempty" toml:"thresholds"`

	dir string
}

// ProbeConfig declares a probe pipeline: a source, optional projection and
// filters, an optional reduction, then at most one emitter.
type ProbeConfig struct {
	Name        string            `yaml:"name" toml:"name"`
	Scope       string            `yaml:"scope" toml:"scope"`
	Description string            `yaml:"description" toml:"description"`
	Source      string            `yaml:"source" toml:"source"`
	Select      string            `yaml:"select" toml:"select"`
	Extract     map[string]string `yaml:"extract,omitempty" toml:"extract"` // JSONPath extraction rules
	Where       *Condition        `yaml:"where,omitempty" toml:"where"`
	Throttle    *ThrottleConfig   `yaml:"throttle,omitempty" toml:"throttle"`
	Take        int               `yaml:"take" toml:"take"`
	Fail        *FailConfig       `yaml:"fail,omitempty" toml:"fail"`
	Reduce      string            `yaml:"reduce" toml:"reduce"`
	Top         int               `yaml:"top" toml:"top"`
	Broadcast   string            `yaml:"broadcast" toml:"broadcast"`
	Metric      *MetricConfig     `yaml:"metric,omitempty" toml:"metric"`
	Status      *StatusConfig     `yaml:"status,omitempty" toml:"status"`
}

// Condition compares a value, or one field of it, against Value.
// Op is one of eq, ne, gt, ge, lt, le, truthy (the default).
type Condition struct {
	Field string `yaml:"field" toml:"field"`
	Op    string `yaml:"op" toml:"op"`
	Value any    `yaml:"value" toml:"value"`
}

// ThrottleConfig drops values above Rate per second, allowing bursts of Burst.
type ThrottleConfig struct {
	Rate  float64 `yaml:"rate" toml:"rate"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// FailConfig fails the test for every value not satisfying Unless.
type FailConfig struct {
	Unless  Condition `yaml:"unless" toml:"unless"`
	Message string    `yaml:"message" toml:"message"`
}

// MetricConfig names a metric channel and its display hints.
type MetricConfig struct {
	Channel     string `yaml:"channel" toml:"channel"`
	core.Format `yaml:",inline"`
}

// StatusConfig declares a status annotation.
type StatusConfig struct {
	Label    string     `yaml:"label" toml:"label"`
	Short    string     `yaml:"short" toml:"short"`
	Color    string     `yaml:"color" toml:"color"`
	Category string     `yaml:"category" toml:"category"`
	When     *Condition `yaml:"when,omitempty" toml:"when"`
}

// SummaryConfig declares a built-in summary. Kind is records, top or stats.
type SummaryConfig struct {
	Name        string `yaml:"name" toml:"name"`
	Scope       string `yaml:"scope" toml:"scope"`
	Description string `yaml:"description" toml:"description"`
	Kind        string `yaml:"kind" toml:"kind"`
	Channel     string `yaml:"channel" toml:"channel"`
	Field       string `yaml:"field" toml:"field"`
	N           int    `yaml:"n" toml:"n"`
}

// LoadConfig reads and parses a configuration file. Files ending in .toml
// are parsed as TOML, anything else as YAML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	return &cfg, nil
}

// Dir returns the directory of the loaded file; relative paths resolve against it.
func (c *Config) Dir() string {
	return c.dir
}

// ColorEnabled returns the configured color setting, or def when unset.
func (c *Config) ColorEnabled(def bool) bool {
	if c.Color == nil {
		return def
	}
	return *c.Color
}

// TestSelectors returns the extra selectors configured for a test id.
func (c *Config) TestSelectors(testID string) []string {
	return c.Tests[testID]
}

var (
	reductions   = map[string]bool{"": true, "count": true, "sum": true, "min": true, "max": true, "avg": true, "some": true, "collect": true, "top": true}
	conditions   = map[string]bool{"": true, "truthy": true, "eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true}
	summaryKinds = map[string]bool{"records": true, "top": true, "stats": true}
)

// Validate checks the whole configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Output != "" && c.Output != OutputText && c.Output != OutputJSON {
		errs = append(errs, fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output))
	}
	if c.Width < 0 {
		errs = append(errs, fmt.Errorf("width must not be negative"))
	}

	seen := make(map[string]bool)
	for i, p := range c.Probes {
		key := p.Scope + "\x00" + p.Name
		if p.Name != "" && seen[key] {
			errs = append(errs, fmt.Errorf("probe %q declared twice in scope %q", p.Name, p.Scope))
		}
		seen[key] = true
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Errorf("probes[%d]: %w", i, err))
		}
	}

	seen = make(map[string]bool)
	for i, s := range c.Summaries {
		key := s.Scope + "\x00" + s.Name
		if s.Name != "" && seen[key] {
			errs = append(errs, fmt.Errorf("summary %q declared twice in scope %q", s.Name, s.Scope))
		}
		seen[key] = true
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("summaries[%d]: %w", i, err))
		}
	}

	for channel, bound := range c.Thresholds {
		for _, limits := range []map[string]float64{bound.Below, bound.Above} {
			for stat := range limits {
				if !summary.ValidStat(stat) {
					errs = append(errs, fmt.Errorf("thresholds.%s: unknown statistic %q", channel, stat))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (p *ProbeConfig) validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if _, err := source.ParseRef(p.Source); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	if p.Select != "" && len(p.Extract) > 0 {
		errs = append(errs, fmt.Errorf("select and extract are mutually exclusive"))
	}
	names := make([]string, 0, len(p.Extract))
	for name := range p.Extract {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := template.ValidatePath(p.Extract[name]); err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", name, err))
		}
	}
	if !reductions[p.Reduce] {
		errs = append(errs, fmt.Errorf("unknown reduce %q", p.Reduce))
	}
	if p.Reduce == "top" && p.Top <= 0 {
		errs = append(errs, fmt.Errorf("reduce top requires top > 0"))
	}
	if p.Throttle != nil && p.Throttle.Rate <= 0 {
		errs = append(errs, fmt.Errorf("throttle rate must be positive"))
	}
	if p.Take < 0 {
		errs = append(errs, fmt.Errorf("take must not be negative"))
	}
	for _, cond := range []*Condition{p.Where, p.failCondition(), p.statusCondition()} {
		if cond != nil && !conditions[cond.Op] {
			errs = append(errs, fmt.Errorf("unknown condition op %q", cond.Op))
		}
	}

	emitters := 0
	if p.Broadcast != "" {
		emitters++
	}
	if p.Metric != nil {
		emitters++
		if p.Metric.Channel == "" {
			errs = append(errs, fmt.Errorf("metric channel is required"))
		}
	}
	if p.Status != nil {
		emitters++
		if p.Status.Label == "" {
			errs = append(errs, fmt.Errorf("status label is required"))
		}
	}
	switch {
	case emitters > 1:
		errs = append(errs, fmt.Errorf("declare only one of broadcast, metric or status"))
	case emitters == 0 && p.Fail == nil:
		errs = append(errs, fmt.Errorf("declare one of broadcast, metric, status or fail"))
	}
	return errors.Join(errs...)
}

func (p *ProbeConfig) failCondition() *Condition {
	if p.Fail == nil {
		return nil
	}
	return &p.Fail.Unless
}

func (p *ProbeConfig) statusCondition() *Condition {
	if p.Status == nil {
		return nil
	}
	return p.Status.When
}

func (s *SummaryConfig) validate() error {
	var errs []error
	if s.Channel == "" {
		errs = append(errs, fmt.Errorf("channel is required"))
	}
	if !summaryKinds[s.Kind] {
		errs = append(errs, fmt.Errorf("unknown kind %q (want records, top or stats)", s.Kind))
	}
	if s.Kind == "top" && s.N <= 0 {
		errs = append(errs, fmt.Errorf("top summary requires n > 0"))
	}
	return errors.Join(errs...)
}
