package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"probekit/internal/core"
	"probekit/internal/probe"
	"probekit/internal/reporter"
	"probekit/internal/stream"
	"probekit/internal/summary"
	"probekit/internal/template"
)

// Registries builds the declared probes and summaries. clock drives
// throttled probes.
func (c *Config) Registries(clock core.Clock) (*probe.Registry, *summary.Registry, error) {
	probes := probe.NewRegistry()
	for _, pc := range c.Probes {
		if err := probes.Register(BuildProbe(pc, clock)); err != nil {
			return nil, nil, err
		}
	}
	summaries := summary.NewRegistry()
	for _, sc := range c.Summaries {
		if err := summaries.Register(BuildSummary(sc)); err != nil {
			return nil, nil, err
		}
	}
	return probes, summaries, nil
}

// BuildProbe turns a declaration into a probe definition.
func BuildProbe(pc ProbeConfig, clock core.Clock) probe.Definition {
	return probe.Definition{
		Name:        pc.Name,
		Scope:       pc.Scope,
		Description: pc.Description,
		Setup: func(p *probe.Probe, rep *reporter.Reporter) error {
			events, err := p.Source(pc.Source)
			if err != nil {
				return err
			}

			values := project(events, pc)
			if pc.Where != nil {
				values = values.Filter(pc.Where.Match)
			}
			if pc.Throttle != nil {
				burst := pc.Throttle.Burst
				if burst <= 0 {
					burst = 1
				}
				values = stream.Throttle(values, pc.Throttle.Rate, burst, clock)
			}
			if pc.Take > 0 {
				values = values.Take(pc.Take)
			}
			if pc.Fail != nil {
				values.Fail(pc.Fail.Unless.Match, failMessage(pc.Fail.Message))
			}

			if sink := emitter(pc, rep); sink != nil {
				reduce(values, pc).Pipe(sink)
			}
			return nil
		},
	}
}

func project(events stream.Stream[core.Event], pc ProbeConfig) stream.Stream[any] {
	switch {
	case pc.Select != "":
		return stream.GetItem(events, pc.Select)
	case len(pc.Extract) > 0:
		return stream.TryMap(events, func(e core.Event) (any, error) {
			return extract(e, pc.Extract)
		})
	}
	return stream.Map(events, func(e core.Event) any { return e })
}

// extract resolves every rule against the event encoded as JSON. The first
// rule, by name, whose path matches nothing raises *core.KeyNotPresentError.
func extract(e core.Event, rules map[string]string) (any, error) {
	body, err := json.Marshal(e.Map())
	if err != nil {
		return nil, fmt.Errorf("encoding event from %s: %w", e.Location, err)
	}
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(rules))
	for _, name := range names {
		v, ok := template.Lookup(body, rules[name])
		if !ok {
			return nil, &core.KeyNotPresentError{Key: rules[name], Location: e.Location, Available: e.Keys()}
		}
		out[name] = v
	}
	return out, nil
}

func reduce(values stream.Stream[any], pc ProbeConfig) stream.Stream[any] {
	switch pc.Reduce {
	case "count":
		return stream.Map(stream.Count(values), func(n int) any { return n })
	case "some":
		return stream.Map(stream.Some(values, func(any) bool { return true }), func(b bool) any { return b })
	case "collect":
		return stream.Map(stream.Collect(values), func(vs []any) any { return vs })
	case "top":
		return stream.Map(stream.Top(values, pc.Top, lessNumber), func(vs []any) any { return vs })
	case "sum":
		return stream.Reduce(values, func(acc, v any) any {
			a, _ := core.Number(acc)
			b, _ := core.Number(v)
			return a + b
		}, any(0.0))
	case "min":
		return stream.Reduce1(values, func(a, b any) any {
			if lessNumber(b, a) {
				return b
			}
			return a
		})
	case "max":
		return stream.Reduce1(values, func(a, b any) any {
			if lessNumber(a, b) {
				return b
			}
			return a
		})
	case "avg":
		type acc struct {
			sum float64
			n   int
		}
		sums := stream.Reduce(values, func(a acc, v any) acc {
			x, _ := core.Number(v)
			return acc{sum: a.sum + x, n: a.n + 1}
		}, acc{})
		return stream.TryMap(sums, func(a acc) (any, error) {
			if a.n == 0 {
				return nil, stream.ErrNoElements
			}
			return a.sum / float64(a.n), nil
		})
	}
	return values
}

func emitter(pc ProbeConfig, rep *reporter.Reporter) core.Sink {
	switch {
	case pc.Broadcast != "":
		return rep.Broadcast(pc.Broadcast)
	case pc.Metric != nil:
		f := pc.Metric.Format
		opts := []reporter.FormatOption{reporter.Unit(f.Unit), reporter.Precision(f.Precision), reporter.Top(f.Top)}
		if f.Ascending {
			opts = append(opts, reporter.Ascending())
		}
		return rep.Metric(pc.Metric.Channel, opts...)
	case pc.Status != nil:
		var opts []reporter.StatusOption
		if pc.Status.Short != "" {
			opts = append(opts, reporter.WithShort(pc.Status.Short))
		}
		if pc.Status.Color != "" {
			opts = append(opts, reporter.WithColor(pc.Status.Color))
		}
		if pc.Status.Category != "" {
			opts = append(opts, reporter.WithCategory(pc.Status.Category))
		}
		if pc.Status.When != nil {
			opts = append(opts, reporter.WithCondition(pc.Status.When.Match))
		}
		return rep.Status(pc.Status.Label, opts...)
	}
	return nil
}

func failMessage(message string) string {
	if message == "" {
		return "unexpected value ${value}"
	}
	return message
}

func lessNumber(a, b any) bool {
	x, _ := core.Number(a)
	y, _ := core.Number(b)
	return x < y
}

// BuildSummary turns a declaration into a summary definition.
func BuildSummary(sc SummaryConfig) summary.Definition {
	var def summary.Definition
	switch sc.Kind {
	case "top":
		def = summary.TopN(sc.Channel, sc.N, sc.Field)
	case "stats":
		def = summary.Stats(sc.Channel, sc.Field)
	default:
		def = summary.Records(sc.Channel)
	}
	if sc.Name != "" {
		def.Name = sc.Name
	}
	def.Scope = sc.Scope
	if sc.Description != "" {
		def.Description = sc.Description
	}
	return def
}
