// Package reporter provides the per-test sinks probes feed: broadcasts and
// metrics go to the metrics bus tagged with the test's location; statuses
// also annotate the test's result.
package reporter

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"probekit/internal/bus"
	"probekit/internal/core"
)

// StatusChannel is the bus channel status records are appended to.
const StatusChannel = "status"

// DefaultStatusColor is used when a status does not name a color.
const DefaultStatusColor = "cyan"

// Reporter is handed to a probe for the duration of one test.
type Reporter struct {
	name   string
	test   core.TestContext
	result *core.TestResult
	bus    *bus.Bus
}

// New creates a reporter for the probe name running in test. Statuses are
// recorded on result; records are appended to b.
func New(name string, test core.TestContext, result *core.TestResult, b *bus.Bus) *Reporter {
	return &Reporter{name: name, test: test, result: result, bus: b}
}

// Name returns the probe name the reporter was created for.
func (r *Reporter) Name() string {
	return r.name
}

// Test returns the test the reporter is bound to.
func (r *Reporter) Test() core.TestContext {
	return r.test
}

// Broadcast returns a sink that appends every value it receives to channel.
// With an empty channel, each value must be a single-entry map (or event)
// whose key names the channel.
func (r *Reporter) Broadcast(channel string) core.Sink {
	return core.SinkFunc(func(v any) error {
		return r.append(channel, core.KindBroadcast, v)
	})
}

// Emit broadcasts one value immediately.
func (r *Reporter) Emit(channel string, value any) error {
	return r.append(channel, core.KindBroadcast, value)
}

// Metric is Broadcast with display hints for the summary that renders channel.
func (r *Reporter) Metric(channel string, opts ...FormatOption) core.Sink {
	var f core.Format
	for _, opt := range opts {
		opt(&f)
	}
	r.bus.SetFormat(channel, f)
	return core.SinkFunc(func(v any) error {
		return r.append(channel, core.KindMetric, v)
	})
}

// Status returns a sink that, on the first truthy value (or the first value
// accepted by WithCondition), marks the test with label and appends a status
// record. Later values are ignored.
func (r *Reporter) Status(label string, opts ...StatusOption) core.Sink {
	cfg := statusConfig{
		status: core.Status{
			Label:    label,
			Color:    DefaultStatusColor,
			Category: strings.ToLower(label),
		},
		accept: core.Truthy,
	}
	if first, _ := utf8.DecodeRuneInString(label); first != utf8.RuneError {
		cfg.status.Short = string(first)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	done := false
	return core.SinkFunc(func(v any) error {
		if done || !cfg.accept(v) {
			return nil
		}
		done = true
		r.result.AddStatus(cfg.status)
		_, err := r.bus.Append(core.Record{
			Channel:  StatusChannel,
			Kind:     core.KindStatus,
			Location: r.test.ID(),
			Fields: core.Pairs(
				"label", cfg.status.Label,
				"short", cfg.status.Short,
				"color", cfg.status.Color,
				"category", cfg.status.Category,
			),
		})
		return err
	})
}

func (r *Reporter) append(channel string, kind core.Kind, v any) error {
	if channel == "" {
		ch, value, err := channelFromValue(v)
		if err != nil {
			return err
		}
		channel = ch
		v = value
	}
	_, err := r.bus.Append(core.Record{
		Channel:  channel,
		Kind:     kind,
		Location: r.test.ID(),
		Fields:   fieldsOf(v),
	})
	return err
}

// channelFromValue splits a single-entry mapping into channel and value.
func channelFromValue(v any) (string, any, error) {
	var fields []core.Field
	switch x := v.(type) {
	case map[string]any:
		fields = fieldsOf(x)
	case core.Event:
		fields = x.Fields()
	case []core.Field:
		fields = x
	case core.Field:
		fields = []core.Field{x}
	}
	if len(fields) != 1 {
		return "", nil, fmt.Errorf("%w: without a channel the value must hold exactly one entry, got %T", core.ErrInvalidBroadcast, v)
	}
	return fields[0].Name, fields[0].Value, nil
}

// fieldsOf derives record fields from a broadcast value. Map keys are sorted
// so records are deterministic.
func fieldsOf(v any) []core.Field {
	switch x := v.(type) {
	case core.Event:
		return x.Fields()
	case []core.Field:
		return append([]core.Field(nil), x...)
	case core.Field:
		return []core.Field{x}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]core.Field, len(keys))
		for i, k := range keys {
			fields[i] = core.Field{Name: k, Value: x[k]}
		}
		return fields
	}
	return []core.Field{{Name: core.ValueField, Value: v}}
}
