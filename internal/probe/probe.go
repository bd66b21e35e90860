// Package probe binds user-defined pipelines to a single test's lifecycle.
//
// A Probe moves CREATED -> ACTIVE -> CLOSED. Its definition wires operators
// onto one or more sources while CREATED; Open attaches the sources for the
// test window; Close detaches them and completes the streams, which is when
// accumulators such as Count and Some emit their final value.
package probe

import (
	"errors"
	"fmt"

	"probekit/internal/core"
	"probekit/internal/reporter"
	"probekit/internal/source"
	"probekit/internal/stream"
)

// State is a probe's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SetupFunc wires a probe's pipeline. It is called once per test with the
// probe still CREATED.
type SetupFunc func(p *Probe, rep *reporter.Reporter) error

// Definition is a named, reusable probe.
type Definition struct {
	Name        string
	Scope       string // slash-separated package path the definition applies to; "" for all
	Description string
	Setup       SetupFunc
}

// Probe is one activation of a Definition for one test.
type Probe struct {
	def      Definition
	adapter  *source.Adapter
	reporter *reporter.Reporter
	windows  []*source.Window
	cleanups []func() error
	state    State
}

// New creates a probe in the CREATED state without running its setup.
func New(def Definition, adapter *source.Adapter, rep *reporter.Reporter) *Probe {
	return &Probe{def: def, adapter: adapter, reporter: rep}
}

// Activate creates a probe and runs the definition's setup. If setup fails
// the probe is closed before returning, releasing any sources it opened.
func Activate(def Definition, adapter *source.Adapter, rep *reporter.Reporter) (*Probe, error) {
	p := New(def, adapter, rep)
	if def.Setup == nil {
		return p, nil
	}
	if err := def.Setup(p, rep); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("setting up probe %q: %w", def.Name, err)
	}
	return p, nil
}

// Name returns the definition name.
func (p *Probe) Name() string {
	return p.def.Name
}

// State returns the current lifecycle state.
func (p *Probe) State() State {
	return p.state
}

// Reporter returns the reporter the probe was activated with.
func (p *Probe) Reporter() *reporter.Reporter {
	return p.reporter
}

// Source opens a window on the location reference raw. It may only be
// called while CREATED. Unresolvable references fail with
// *core.UnresolvedReferenceError.
func (p *Probe) Source(raw string) (stream.Stream[core.Event], error) {
	if p.state != StateCreated {
		return stream.Stream[core.Event]{}, fmt.Errorf("opening %q on %s probe %q: %w", raw, p.state, p.def.Name, core.ErrProbeState)
	}
	w, err := p.adapter.Open(raw)
	if err != nil {
		return stream.Stream[core.Event]{}, err
	}
	p.windows = append(p.windows, w)
	return w.Stream(), nil
}

// Defer registers fn to run when the probe closes, after its sources have
// completed. Deferred functions run in reverse order.
func (p *Probe) Defer(fn func() error) {
	p.cleanups = append(p.cleanups, fn)
}

// Open transitions CREATED -> ACTIVE and starts every source.
func (p *Probe) Open() error {
	if p.state != StateCreated {
		return fmt.Errorf("opening %s probe %q: %w", p.state, p.def.Name, core.ErrProbeState)
	}
	p.state = StateActive
	for _, w := range p.windows {
		if err := w.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Close transitions to CLOSED from any state. Every source is detached and
// completed even if an earlier one fails. The returned error joins the
// failures raised by pipelines during the window, at completion, and by
// deferred functions. Closing twice is a no-op.
func (p *Probe) Close() error {
	if p.state == StateClosed {
		return nil
	}
	p.state = StateClosed

	var errs []error
	for _, w := range p.windows {
		if err := w.Err(); err != nil {
			errs = append(errs, err)
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(p.cleanups) - 1; i >= 0; i-- {
		if err := p.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
