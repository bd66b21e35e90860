package source

import (
	"errors"
	"fmt"

	"probekit/internal/core"
	"probekit/internal/stream"
)

// Adapter turns references into windowed event streams.
type Adapter struct {
	inst Instrumentation
}

// NewAdapter creates an Adapter over inst.
func NewAdapter(inst Instrumentation) *Adapter {
	return &Adapter{inst: inst}
}

// Open parses and resolves raw. Nothing is delivered until the window starts.
// Failures are *core.UnresolvedReferenceError.
func (a *Adapter) Open(raw string) (*Window, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}
	handle, err := a.inst.Resolve(ref)
	if err != nil {
		var unresolved *core.UnresolvedReferenceError
		if errors.As(err, &unresolved) {
			return nil, err
		}
		return nil, &core.UnresolvedReferenceError{Ref: raw, Reason: err.Error()}
	}
	return &Window{
		inst:    a.inst,
		handle:  handle,
		subject: stream.NewSubject[core.Event](),
	}, nil
}

// Window is one test's view of a reference: events flow between Start and
// Close, in the order the instrumentation produced them.
type Window struct {
	inst    Instrumentation
	handle  Handle
	subject *stream.Subject[core.Event]
	detach  func()
	errs    []error
	started bool
	closed  bool
}

// Ref returns the resolved reference.
func (w *Window) Ref() Ref {
	return w.handle.Ref()
}

// Stream returns the window's event stream for wiring operators.
func (w *Window) Stream() stream.Stream[core.Event] {
	return w.subject.Stream()
}

// Start attaches the window to the instrumentation.
func (w *Window) Start() error {
	if w.closed {
		return fmt.Errorf("starting window %s: %w", w.Ref(), core.ErrProbeState)
	}
	if w.started {
		return nil
	}
	w.started = true
	w.detach = w.inst.Attach(w.handle, w.deliver)
	return nil
}

// Close detaches from the instrumentation and then completes the stream, so
// accumulators flush exactly once and no later event can reach them.
// Closing twice is a no-op.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.detach != nil {
		w.detach()
		w.detach = nil
	}
	return w.subject.Complete()
}

func (w *Window) deliver(e core.Event) error {
	err := w.subject.Push(e)
	if err != nil {
		w.errs = append(w.errs, err)
	}
	return err
}

// Err returns the errors pipelines raised while the window was active,
// joined. The producer also received each of them from its own call.
func (w *Window) Err() error {
	return errors.Join(w.errs...)
}

// Active reports whether the window is attached.
func (w *Window) Active() bool {
	return w.started && !w.closed
}
