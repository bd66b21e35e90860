// Package bus is the process-wide metrics bus: an append-only, ordered log of
// every record reporters emit during a run.
//
// The bus has exactly one writer at a time. Tests run sequentially and only
// reporter sinks of the currently executing test append, so the log needs no
// lock. Once the test phase ends the bus is frozen and only the resulting
// View can be queried; nothing can read a bus that is still being written.
package bus

import (
	"fmt"

	"probekit/internal/core"
	"probekit/internal/stream"
)

// Bus collects records from all tests in emission order.
type Bus struct {
	records []core.Record
	formats map[string]core.Format
	live    *stream.Subject[core.Record]
	clock   core.Clock
	seq     uint64
	view    *View
}

// New creates an open bus. A nil clock uses the system clock.
func New(clock core.Clock) *Bus {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Bus{
		records: make([]core.Record, 0),
		formats: make(map[string]core.Format),
		live:    stream.NewSubject[core.Record](),
		clock:   clock,
	}
}

// Append adds rec to the log, stamping its sequence number and time, and
// pushes it to live subscribers. Errors raised by live subscribers are
// returned after the record is stored.
func (b *Bus) Append(rec core.Record) (core.Record, error) {
	if b.view != nil {
		return core.Record{}, fmt.Errorf("appending to %q: %w", rec.Channel, core.ErrBusFrozen)
	}
	b.seq++
	rec.Seq = b.seq
	if rec.Time.IsZero() {
		rec.Time = b.clock.Now()
	}
	b.records = append(b.records, rec)
	if err := b.live.Push(rec); err != nil {
		return rec, fmt.Errorf("live subscriber on %q: %w", rec.Channel, err)
	}
	return rec, nil
}

// SetFormat attaches display hints to a channel. The last call wins.
func (b *Bus) SetFormat(channel string, f core.Format) {
	b.formats[channel] = f
}

// Live streams records as they are appended. It completes when the bus freezes.
func (b *Bus) Live() stream.Stream[core.Record] {
	return b.live.Stream()
}

// Len returns the number of records appended so far.
func (b *Bus) Len() int {
	return len(b.records)
}

// Frozen reports whether the test phase has ended.
func (b *Bus) Frozen() bool {
	return b.view != nil
}

// Freeze ends the test phase: live streams complete and the read-only View
// is returned. The View is returned even when a live subscriber fails at
// completion; the error is returned alongside it. Later calls return the
// same View.
func (b *Bus) Freeze() (*View, error) {
	if b.view != nil {
		return b.view, nil
	}
	formats := make(map[string]core.Format, len(b.formats))
	for ch, f := range b.formats {
		formats[ch] = f
	}
	b.view = &View{records: b.records, formats: formats}
	return b.view, b.live.Complete()
}
