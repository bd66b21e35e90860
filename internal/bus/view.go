package bus

import (
	"probekit/internal/core"
	"probekit/internal/stream"
)

// View is an immutable, ordered selection of bus records.
type View struct {
	records []core.Record
	formats map[string]core.Format
}

// NewView builds a view over records, mainly for renderers under test.
func NewView(records []core.Record, formats map[string]core.Format) *View {
	if formats == nil {
		formats = make(map[string]core.Format)
	}
	return &View{records: append([]core.Record(nil), records...), formats: formats}
}

// Where selects the records of one channel.
func (v *View) Where(channel string) *View {
	return v.Filter(func(r core.Record) bool { return r.Channel == channel })
}

// Filter selects records matching pred, keeping order.
func (v *View) Filter(pred func(core.Record) bool) *View {
	out := make([]core.Record, 0)
	for _, r := range v.records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return &View{records: out, formats: v.formats}
}

// Top returns the n records with the greatest numeric value of key. Ties keep
// emission order; records without a numeric key are skipped. Fewer than n
// matching records are all returned.
func (v *View) Top(n int, key string) []core.Record {
	keyed := v.Filter(func(r core.Record) bool {
		_, ok := r.Number(key)
		return ok
	}).records
	return stream.TopN(keyed, n, func(a, b core.Record) bool {
		x, _ := a.Number(key)
		y, _ := b.Number(key)
		return x < y
	})
}

// Bottom is Top with the ordering reversed.
func (v *View) Bottom(n int, key string) []core.Record {
	keyed := v.Filter(func(r core.Record) bool {
		_, ok := r.Number(key)
		return ok
	}).records
	return stream.TopN(keyed, n, func(a, b core.Record) bool {
		x, _ := a.Number(key)
		y, _ := b.Number(key)
		return x > y
	})
}

// Accum returns a copy of the selected records.
func (v *View) Accum() []core.Record {
	out := make([]core.Record, len(v.records))
	copy(out, v.records)
	return out
}

// Len returns the number of selected records.
func (v *View) Len() int {
	return len(v.records)
}

// Stream replays the selected records through the operator algebra.
func (v *View) Stream() stream.Stream[core.Record] {
	return stream.Of(v.records...)
}

// Channels returns channel names in first-seen order.
func (v *View) Channels() []string {
	return distinct(v.records, func(r core.Record) string { return r.Channel })
}

// Locations returns test locations in first-seen order.
func (v *View) Locations() []string {
	return distinct(v.records, func(r core.Record) string { return r.Location })
}

// Format returns the display hints of a channel.
func (v *View) Format(channel string) core.Format {
	return v.formats[channel]
}

// Values returns the numeric values of field, in order, skipping records
// where it is absent or not numeric.
func (v *View) Values(field string) []float64 {
	out := make([]float64, 0, len(v.records))
	for _, r := range v.records {
		if n, ok := r.Number(field); ok {
			out = append(out, n)
		}
	}
	return out
}

func distinct(records []core.Record, key func(core.Record) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
