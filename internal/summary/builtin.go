package summary

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"probekit/internal/bus"
	"probekit/internal/core"
)

// Records lists the records of channel, one line per record. The channel's
// format hints set the unit, precision, order and limit.
func Records(channel string) Definition {
	return Definition{
		Name:        channel,
		Description: "list the records of " + channel,
		Channel:     channel,
		After: func(view *bus.View, s *Summary) error {
			f := view.Format(channel)
			records := view.Accum()
			n := len(records)
			if f.Top > 0 {
				n = f.Top
			}
			switch {
			case f.Ascending:
				records = view.Bottom(n, core.ValueField)
			case f.Top > 0:
				records = view.Top(n, core.ValueField)
			}

			s.Title(channel)
			logRecords(s, f, records)
			return nil
		},
	}
}

// TopN lists the n records of channel with the greatest field.
func TopN(channel string, n int, field string) Definition {
	if field == "" {
		field = core.ValueField
	}
	return Definition{
		Name:        "top-" + channel,
		Description: fmt.Sprintf("top %d %s of %s", n, field, channel),
		Channel:     channel,
		After: func(view *bus.View, s *Summary) error {
			s.Title(fmt.Sprintf("Top %d %s (%s)", n, channel, field))
			f := view.Format(channel)
			for _, rec := range view.Top(n, field) {
				v, _ := rec.Get(field)
				s.Log(s.Pad(rec.Location, f.FormatValue(v)))
			}
			return nil
		},
	}
}

// Stats renders a per-location statistics table of field in channel,
// with an overall row.
func Stats(channel, field string) Definition {
	if field == "" {
		field = core.ValueField
	}
	return Definition{
		Name:        "stats-" + channel,
		Description: fmt.Sprintf("statistics of %s in %s", field, channel),
		Channel:     channel,
		After: func(view *bus.View, s *Summary) error {
			s.Title(fmt.Sprintf("Statistics: %s (%s)", channel, field))
			if view.Len() == 0 {
				s.Log("No records")
				return nil
			}
			f := view.Format(channel)

			t := table.NewWriter()
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Location", "Count", "Min", "Avg", "P50", "P95", "Max"})
			for _, loc := range view.Locations() {
				st := view.Filter(func(r core.Record) bool { return r.Location == loc }).Stats(field)
				t.AppendRow(statsRow(loc, st, f))
			}
			t.AppendFooter(statsRow("all", view.Stats(field), f))

			for _, line := range splitLines(t.Render()) {
				s.Log(line)
			}
			return nil
		},
	}
}

func statsRow(label string, st bus.Stats, f core.Format) table.Row {
	if st.Count == 0 {
		return table.Row{label, 0, "-", "-", "-", "-", "-"}
	}
	return table.Row{
		label,
		st.Count,
		f.FormatValue(st.Min),
		f.FormatValue(st.Avg),
		f.FormatValue(st.P50),
		f.FormatValue(st.P95),
		f.FormatValue(st.Max),
	}
}

func logRecords(s *Summary, f core.Format, records []core.Record) {
	for _, rec := range records {
		if v, ok := rec.Value(); ok {
			s.Log(s.Pad(rec.Location, f.FormatValue(v)))
			continue
		}
		s.Log(rec)
	}
}
