package core

import (
	"fmt"
	"time"
)

// LocationField is the field name under which a record's test location is shown.
const LocationField = "location"

// ValueField names the single field of a record broadcast from a scalar.
const ValueField = "value"

// Kind distinguishes the reporter sink that produced a Record.
type Kind int

const (
	KindBroadcast Kind = iota
	KindMetric
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindMetric:
		return "metric"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// MarshalText lets Kind appear by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Record is one entry on the metrics bus.
// Seq is assigned by the bus on append and reflects emission order across tests.
type Record struct {
	Seq      uint64
	Channel  string
	Kind     Kind
	Fields   []Field
	Location string
	Time     time.Time
}

// Get returns the value of a named field.
func (r Record) Get(name string) (any, bool) {
	if name == LocationField {
		return r.Location, true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Value returns the record's payload when it carries exactly one field.
func (r Record) Value() (any, bool) {
	if len(r.Fields) != 1 {
		return nil, false
	}
	return r.Fields[0].Value, true
}

// Number returns the named field as a float64, if it is numeric.
func (r Record) Number(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return Number(v)
}

// Map returns the record's fields plus its location as a map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+1)
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	m[LocationField] = r.Location
	return m
}

func (r Record) String() string {
	return fmt.Sprintf("#%d %s[%s] %v @ %s", r.Seq, r.Channel, r.Kind, r.Fields, r.Location)
}

// Format carries display hints attached to a metric channel.
type Format struct {
	Unit      string `json:"unit,omitempty" yaml:"unit" toml:"unit"`
	Precision int    `json:"precision,omitempty" yaml:"precision" toml:"precision"`
	Top       int    `json:"top,omitempty" yaml:"top" toml:"top"`
	Ascending bool   `json:"ascending,omitempty" yaml:"ascending" toml:"ascending"`
}

// FormatValue renders v with the hint's precision and unit.
func (f Format) FormatValue(v any) string {
	var s string
	if n, ok := Number(v); ok && f.Precision > 0 {
		s = fmt.Sprintf("%.*f", f.Precision, n)
	} else {
		s = fmt.Sprint(v)
	}
	if f.Unit != "" {
		s += f.Unit
	}
	return s
}
