package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"probekit/internal/core"
)

// Recording is a captured run: events grouped by test, in first-seen test order.
// It lets a run be replayed through probes without the instrumented program.
type Recording struct {
	tests  []string
	events map[string][]core.Event
}

// NewRecording creates an empty recording.
func NewRecording() *Recording {
	return &Recording{events: make(map[string][]core.Event)}
}

// Add appends an event observed during test.
func (r *Recording) Add(test string, event core.Event) {
	if _, ok := r.events[test]; !ok {
		r.tests = append(r.tests, test)
	}
	r.events[test] = append(r.events[test], event)
}

// Tests returns test identifiers in first-seen order.
func (r *Recording) Tests() []string {
	return append([]string(nil), r.tests...)
}

// Events returns the events recorded for test.
func (r *Recording) Events(test string) []core.Event {
	return r.events[test]
}

// Len returns the total number of events.
func (r *Recording) Len() int {
	n := 0
	for _, evs := range r.events {
		n += len(evs)
	}
	return n
}

// Declare makes every recorded location and variable resolvable on h.
func (r *Recording) Declare(h *Hub) {
	for _, test := range r.tests {
		for _, e := range r.events[test] {
			h.Declare(e.Location, e.Keys()...)
		}
	}
}

// Replay emits test's events into h in order. Like instrumented code, it
// stops at the first error a probe raises.
func (r *Recording) Replay(h *Hub, test string) error {
	for _, e := range r.events[test] {
		if err := h.Emit(e.Location, e.Fields()...); err != nil {
			return err
		}
	}
	return nil
}

// LoadRecording loads a recording file (CSV or JSON). Relative paths are
// resolved against baseDir.
func LoadRecording(path, baseDir string) (*Recording, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	var rec *Recording
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rec, err = loadCSV(path)
	case ".json":
		rec, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported recording format %q (use .csv or .json)", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if rec.Len() == 0 {
		return nil, fmt.Errorf("recording %s is empty", path)
	}
	return rec, nil
}

// loadCSV reads a header row "test,location,<vars...>" followed by one row
// per event. Empty cells leave the variable unbound.
func loadCSV(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have a header row and at least one event")
	}

	headers := records[0]
	if len(headers) < 2 || headers[0] != "test" || headers[1] != "location" {
		return nil, fmt.Errorf("CSV header must start with test,location")
	}

	rec := NewRecording()
	for line, row := range records[1:] {
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			return nil, fmt.Errorf("row %d: test and location are required", line+2)
		}
		var fields []core.Field
		for i := 2; i < len(headers) && i < len(row); i++ {
			if row[i] == "" {
				continue
			}
			fields = append(fields, core.Field{Name: headers[i], Value: parseCell(row[i])})
		}
		rec.Add(row[0], core.NewEvent(row[1], fields...))
	}
	return rec, nil
}

func parseCell(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// loadJSON reads an array of {"test": ..., "location": ..., "fields": {...}}.
// Field order follows the document.
func loadJSON(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("JSON must be an array of events")
	}

	rec := NewRecording()
	var loadErr error
	doc.ForEach(func(idx, item gjson.Result) bool {
		test, loc := item.Get("test").String(), item.Get("location").String()
		if test == "" || loc == "" {
			loadErr = fmt.Errorf("event %d: test and location are required", idx.Int())
			return false
		}
		var fields []core.Field
		item.Get("fields").ForEach(func(key, value gjson.Result) bool {
			fields = append(fields, core.Field{Name: key.String(), Value: jsonValue(value)})
			return true
		})
		rec.Add(test, core.NewEvent(loc, fields...))
		return true
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return rec, nil
}

// jsonValue keeps integral numbers as int64 so they print without a decimal point.
func jsonValue(v gjson.Result) any {
	if v.Type == gjson.Number && !strings.ContainsAny(v.Raw, ".eE") {
		return v.Int()
	}
	return v.Value()
}
