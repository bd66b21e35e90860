package source

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"probekit/internal/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRecording_CSV(t *testing.T) {
	path := writeFile(t, "run.csv", `test,location,elapsed,path
t.py::a,app/handler,12,/users
t.py::a,app/handler,3.5,
t.py::b,app/handler,7,/items
`)

	rec, err := LoadRecording(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Tests(); !reflect.DeepEqual(got, []string{"t.py::a", "t.py::b"}) {
		t.Errorf("unexpected tests %v", got)
	}
	events := rec.Events("t.py::a")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if v, _ := events[0].Get("elapsed"); v != int64(12) {
		t.Errorf("expected int64 12, got %#v", v)
	}
	if v, _ := events[1].Get("elapsed"); v != 3.5 {
		t.Errorf("expected 3.5, got %#v", v)
	}
	if events[1].Has("path") {
		t.Error("empty cell should leave the variable unbound")
	}
}

func TestLoadRecording_JSONPreservesFieldOrder(t *testing.T) {
	path := writeFile(t, "run.json", `[
  {"test": "t.py::a", "location": "app/handler", "fields": {"z": 1, "a": 2.5, "m": "x"}},
  {"test": "t.py::b", "location": "app/other", "fields": {}}
]`)

	rec, err := LoadRecording(filepath.Base(path), filepath.Dir(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := rec.Events("t.py::a")[0]
	if got := e.Keys(); !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
		t.Errorf("expected document order, got %v", got)
	}
	if v, _ := e.Get("z"); v != int64(1) {
		t.Errorf("expected int64 1, got %#v", v)
	}
	if rec.Len() != 2 {
		t.Errorf("expected 2 events, got %d", rec.Len())
	}
}

func TestLoadRecording_Errors(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"format", "run.txt", "x", "unsupported"},
		{"header", "run.csv", "a,b\nx,y\n", "header"},
		{"csv empty", "run.csv", "test,location\n", "header row"},
		{"json shape", "run.json", `{"a": 1}`, "array"},
		{"json missing", "run.json", `[{"test": "t"}]`, "required"},
		{"json empty", "run.json", `[]`, "empty"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRecording(writeFile(t, tc.file, tc.content), "")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRecording_ReplayAndDeclare(t *testing.T) {
	path := writeFile(t, "run.csv", "test,location,x\nt::a,app/f,1\nt::a,app/f,2\nt::b,app/f,3\n")
	rec, err := LoadRecording(path, "")
	if err != nil {
		t.Fatal(err)
	}
	h := NewHub()
	rec.Declare(h)

	w, err := NewAdapter(h).Open("app/f > x")
	if err != nil {
		t.Fatalf("declared reference should resolve: %v", err)
	}
	var seen []any
	w.Stream().Subscribe(func(e core.Event) {
		v, _ := e.Get("x")
		seen = append(seen, v)
	})
	w.Start()
	if err := rec.Replay(h, "t::a"); err != nil {
		t.Fatal(err)
	}
	w.Close()

	if !reflect.DeepEqual(seen, []any{int64(1), int64(2)}) {
		t.Errorf("expected only t::a events, got %v", seen)
	}
}

func TestRecording_ReplayStopsAtFirstError(t *testing.T) {
	rec := NewRecording()
	rec.Add("t::a", core.NewEvent("app/f", core.Pairs("x", 1)...))
	rec.Add("t::a", core.NewEvent("app/f", core.Pairs("x", 2)...))
	h := NewHub()
	rec.Declare(h)

	w, _ := NewAdapter(h).Open("app/f > x")
	n := 0
	w.Stream().SubscribeErr(func(core.Event) error {
		n++
		return errors.New("stop")
	})
	w.Start()
	defer w.Close()

	if err := rec.Replay(h, "t::a"); err == nil {
		t.Fatal("expected error")
	}
	if n != 1 {
		t.Errorf("replay should stop at the first error, delivered %d", n)
	}
}
