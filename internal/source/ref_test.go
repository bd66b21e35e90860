package source

import (
	"errors"
	"reflect"
	"testing"

	"probekit/internal/core"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw      string
		location string
		captures []string
		focus    string
	}{
		{"app/handler", "app/handler", nil, ""},
		{"app/handler > elapsed", "app/handler", nil, "elapsed"},
		{"app/handler>elapsed", "app/handler", nil, "elapsed"},
		{"app/handler(req, user) > elapsed", "app/handler", []string{"req", "user"}, "elapsed"},
		{"pkg.mod/fn()", "pkg.mod/fn", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			ref, err := ParseRef(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.Location != tc.location || ref.Focus != tc.focus || !reflect.DeepEqual(ref.Captures, tc.captures) {
				t.Errorf("ParseRef(%q) = %+v", tc.raw, ref)
			}
		})
	}
}

func TestParseRef_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "a > b > c", "app/h > 1x", "app/h(a", "app h", "app/h(a-b)"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseRef(raw)
			var unresolved *core.UnresolvedReferenceError
			if !errors.As(err, &unresolved) {
				t.Errorf("expected UnresolvedReferenceError for %q, got %v", raw, err)
			}
		})
	}
}

func TestIsReference(t *testing.T) {
	if IsReference("latency") {
		t.Error("plain name should not be a reference")
	}
	for _, sel := range []string{"app/handler", "pkg.fn", "f > x"} {
		if !IsReference(sel) {
			t.Errorf("%q should be a reference", sel)
		}
	}
}
