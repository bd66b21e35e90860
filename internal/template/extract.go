package template

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Lookup resolves one path in a JSON document. Paths may use JSONPath syntax
// ($.foo.bar, $.items[0]) or plain gjson syntax. A malformed path finds nothing.
func Lookup(body []byte, path string) (any, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	p, err := gjsonPath(path)
	if err != nil {
		return nil, false
	}
	value := gjson.GetBytes(body, p)
	if !value.Exists() {
		return nil, false
	}
	return value.Value(), true
}

// ValidatePath reports whether path can be resolved by Lookup.
func ValidatePath(path string) error {
	_, err := gjsonPath(path)
	return err
}

// gjsonPath rewrites JSONPath into gjson syntax: the "$" root is dropped,
// [n] becomes .n and [*] becomes .#. Brackets must be closed and non-empty.
func gjsonPath(path string) (string, error) {
	rest := strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")

	var b strings.Builder
	for {
		before, after, open := strings.Cut(rest, "[")
		b.WriteString(before)
		if !open {
			break
		}
		index, tail, closed := strings.Cut(after, "]")
		switch {
		case !closed:
			return "", fmt.Errorf("path %q: unterminated '['", path)
		case index == "":
			return "", fmt.Errorf("path %q: empty index", path)
		case index == "*":
			index = "#"
		}
		b.WriteByte('.')
		b.WriteString(index)
		rest = tail
	}
	return strings.TrimPrefix(b.String(), "."), nil
}
