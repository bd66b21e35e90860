package config

import (
	"fmt"

	"probekit/internal/core"
)

// Match reports whether v satisfies the condition. With Field set, v must be
// an event or a map carrying that field.
func (c Condition) Match(v any) bool {
	if c.Field != "" {
		var ok bool
		switch x := v.(type) {
		case core.Event:
			v, ok = x.Get(c.Field)
		case map[string]any:
			v, ok = x[c.Field]
		}
		if !ok {
			return false
		}
	}

	switch c.Op {
	case "", "truthy":
		return core.Truthy(v)
	case "eq":
		return equal(v, c.Value)
	case "ne":
		return !equal(v, c.Value)
	}

	x, ok1 := core.Number(v)
	y, ok2 := core.Number(c.Value)
	if !ok1 || !ok2 {
		return false
	}
	switch c.Op {
	case "gt":
		return x > y
	case "ge":
		return x >= y
	case "lt":
		return x < y
	case "le":
		return x <= y
	}
	return false
}

func equal(a, b any) bool {
	x, ok1 := core.Number(a)
	y, ok2 := core.Number(b)
	if ok1 && ok2 {
		return x == y
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
