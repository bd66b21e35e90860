// Package template renders ${var} placeholders in probe messages and resolves
// JSON paths inside observed values.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// varPattern matches ${var}, ${var|%verb} and ${env:VAR} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars resolves placeholder names. core.Event and core.Record satisfy it.
type Vars interface {
	Get(name string) (any, bool)
}

// Map is a map-backed Vars.
type Map map[string]any

func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Chain looks names up in each Vars in turn.
type Chain []Vars

func (c Chain) Get(name string) (any, bool) {
	for _, vars := range c {
		if vars == nil {
			continue
		}
		if v, ok := vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Substitute replaces placeholders in text. ${name|%.2f} formats the value
// with the given fmt verb; ${env:NAME} reads the environment.
// Returns all errors joined if several names are missing.
func Substitute(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if envName, ok := strings.CutPrefix(name, "env:"); ok {
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		verb := "%v"
		if n, v, ok := strings.Cut(name, "|"); ok {
			name, verb = strings.TrimSpace(n), strings.TrimSpace(v)
		}

		if vars != nil {
			if val, ok := vars.Get(name); ok {
				return fmt.Sprintf(verb, val)
			}
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}
