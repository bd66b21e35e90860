package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBusFrozen is returned when appending to a bus after the test phase ended.
	ErrBusFrozen = errors.New("metrics bus is frozen")
	// ErrProbeState is returned for an invalid probe lifecycle transition.
	ErrProbeState = errors.New("invalid probe state transition")
	// ErrInvalidBroadcast is returned when a broadcast value cannot name its channel.
	ErrInvalidBroadcast = errors.New("invalid broadcast")
	// ErrUnknownSelector is returned when a selector names no probe or summary.
	ErrUnknownSelector = errors.New("unknown selector")
)

// UnresolvedReferenceError reports a location reference the instrumentation
// layer cannot resolve.
type UnresolvedReferenceError struct {
	Ref    string
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q: %s", e.Ref, e.Reason)
}

// KeyNotPresentError reports a projection on a variable the event does not carry.
type KeyNotPresentError struct {
	Key       string
	Location  string
	Available []string
}

func (e *KeyNotPresentError) Error() string {
	return fmt.Sprintf("key %q not present in event from %s (have: %s)",
		e.Key, e.Location, strings.Join(e.Available, ", "))
}

// AssertionFailure is raised by the fail operator inside the instrumented call.
type AssertionFailure struct {
	Message string
	Value   any
}

func (e *AssertionFailure) Error() string {
	return e.Message
}
