package core

// Sink consumes values at the end of a pipeline.
type Sink interface {
	Accept(value any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(value any) error

func (f SinkFunc) Accept(value any) error { return f(value) }

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(any) error { return nil })
