package reporter

import "probekit/internal/core"

// FormatOption sets a display hint on a metric channel.
type FormatOption func(*core.Format)

// Unit appends a unit suffix to rendered values.
func Unit(unit string) FormatOption {
	return func(f *core.Format) { f.Unit = unit }
}

// Precision renders numeric values with a fixed number of decimals.
func Precision(digits int) FormatOption {
	return func(f *core.Format) { f.Precision = digits }
}

// Top limits the summary to the n greatest values.
func Top(n int) FormatOption {
	return func(f *core.Format) { f.Top = n }
}

// Ascending sorts the summary smallest first.
func Ascending() FormatOption {
	return func(f *core.Format) { f.Ascending = true }
}

type statusConfig struct {
	status core.Status
	accept func(any) bool
}

// StatusOption customizes a status sink.
type StatusOption func(*statusConfig)

// WithShort sets the glyph shown in compact outcome lines.
func WithShort(short string) StatusOption {
	return func(c *statusConfig) { c.status.Short = short }
}

// WithColor sets the outcome line color (a color name such as "yellow").
func WithColor(color string) StatusOption {
	return func(c *statusConfig) { c.status.Color = color }
}

// WithCategory sets the tally bucket; it defaults to the lower-cased label.
func WithCategory(category string) StatusOption {
	return func(c *statusConfig) { c.status.Category = category }
}

// WithCondition replaces truthiness as the trigger.
func WithCondition(accept func(any) bool) StatusOption {
	return func(c *statusConfig) { c.accept = accept }
}
