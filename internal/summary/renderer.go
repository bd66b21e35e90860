package summary

import (
	"errors"
	"fmt"

	"probekit/internal/bus"
	"probekit/internal/core"
	"probekit/internal/stream"
)

// Section is the rendered output of one summary. EmptyReduction is set when
// a reduction over the summary's live stream completed with no elements.
type Section struct {
	Name           string   `json:"name"`
	Lines          []string `json:"lines"`
	Err            error    `json:"-"`
	EmptyReduction bool     `json:"-"`
}

// Renderer runs required summaries and renders them in require order.
type Renderer struct {
	width    int
	required []*requirement
	seen     map[string]bool
}

type requirement struct {
	def     Definition
	summary *Summary
	err     error
	empty   bool
}

// NewRenderer creates a renderer laying summaries out at width columns.
func NewRenderer(width int) *Renderer {
	return &Renderer{width: width, seen: make(map[string]bool)}
}

// Require registers def the first time it is seen and runs its Before stage
// against live. Later calls for the same definition are no-ops. Errors the
// Before pipeline raises when live completes stay with def's section and
// never reach the bus.
func (r *Renderer) Require(def Definition, live stream.Stream[core.Record]) error {
	key := def.Scope + "\x00" + def.Name
	if r.seen[key] {
		return nil
	}
	r.seen[key] = true

	req := &requirement{def: def, summary: New(r.width)}
	r.required = append(r.required, req)
	if def.Before == nil {
		return nil
	}
	if def.Channel != "" {
		live = live.Filter(func(rec core.Record) bool { return rec.Channel == def.Channel })
	}
	live = live.Isolate(func(err error) {
		if errors.Is(err, stream.ErrNoElements) {
			req.empty = true
			return
		}
		if req.err == nil {
			req.err = fmt.Errorf("finishing summary %q: %w", def.Name, err)
		}
	})
	if err := def.Before(live, req.summary); err != nil {
		req.err = fmt.Errorf("starting summary %q: %w", def.Name, err)
		return req.err
	}
	return nil
}

// Required returns the names of required summaries in require order.
func (r *Renderer) Required() []string {
	names := make([]string, len(r.required))
	for i, req := range r.required {
		names[i] = req.def.Name
	}
	return names
}

// Render runs every After stage against the frozen view. A summary that
// failed keeps its error in its section; other summaries are unaffected.
func (r *Renderer) Render(view *bus.View) []Section {
	sections := make([]Section, 0, len(r.required))
	for _, req := range r.required {
		err := req.err
		if err == nil && req.def.After != nil {
			v := view
			if req.def.Channel != "" {
				v = view.Where(req.def.Channel)
			}
			if afterErr := req.def.After(v, req.summary); afterErr != nil {
				err = fmt.Errorf("rendering summary %q: %w", req.def.Name, afterErr)
			}
		}
		sections = append(sections, Section{
			Name:           req.def.Name,
			Lines:          req.summary.Lines(),
			Err:            err,
			EmptyReduction: req.empty,
		})
	}
	return sections
}
