package probe

import (
	"fmt"
	"io"

	"probekit/internal/core"
	"probekit/internal/reporter"
)

// Display returns a definition that writes every event observed at ref to w,
// one "location: name=value, ..." line per event.
func Display(ref string, w io.Writer) Definition {
	return Definition{
		Name:        ref,
		Description: "display events at " + ref,
		Setup: func(p *Probe, _ *reporter.Reporter) error {
			events, err := p.Source(ref)
			if err != nil {
				return err
			}
			events.SubscribeErr(func(e core.Event) error {
				_, err := fmt.Fprintln(w, e)
				return err
			})
			return nil
		},
	}
}
