package bus

import (
	"probekit/internal/core"
	"probekit/internal/stream"
)

func streamObserver(locations *[]string, completed *bool) stream.Observer[core.Record] {
	return stream.Observer[core.Record]{
		Next: func(r core.Record) error {
			*locations = append(*locations, r.Location)
			return nil
		},
		Complete: func() error {
			*completed = true
			return nil
		},
	}
}
