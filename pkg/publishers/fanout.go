package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
)

// Fanout routes each fetch event to the publishers whose status filter
// accepts it. The zero value routes nothing and is ready to use.
type Fanout struct {
	routes []route
	log    inet.Logger
}

type route struct {
	pub    Publisher
	filter StatusFilter
}

// BuildAll builds every config and routes it by its statuses filter. Already
// built publishers are closed when a later one fails.
func BuildAll(ctx context.Context, cfgs []PublisherConfig, log inet.Logger) (*Fanout, error) {
	f := &Fanout{log: inet.OrNop(log)}
	for _, cfg := range cfgs {
		pub, err := Build(ctx, cfg, log)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		f.Add(pub, cfg.Statuses)
	}
	return f, nil
}

// Add routes events matching filter to pub.
func (f *Fanout) Add(pub Publisher, filter StatusFilter) {
	if pub != nil {
		f.routes = append(f.routes, route{pub: pub, filter: filter})
	}
}

// Publish delivers evt to every matching publisher and returns how many
// accepted it. An event no route matches is not an error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}

	var errs []error
	delivered, matched := 0, 0
	for _, r := range f.routes {
		if !r.filter.Match(evt.Status) {
			continue
		}
		matched++
		if err := r.pub.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", r.pub.Type(), r.pub.ID(), err))
			continue
		}
		delivered++
	}
	if matched == 0 && len(f.routes) > 0 {
		inet.OrNop(f.log).DebugObj("no publisher routes status", "publish_skip", map[string]any{
			"job_id": evt.JobID,
			"status": evt.Status,
		})
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of routed publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases publishers that hold client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.routes {
		if c, ok := r.pub.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher[%s]: %w", r.pub.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
