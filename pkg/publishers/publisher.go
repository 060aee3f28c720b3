package publishers

import (
	"context"
	"fmt"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
)

// Publisher delivers fetch events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log inet.Logger) (Publisher, error)

var builders = map[string]Builder{
	TypeHTTP:      newHTTPPublisher,
	TypeSQS:       newSQSPublisher,
	TypeSNS:       newSNSPublisher,
	TypeGCPPubSub: newPubSubPublisher,
}

// Build creates the publisher described by cfg.
func Build(ctx context.Context, cfg PublisherConfig, log inet.Logger) (Publisher, error) {
	build, ok := builders[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("publisher %q: unsupported type %q", cfg.ID, cfg.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return build(ctx, cfg, inet.OrNop(log))
}
