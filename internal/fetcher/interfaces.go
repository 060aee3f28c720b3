package fetcher

import (
	"context"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/SaitoAtsushi/thin-http/pkg/publishers"
)

// Getter issues requests; *inet.Session satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, opts ...inet.GetOption) (*inet.Response, error)
}

// EventPublisher publishes fetch outcomes downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
