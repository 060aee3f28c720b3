package publishers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/go-resty/resty/v2"
)

// httpPublisher posts each event as JSON to a webhook.
type httpPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    inet.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log inet.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	client := resty.New().
		SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &httpPublisher{
		id:     cfg.ID,
		method: method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    inet.OrNop(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends evt; the job id and fetched status also travel as headers
// so sinks can route without decoding the body.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("X-Fetch-Job", evt.JobID).
		SetHeader("X-Fetch-Status", strconv.Itoa(evt.Status)).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver event for job %s: %w", evt.JobID, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("sink %s answered %s", h.url, resp.Status())
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"job_id":       evt.JobID,
		"sink_status":  resp.StatusCode(),
	})
	return nil
}
