// Package fetcher runs fetch jobs through an inet session, summarizes the
// responses and publishes the outcomes.
package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/SaitoAtsushi/thin-http/internal/ledger"
	"github.com/SaitoAtsushi/thin-http/internal/logger"
	"github.com/SaitoAtsushi/thin-http/internal/pageinfo"
	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/SaitoAtsushi/thin-http/pkg/jobs"
	"github.com/SaitoAtsushi/thin-http/pkg/publishers"
)

// ErrUnexpectedStatus marks a response whose status fails the job's expectation.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Service coordinates fetching across jobs.
type Service struct {
	session   Getter
	publisher EventPublisher
	store     ledger.Store
	log       logger.Logger
	now       func() time.Time
}

// NewService wires a fetch service. A nil publisher or store disables
// publishing or deduplication respectively.
func NewService(session Getter, publisher EventPublisher, log logger.Logger, store ledger.Store) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		session:   session,
		publisher: publisher,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// Result is the outcome of one fetched job.
type Result struct {
	Status int
	Bytes  int64
	SHA256 string
	Page   pageinfo.Info
}

// Run executes a fetch pass over jobs. Disabled jobs are skipped and per-job
// failures are joined into the returned error.
func (s *Service) Run(ctx context.Context, list []jobs.Job) error {
	if s == nil || s.session == nil {
		return fmt.Errorf("fetch service is not initialized")
	}
	if len(list) == 0 {
		return fmt.Errorf("no jobs configured for fetching")
	}

	var errs []error
	for _, job := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !job.EnabledValue() {
			continue
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
			s.log.ErrorObj("job fetch failed", "job_error", map[string]any{
				"job_id": job.ID,
				"url":    job.URL,
				"error":  err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runJob(ctx context.Context, job jobs.Job) error {
	if s.store != nil {
		seen, err := s.store.Seen(job.ID)
		if err != nil {
			s.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{
				"job_id": job.ID,
				"error":  err.Error(),
			})
		} else if seen {
			s.log.DebugObj("job skipped, fetched recently", "job_skip", job.ID)
			return nil
		}
	}

	res, err := s.Fetch(ctx, job)
	if err != nil {
		return err
	}

	evt := publishers.NewEvent(job.ID, job.URL)
	evt.FetchedAt = s.now().UTC()
	evt.Status = res.Status
	evt.Bytes = res.Bytes
	evt.SHA256 = res.SHA256
	evt.Title = res.Page.Title
	evt.Heading = res.Page.Heading

	if s.publisher != nil {
		delivered, err := s.publisher.Publish(ctx, evt)
		if err != nil {
			if delivered == 0 {
				return fmt.Errorf("publish: %w", err)
			}
			s.log.WarnObj("partial publish failure", "publish_error", map[string]any{
				"job_id":    job.ID,
				"delivered": delivered,
				"error":     err.Error(),
			})
		}
	}

	if s.store != nil {
		rec := ledger.Record{
			URL:       job.URL,
			Status:    res.Status,
			Bytes:     res.Bytes,
			SHA256:    res.SHA256,
			FetchedAt: evt.FetchedAt,
		}
		if err := s.store.Mark(job.ID, rec); err != nil {
			s.log.WarnObj("ledger mark failed", "ledger_error", map[string]any{
				"job_id": job.ID,
				"error":  err.Error(),
			})
		}
	}

	s.log.InfoObj("job fetched", "job_result", map[string]any{
		"job_id": job.ID,
		"status": res.Status,
		"bytes":  res.Bytes,
		"title":  res.Page.Title,
	})
	return nil
}

// Fetch performs one job: it issues the request, checks the status and
// drains the body through the response's byte reader.
func (s *Service) Fetch(ctx context.Context, job jobs.Job) (Result, error) {
	resp, err := s.session.Get(ctx, job.URL,
		inet.WithHeaders(job.Headers),
		inet.WithFlags(job.Flags()),
	)
	if err != nil {
		return Result{}, err
	}
	defer resp.Close()

	status, err := resp.QueryStatus()
	if err != nil {
		return Result{}, err
	}
	if !job.StatusOK(status) {
		return Result{Status: status}, fmt.Errorf("%w %d", ErrUnexpectedStatus, status)
	}

	hash := sha256.New()
	head := &headBuffer{limit: pageinfo.MaxHTMLBytes}
	n, err := io.Copy(io.MultiWriter(hash, head), resp.Bytes())
	if err != nil {
		return Result{Status: status, Bytes: n}, err
	}

	res := Result{
		Status: status,
		Bytes:  n,
		SHA256: hex.EncodeToString(hash.Sum(nil)),
	}
	info, err := pageinfo.Extract(head.Bytes())
	if err != nil {
		s.log.DebugObj("page summary failed", "pageinfo_error", map[string]any{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	} else {
		res.Page = info
	}
	return res, nil
}

// headBuffer keeps the first limit bytes written to it and discards the rest.
type headBuffer struct {
	bytes.Buffer
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.limit - h.Len(); room > 0 {
		if len(p) > room {
			h.Buffer.Write(p[:room])
		} else {
			h.Buffer.Write(p)
		}
	}
	return len(p), nil
}
