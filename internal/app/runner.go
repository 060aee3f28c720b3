package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SaitoAtsushi/thin-http/internal/config"
	"github.com/SaitoAtsushi/thin-http/internal/fetcher"
	"github.com/SaitoAtsushi/thin-http/internal/ledger"
	"github.com/SaitoAtsushi/thin-http/internal/logger"
	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/SaitoAtsushi/thin-http/pkg/jobs"
	"github.com/SaitoAtsushi/thin-http/pkg/publishers"
)

// Runner represents the scheduled fetch runtime. It owns the inet session,
// the ledger and the publishers, and runs fetch passes on an interval.
type Runner struct {
	cfg           *config.Config
	jobReg        *jobs.Registry
	session       *inet.Session
	fanout        *publishers.Fanout
	fetchService  *fetcher.Service
	fetchInterval time.Duration
	log           logger.Logger
	store         ledger.Store
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	jobReg, err := jobs.Load(cfg.JobsFile)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	jobIDs := make([]string, 0, len(jobReg.All()))
	for _, j := range jobReg.All() {
		jobIDs = append(jobIDs, j.ID)
	}
	log.InfoObj("jobs loaded", "jobs_meta", map[string]any{
		"count": len(jobIDs),
		"ids":   jobIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := ledger.Options{
		TTL:             cfg.LedgerTTL,
		CleanupInterval: cfg.LedgerCleanupInterval,
	}
	store, err := ledger.New(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	log.InfoObj("ledger initialized", "ledger_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.LedgerTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.LedgerCleanupInterval.Seconds()),
	})

	backend, err := NewBackend(cfg, log)
	if err != nil {
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("init backend: %w", err)
	}
	session, err := OpenSession(cfg, backend, log)
	if err != nil {
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	return &Runner{
		cfg:           cfg,
		jobReg:        jobReg,
		session:       session,
		fanout:        fanout,
		fetchService:  fetcher.NewService(session, fanout, log, store),
		fetchInterval: cfg.FetchInterval,
		log:           log,
		store:         store,
	}, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.WarnObj("no publishers file configured; results are only logged", "publishers_file", "")
		return &publishers.Fanout{}, nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	fanout, err := publishers.BuildAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]any{
			"id":       pubCfg.ID,
			"type":     pubCfg.Type,
			"statuses": pubCfg.Statuses,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return fanout, nil
}

// Run starts the fetch loop until the context is cancelled, then releases
// the session, publishers and ledger.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.fetchService == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.close()

	list := r.jobReg.Enabled()
	if len(list) == 0 {
		r.log.WarnObj("no enabled jobs; runner idle", "jobs_file", r.cfg.JobsFile)
		<-ctx.Done()
		return nil
	}

	r.log.InfoObj("fetch loop starting", "runner_state", map[string]any{
		"jobs_count":       len(list),
		"publishers_count": r.fanout.Size(),
		"fetch_interval":   r.fetchInterval.String(),
		"backend":          r.cfg.Backend,
	})

	if err := r.RunOnce(ctx, list); err != nil {
		r.log.ErrorObj("initial fetch pass failed", "error", err)
	}

	ticker := time.NewTicker(r.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("fetch loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := r.RunOnce(ctx, list); err != nil {
				r.log.ErrorObj("scheduled fetch pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single fetch pass.
func (r *Runner) RunOnce(ctx context.Context, list []jobs.Job) error {
	start := time.Now()
	r.log.InfoObj("fetch pass started", "pass_meta", map[string]any{
		"jobs_count": len(list),
		"started_at": start.UTC(),
	})
	if err := r.fetchService.Run(ctx, list); err != nil {
		return err
	}
	r.log.InfoObj("fetch pass completed", "pass_meta", map[string]any{
		"jobs_count": len(list),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the session, publishers and ledger, logging failures.
func (r *Runner) close() {
	if r == nil {
		return
	}
	err := errors.Join(r.session.Close(), r.fanout.Close(), r.store.Close())
	if err != nil {
		r.log.ErrorObj("runner shutdown failed", "error", err)
	}
}
