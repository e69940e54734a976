package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"alumnihub/jobs-service/internal/jooble"
	"alumnihub/jobs-service/internal/model"
)

const (
	// politenessDelay spaces out provider page requests within a run.
	politenessDelay = time.Second

	// sweepBuffer is subtracted from a run's start time before the staleness
	// sweep, so records touched by a concurrent overlapping run are never
	// marked inactive.
	sweepBuffer = time.Second
)

// BackfillRequest asks for provider pages StartPage..N of a query to be
// fetched and upserted. Keywords/Location are the provider-side values
// (already widened and type-augmented); Filter is the caller's original
// filter, used for the staleness sweep.
type BackfillRequest struct {
	Filter    model.Filter
	Keywords  string
	Location  string
	Salary    int
	StartPage int
	Total     int // provider-reported total for the query
	StartedAt time.Time
}

// BackfillConfig sizes the worker pool.
type BackfillConfig struct {
	Region    string
	Workers   int
	QueueSize int
	Delay     time.Duration // defaults to politenessDelay
	Sweep     bool          // enable the staleness sweep after complete runs
}

// Backfill runs provider page fetches off the request path. Requests go
// through a bounded queue consumed by a fixed-size worker pool, capping
// concurrent outbound provider calls; when the queue is full a request is
// dropped, never blocked on.
type Backfill struct {
	store    Store
	provider Provider
	cfg      BackfillConfig
	queue    chan BackfillRequest
	wg       sync.WaitGroup
}

// NewBackfill constructs the pool. Call Start to launch workers.
func NewBackfill(store Store, provider Provider, cfg BackfillConfig) *Backfill {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Delay <= 0 {
		cfg.Delay = politenessDelay
	}
	return &Backfill{
		store:    store,
		provider: provider,
		cfg:      cfg,
		queue:    make(chan BackfillRequest, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (b *Backfill) Start(ctx context.Context) {
	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-b.queue:
					b.Run(ctx, req)
				}
			}
		}()
	}
	slog.Info("backfill pool started", "workers", b.cfg.Workers, "queueSize", b.cfg.QueueSize)
}

// Wait blocks until all workers have exited after context cancellation.
func (b *Backfill) Wait() {
	b.wg.Wait()
}

// Enqueue submits a request without blocking. Returns false when the queue
// is full and the request was dropped.
func (b *Backfill) Enqueue(req BackfillRequest) bool {
	select {
	case b.queue <- req:
		return true
	default:
		slog.Warn("backfill queue full, dropping request",
			"keywords", req.Keywords, "location", req.Location)
		return false
	}
}

// Run executes one backfill synchronously: fetch each remaining provider
// page, upsert every record, then optionally sweep stale records. Page
// failures are logged and skipped; an empty page ends the run. No caller
// awaits the result, so nothing propagates.
func (b *Backfill) Run(ctx context.Context, req BackfillRequest) {
	runID := uuid.NewString()[:8]

	limit := min(req.Total, MaxJobsLimit)
	totalPages := (limit + jooble.BatchSize - 1) / jooble.BatchSize
	if req.StartPage > totalPages {
		return
	}

	slog.Info("backfill run started", "run", runID,
		"keywords", req.Keywords, "location", req.Location,
		"pages", totalPages-req.StartPage+1, "total", req.Total)

	saved := 0
	for page := req.StartPage; page <= totalPages; page++ {
		select {
		case <-ctx.Done():
			slog.Info("backfill run cancelled", "run", runID, "page", page)
			return
		case <-time.After(b.cfg.Delay):
		}

		resp, err := b.provider.Search(ctx, jooble.SearchRequest{
			Keywords: req.Keywords,
			Location: req.Location,
			Page:     page,
			Salary:   req.Salary,
		})
		if err != nil {
			slog.Warn("backfill page failed", "run", runID, "page", page, "err", err)
			continue
		}
		if len(resp.Jobs) == 0 {
			break
		}

		for _, raw := range resp.Jobs {
			job := jooble.Normalize(raw, b.cfg.Region)
			if job.Location == b.cfg.Region && req.Location != b.cfg.Region {
				job.Location = req.Location
			}
			if err := b.store.Upsert(ctx, job); err != nil {
				slog.Warn("backfill upsert failed", "run", runID, "page", page,
					"externalId", job.ExternalID, "err", err)
				continue
			}
			saved++
		}
	}

	b.sweepStale(ctx, runID, req)
	slog.Info("backfill run complete", "run", runID, "saved", saved)
}

// sweepStale retires records matching the run's filter that were not
// re-observed during it. Only a run known to have covered every available
// record may sweep. The fetch path is correct with sweeping disabled.
func (b *Backfill) sweepStale(ctx context.Context, runID string, req BackfillRequest) {
	if !b.cfg.Sweep || req.Total > MaxJobsLimit {
		return
	}

	cutoff := req.StartedAt.Add(-sweepBuffer)
	n, err := b.store.MarkInactive(ctx, req.Filter, cutoff)
	if err != nil {
		slog.Warn("stale sweep failed", "run", runID, "err", err)
		return
	}
	if n > 0 {
		slog.Info("stale sweep retired records", "run", runID, "count", n)
	}
}
