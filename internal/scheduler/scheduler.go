// Package scheduler wires up the cron job that periodically rebuilds the
// bulk snapshot from the relational store.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"alumnihub/jobs-service/internal/search"
)

// Scheduler wraps robfig/cron and manages the snapshot reload loop.
type Scheduler struct {
	cron     *cron.Cron
	resolver *search.Resolver
	spec     string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that reloads the snapshot every intervalHours hours.
func New(resolver *search.Resolver, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		resolver: resolver,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one reload
// immediately so searches hit the snapshot without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.reload(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	// Warm the snapshot at startup (non-blocking)
	go s.reload(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) reload(ctx context.Context) {
	log.Println("[scheduler] Snapshot reload started")

	n, err := s.resolver.ReloadSnapshot(ctx)
	if err != nil {
		log.Printf("[scheduler] Snapshot reload error: %v", err)
		return
	}

	log.Printf("[scheduler] Snapshot reload complete: %d active listing(s)", n)
}
