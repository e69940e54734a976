// alumnihub-jobs-service
//
// Job-listing acquisition and caching pipeline for the alumni portal.
// Answers search queries from three tiers of increasing cost (bulk
// snapshot cache, per-query cache, Postgres) and falls back to the Jooble
// API only when local data is insufficient, backfilling remaining pages in
// the background.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alumnihub/jobs-service/internal/cache"
	"alumnihub/jobs-service/internal/config"
	"alumnihub/jobs-service/internal/db"
	"alumnihub/jobs-service/internal/httpapi"
	"alumnihub/jobs-service/internal/jooble"
	"alumnihub/jobs-service/internal/scheduler"
	"alumnihub/jobs-service/internal/search"
	"alumnihub/jobs-service/internal/store"
)

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[jobs-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[jobs-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[jobs-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[jobs-service] PostgreSQL connected ✓")

	// ── Redis (non-fatal: the cache degrades to permanent misses) ────────────
	log.Println("[jobs-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("[jobs-service] Redis unavailable, cache degraded: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
		log.Println("[jobs-service] Redis connected ✓")
	}

	// ── Pipeline wiring ──────────────────────────────────────────────────────
	jobCache := cache.New(rdb)
	jobStore := store.New(pool, cfg.DefaultRegion)
	provider := jooble.NewClient(cfg.JoobleAPIKey)
	if cfg.JoobleAPIKey == "" {
		log.Println("[jobs-service] JOOBLE_API_KEY not set, provider fallback disabled")
	}

	backfill := search.NewBackfill(jobStore, provider, search.BackfillConfig{
		Region:    cfg.DefaultRegion,
		Workers:   cfg.BackfillWorkers,
		QueueSize: cfg.BackfillQueueSize,
		Sweep:     cfg.StaleSweepEnabled,
	})
	backfill.Start(ctx)

	resolver := search.NewResolver(jobStore, jobCache, provider, backfill, cfg.DefaultRegion)

	sched := scheduler.New(resolver, cfg.SnapshotReloadHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[jobs-service] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpapi.NewHandler(resolver).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // a cold-cache search may wait on the provider
	}

	go func() {
		log.Printf("[jobs-service] v%s listening on :%s", httpapi.Version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[jobs-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[jobs-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[jobs-service] Shutdown error: %v", err)
	}

	cancel()
	backfill.Wait()
	log.Println("[jobs-service] Stopped.")
}
