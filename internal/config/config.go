// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the jobs service.
type Config struct {
	Port                string
	DatabaseURL         string
	RedisURL            string
	JoobleAPIKey        string
	DefaultRegion       string // location treated as "no location filter", e.g. "Philippines"
	SnapshotReloadHours int    // how often the bulk snapshot is rebuilt
	BackfillWorkers     int
	BackfillQueueSize   int
	StaleSweepEnabled   bool // off by default, sweeping costs extra provider-sized scans
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	region := os.Getenv("DEFAULT_REGION")
	if region == "" {
		region = "Philippines"
	}

	port := os.Getenv("JOBS_PORT")
	if port == "" {
		port = "8082"
	}

	reload, err := positiveInt("SNAPSHOT_RELOAD_HOURS", 6)
	if err != nil {
		return nil, err
	}
	workers, err := positiveInt("BACKFILL_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	queueSize, err := positiveInt("BACKFILL_QUEUE_SIZE", 32)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            redisURL,
		JoobleAPIKey:        os.Getenv("JOOBLE_API_KEY"),
		DefaultRegion:       region,
		SnapshotReloadHours: reload,
		BackfillWorkers:     workers,
		BackfillQueueSize:   queueSize,
		StaleSweepEnabled:   os.Getenv("STALE_SWEEP_ENABLED") == "true",
	}, nil
}

func positiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
