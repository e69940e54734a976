// Package search implements the job-listing acquisition pipeline: a query
// resolver that reconciles the bulk snapshot cache, the per-query cache and
// the relational store before falling back to the paid external provider,
// plus the background backfill pool that fetches remaining provider pages.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"alumnihub/jobs-service/internal/cache"
	"alumnihub/jobs-service/internal/jooble"
	"alumnihub/jobs-service/internal/model"
)

const (
	// MaxJobsLimit caps how many records a single query's backfill will
	// ever persist, and the bulk snapshot size.
	MaxJobsLimit = 1000

	snapshotTTL    = 6 * time.Hour
	queryTTL       = time.Hour
	recommendedTTL = 30 * time.Minute
)

// Store is the relational adapter consumed by the pipeline.
type Store interface {
	FindActive(ctx context.Context, f model.Filter, offset, limit int) ([]model.JobListing, error)
	CountActive(ctx context.Context, f model.Filter) (int, error)
	FindByExternalID(ctx context.Context, source, externalID string) (*model.JobListing, error)
	Upsert(ctx context.Context, j model.JobListing) error
	MarkInactive(ctx context.Context, f model.Filter, updatedBefore time.Time) (int, error)
	RandomActive(ctx context.Context, limit int) ([]model.JobListing, error)
	FacetCounts(ctx context.Context, keywords, location string) model.FacetCounts
}

// Cache is the TTL key-value layer. Implementations must behave like a
// permanent miss when the backend is unavailable.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, v any, ttl time.Duration)
	Snapshot(ctx context.Context) ([]model.JobListing, bool)
	SetSnapshot(ctx context.Context, jobs []model.JobListing, ttl time.Duration)
	InvalidateSearches(ctx context.Context) int
	InvalidateRecommended(ctx context.Context) int
}

// Provider is the external paginated search endpoint.
type Provider interface {
	Search(ctx context.Context, req jooble.SearchRequest) (*jooble.SearchResponse, error)
}

// BackfillQueue accepts fire-and-forget backfill requests.
type BackfillQueue interface {
	Enqueue(req BackfillRequest) bool
}

// Resolver orchestrates the four data tiers.
type Resolver struct {
	store    Store
	cache    Cache
	provider Provider
	backfill BackfillQueue
	region   string
}

// NewResolver returns a configured Resolver. backfill may be nil to disable
// background page fetching.
func NewResolver(store Store, cch Cache, provider Provider, backfill BackfillQueue, region string) *Resolver {
	return &Resolver{store: store, cache: cch, provider: provider, backfill: backfill, region: region}
}

// Search answers "give me a page of postings matching this filter", trying
// sources in order of cost: bulk snapshot, per-query cache, relational
// store, external provider. It never returns an error: when the provider is
// unreachable and no local data suffices, the result is degraded (empty,
// zero count, Error set).
func (r *Resolver) Search(ctx context.Context, f model.Filter) model.SearchResult {
	f = f.Normalized(r.region)

	// 1. Bulk snapshot: filter entirely in memory, no store or provider calls.
	// A snapshot at the cap may be missing records, so only one below it can
	// answer with counts the store path would agree with.
	if all, ok := r.cache.Snapshot(ctx); ok && len(all) < MaxJobsLimit {
		return resolveFromList(f, all)
	}

	// 2. Per-query cache.
	key := cache.Key(cache.SearchPrefix, f.Params())
	var cached model.SearchResult
	if r.cache.Get(ctx, key, &cached) {
		return cached
	}

	// 3. Relational store: sufficient when a full page survives the local
	// has_salary check.
	offset := (f.Page - 1) * f.PageSize
	jobs, err := r.store.FindActive(ctx, f, offset, f.PageSize)
	if err != nil {
		slog.Warn("store query failed, falling through to provider", "err", err)
		jobs = nil
	}
	jobs = applyHasSalary(f, jobs)
	if len(jobs) >= f.PageSize {
		res := r.storeResult(ctx, f, jobs)
		r.cache.Set(ctx, key, res, queryTTL)
		return res
	}

	// 4. External provider.
	return r.resolveFromProvider(ctx, f, key, offset)
}

// resolveFromList serves a request purely from the snapshot's record set.
func resolveFromList(f model.Filter, all []model.JobListing) model.SearchResult {
	matched := make([]model.JobListing, 0)
	facets := model.NewFacetCounts()

	for _, j := range all {
		if !f.MatchesBase(j) {
			continue
		}
		countFacets(&facets, j)
		if f.Matches(j) {
			matched = append(matched, j)
		}
	}

	return model.SearchResult{
		Jobs:       pageSlice(matched, f.Page, f.PageSize),
		TotalCount: len(matched),
		Facets:     &facets,
	}
}

func (r *Resolver) storeResult(ctx context.Context, f model.Filter, jobs []model.JobListing) model.SearchResult {
	total, err := r.store.CountActive(ctx, f)
	if err != nil {
		slog.Warn("count query failed", "err", err)
		total = len(jobs)
	}
	facets := r.store.FacetCounts(ctx, f.Keywords, f.Location)
	return model.SearchResult{Jobs: jobs, TotalCount: total, Facets: &facets}
}

func (r *Resolver) resolveFromProvider(ctx context.Context, f model.Filter, key string, offset int) model.SearchResult {
	// Translate the requested page into the provider's fixed batch numbering.
	apiPage := (f.Page-1)*f.PageSize/jooble.BatchSize + 1

	req := jooble.SearchRequest{
		Keywords: providerKeywords(f),
		Location: widenLocation(f.Location, r.region),
		Page:     apiPage,
		Salary:   f.SalaryFloor,
	}

	startedAt := time.Now().UTC()

	resp, err := r.provider.Search(ctx, req)
	if err != nil {
		if errors.Is(err, jooble.ErrNotConfigured) {
			return degraded("Jooble API key not configured.")
		}
		slog.Warn("provider request failed",
			"keywords", req.Keywords, "location", req.Location, "page", apiPage, "err", err)
		return degraded("job provider request failed: " + err.Error())
	}

	normalized := make([]model.JobListing, 0, len(resp.Jobs))
	for _, raw := range resp.Jobs {
		job := jooble.Normalize(raw, r.region)
		// The provider often echoes the bare region back; prefer the more
		// specific location that was actually searched.
		if job.Location == r.region && req.Location != r.region {
			job.Location = req.Location
		}
		normalized = append(normalized, job)

		if err := r.store.Upsert(ctx, job); err != nil {
			slog.Warn("upsert failed", "externalId", job.ExternalID, "err", err)
		}
	}

	// Remaining provider pages are fetched off the request path. Only the
	// first provider page triggers this, so one search schedules one run.
	if r.backfill != nil && apiPage == 1 && resp.TotalCount > jooble.BatchSize {
		r.backfill.Enqueue(BackfillRequest{
			Filter:    f,
			Keywords:  req.Keywords,
			Location:  req.Location,
			Salary:    f.SalaryFloor,
			StartPage: 2,
			Total:     resp.TotalCount,
			StartedAt: startedAt,
		})
	}

	// Re-issue the store query so the response is filter-consistent with the
	// store path, whatever subset of the batch actually matched.
	jobs, err := r.store.FindActive(ctx, f, offset, f.PageSize)
	if err == nil {
		jobs = applyHasSalary(f, jobs)
		res := r.storeResult(ctx, f, jobs)
		r.cache.Set(ctx, key, res, queryTTL)
		return res
	}
	slog.Warn("store re-query failed, serving provider batch directly", "err", err)

	// Store unavailable: slice the page straight out of the provider batch.
	batchStart := (apiPage - 1) * jooble.BatchSize
	lo := max(0, offset-batchStart)
	hi := min(len(normalized), offset+f.PageSize-batchStart)
	if lo > hi {
		lo, hi = 0, 0
	}
	return model.SearchResult{Jobs: normalized[lo:hi], TotalCount: resp.TotalCount}
}

// Recommended returns a handful of random active listings, cached briefly.
func (r *Resolver) Recommended(ctx context.Context, limit int) ([]model.JobListing, error) {
	key := cache.Key(cache.RecommendedPrefix, map[string]string{"limit": strconv.Itoa(limit)})

	var jobs []model.JobListing
	if r.cache.Get(ctx, key, &jobs) {
		return jobs, nil
	}

	jobs, err := r.store.RandomActive(ctx, limit)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, jobs, recommendedTTL)
	return jobs, nil
}

// ReloadSnapshot rebuilds the bulk snapshot from the store (newest first,
// capped at MaxJobsLimit) and drops every derived cache entry. Run at
// startup, on the scheduler cadence, and on demand. A snapshot that hits the
// cap is stored but never served (see Search): its counts could diverge from
// the store's.
func (r *Resolver) ReloadSnapshot(ctx context.Context) (int, error) {
	jobs, err := r.store.FindActive(ctx, model.Filter{}, 0, MaxJobsLimit)
	if err != nil {
		return 0, err
	}
	r.cache.InvalidateSearches(ctx)
	r.cache.InvalidateRecommended(ctx)
	r.cache.SetSnapshot(ctx, jobs, snapshotTTL)
	return len(jobs), nil
}

// Lookup returns one stored record by provider identity, or nil when absent.
func (r *Resolver) Lookup(ctx context.Context, source, externalID string) (*model.JobListing, error) {
	return r.store.FindByExternalID(ctx, source, externalID)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// providerKeywords folds the job-type filter into the keyword string. The
// provider has no structured type parameter, but the extra term improves
// relevance of what comes back.
func providerKeywords(f model.Filter) string {
	return strings.TrimSpace(f.Keywords + " " + f.JobType)
}

// widenLocation turns an empty location into the default region and anchors
// a specific one to it ("Cebu" → "Cebu, Philippines") so the provider does
// not wander outside the region.
func widenLocation(location, region string) string {
	if location == "" {
		return region
	}
	if !strings.Contains(strings.ToLower(location), strings.ToLower(region)) {
		return location + ", " + region
	}
	return location
}

func applyHasSalary(f model.Filter, jobs []model.JobListing) []model.JobListing {
	if !f.HasSalary {
		return jobs
	}
	kept := jobs[:0]
	for _, j := range jobs {
		if model.HasNumericSalary(j.SalaryRaw) {
			kept = append(kept, j)
		}
	}
	return kept
}

func pageSlice(jobs []model.JobListing, page, pageSize int) []model.JobListing {
	lo := (page - 1) * pageSize
	if lo >= len(jobs) {
		return []model.JobListing{}
	}
	hi := min(lo+pageSize, len(jobs))
	return jobs[lo:hi]
}

func countFacets(fc *model.FacetCounts, j model.JobListing) {
	if j.JobType != "" {
		fc.JobTypes[j.JobType]++
	}
	if j.WorkArrangement != "" {
		fc.WorkArrangements[j.WorkArrangement]++
	}
	if j.ExperienceLevel != "" {
		fc.ExperienceLevels[j.ExperienceLevel]++
	}
}

func degraded(msg string) model.SearchResult {
	return model.SearchResult{Jobs: []model.JobListing{}, TotalCount: 0, Error: msg}
}
