package search_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"alumnihub/jobs-service/internal/jooble"
	"alumnihub/jobs-service/internal/model"
	"alumnihub/jobs-service/internal/search"
)

// ── In-memory fakes implementing the resolver's interfaces ────────────────

type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]*model.JobListing // keyed source/externalID
	findCalls int
	failFind  bool
	failCount bool
}

func newFakeStore(jobs ...model.JobListing) *fakeStore {
	s := &fakeStore{jobs: make(map[string]*model.JobListing)}
	for i := range jobs {
		j := jobs[i]
		s.jobs[j.SourceName+"/"+j.ExternalID] = &j
	}
	return s
}

// sqlMatches mirrors the store's SQL predicates: full filter semantics
// except that has_salary is only the placeholder approximation; the digit
// check is the resolver's job.
func sqlMatches(f model.Filter, j model.JobListing) bool {
	plain := f
	plain.HasSalary = false
	if !plain.Matches(j) {
		return false
	}
	if f.HasSalary && (j.SalaryRaw == "" || j.SalaryRaw == model.SalaryNegotiable) {
		return false
	}
	return true
}

func (s *fakeStore) activeMatching(f model.Filter) []model.JobListing {
	var out []model.JobListing
	for _, j := range s.jobs {
		if j.IsActive && sqlMatches(f, *j) {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return out
}

func (s *fakeStore) FindActive(ctx context.Context, f model.Filter, offset, limit int) ([]model.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.failFind {
		return nil, fmt.Errorf("store down")
	}
	all := s.activeMatching(f)
	if offset >= len(all) {
		return []model.JobListing{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s *fakeStore) CountActive(ctx context.Context, f model.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCount {
		return 0, fmt.Errorf("store down")
	}
	return len(s.activeMatching(f)), nil
}

func (s *fakeStore) FindByExternalID(ctx context.Context, source, externalID string) (*model.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[source+"/"+externalID]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) Upsert(ctx context.Context, j model.JobListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := j.SourceName + "/" + j.ExternalID
	now := time.Now()
	if existing, ok := s.jobs[key]; ok {
		// keep monotonic timestamps even within one wall-clock tick
		if !now.After(existing.UpdatedAt) {
			now = existing.UpdatedAt.Add(time.Millisecond)
		}
		j.ID = existing.ID
		j.PostedAt = existing.PostedAt
	} else {
		j.ID = int64(len(s.jobs) + 1)
		j.PostedAt = now
	}
	j.IsActive = true
	j.UpdatedAt = now
	s.jobs[key] = &j
	return nil
}

func (s *fakeStore) MarkInactive(ctx context.Context, f model.Filter, updatedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := model.Filter{Keywords: f.Keywords, Location: f.Location}
	n := 0
	for _, j := range s.jobs {
		if j.IsActive && base.MatchesBase(*j) && j.UpdatedAt.Before(updatedBefore) {
			j.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) RandomActive(ctx context.Context, limit int) ([]model.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.activeMatching(model.Filter{})
	return all[:min(limit, len(all))], nil
}

func (s *fakeStore) FacetCounts(ctx context.Context, keywords, location string) model.FacetCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := model.NewFacetCounts()
	base := model.Filter{Keywords: keywords, Location: location}
	for _, j := range s.jobs {
		if !j.IsActive || !base.MatchesBase(*j) {
			continue
		}
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
	return fc
}

func (s *fakeStore) get(source, id string) *model.JobListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[source+"/"+id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (s *fakeStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// fakeCache stores JSON round-tripped values so cached payloads behave like
// real Redis entries.
type fakeCache struct {
	mu       sync.Mutex
	kv       map[string][]byte
	snapshot []model.JobListing
	hasSnap  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{kv: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.kv[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.kv[key] = data
}

func (c *fakeCache) Snapshot(ctx context.Context) ([]model.JobListing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.hasSnap
}

func (c *fakeCache) SetSnapshot(ctx context.Context, jobs []model.JobListing, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = jobs
	c.hasSnap = true
}

func (c *fakeCache) InvalidateSearches(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.kv)
	c.kv = make(map[string][]byte)
	c.snapshot, c.hasSnap = nil, false
	return n
}

func (c *fakeCache) InvalidateRecommended(ctx context.Context) int { return 0 }

func (c *fakeCache) entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.kv)
}

// fakeProvider serves scripted responses per provider page.
type fakeProvider struct {
	mu       sync.Mutex
	pages    map[int]*jooble.SearchResponse
	pageErrs map[int]error
	err      error // global error, takes precedence
	calls    []jooble.SearchRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{pages: make(map[int]*jooble.SearchResponse), pageErrs: make(map[int]error)}
}

func (p *fakeProvider) Search(ctx context.Context, req jooble.SearchRequest) (*jooble.SearchResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	if err := p.pageErrs[req.Page]; err != nil {
		return nil, err
	}
	if resp, ok := p.pages[req.Page]; ok {
		return resp, nil
	}
	return &jooble.SearchResponse{Jobs: []jooble.RawJob{}}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeQueue struct {
	mu   sync.Mutex
	reqs []search.BackfillRequest
}

func (q *fakeQueue) Enqueue(req search.BackfillRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
	return true
}

// ── Builders ──────────────────────────────────────────────────────────────

func listing(id, title, jobType, arrangement, level, salary string) model.JobListing {
	return model.JobListing{
		ExternalID:      id,
		Title:           title,
		Company:         "Acme Corp",
		Location:        "Manila",
		Description:     title + " role",
		JobType:         jobType,
		WorkArrangement: arrangement,
		ExperienceLevel: level,
		SalaryRaw:       salary,
		SourceName:      jooble.SourceName,
		SourceURL:       "https://jooble.org/j/" + id,
		IsActive:        true,
		PostedAt:        time.Now().Add(-24 * time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	}
}

func rawPage(start, count int) *jooble.SearchResponse {
	jobs := make([]jooble.RawJob, 0, count)
	for i := 0; i < count; i++ {
		id := start + i
		jobs = append(jobs, jooble.RawJob{
			ID:       jooble.JobID(fmt.Sprintf("%d", id)),
			Title:    fmt.Sprintf("Developer %d", id),
			Company:  "Acme Corp",
			Location: "Manila, Philippines",
			Snippet:  "Build and ship software",
		})
	}
	return &jooble.SearchResponse{Jobs: jobs}
}
