// Package store is the relational adapter for canonical job records.
// Postgres is the single source of truth; every cache layer above it is a
// derived view. All predicates are built from model.Filter so the SQL path
// and the in-memory snapshot path cannot disagree on filter semantics.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alumnihub/jobs-service/internal/model"
)

const listingColumns = `id, external_id, title, COALESCE(company, ''), COALESCE(location, ''),
	COALESCE(description, ''), COALESCE(job_type, ''), COALESCE(work_arrangement, ''),
	COALESCE(experience_level, ''), COALESCE(salary_raw, ''), COALESCE(source_name, ''),
	COALESCE(source_url, ''), is_active, posted_at, updated_at`

// Store wraps a pgx pool. region is the default region used to decide whether
// an incoming location is specific enough to overwrite the stored one.
type Store struct {
	pool   *pgxpool.Pool
	region string
}

// New returns a configured Store.
func New(pool *pgxpool.Pool, region string) *Store {
	return &Store{pool: pool, region: region}
}

// ─── Predicate building ──────────────────────────────────────────────────────

// baseConds appends the keyword and location predicates shared by search,
// count, facet and sweep queries.
func baseConds(conds []string, args *[]any, keywords, location string) []string {
	if keywords != "" {
		*args = append(*args, "%"+keywords+"%")
		n := len(*args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR company ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if location != "" {
		*args = append(*args, "%"+location+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(*args)))
	}
	return conds
}

// filterConds translates the full filter into SQL predicates. The has_salary
// predicate is only an approximation here (excludes empty and the Negotiable
// placeholder); callers still apply the digit check in memory, because a
// substring predicate on currency symbols is unreliable.
func filterConds(f model.Filter, args *[]any) []string {
	conds := baseConds([]string{"is_active = true"}, args, f.Keywords, f.Location)

	for _, p := range []struct{ col, val string }{
		{"job_type", f.JobType},
		{"work_arrangement", f.WorkArrangement},
		{"experience_level", f.ExperienceLevel},
	} {
		if p.val == "" {
			continue
		}
		*args = append(*args, "%"+p.val+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", p.col, len(*args)))
	}

	if f.HasSalary {
		conds = append(conds,
			"salary_raw IS NOT NULL AND salary_raw <> '' AND salary_raw <> '"+model.SalaryNegotiable+"'")
	}
	return conds
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// FindActive returns active records matching the filter, newest first.
func (s *Store) FindActive(ctx context.Context, f model.Filter, offset, limit int) ([]model.JobListing, error) {
	var args []any
	conds := filterConds(f, &args)
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT %s FROM job_listings WHERE %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		listingColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("findActive query: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// CountActive returns the number of active records matching the filter.
func (s *Store) CountActive(ctx context.Context, f model.Filter) (int, error) {
	var args []any
	conds := filterConds(f, &args)

	var count int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM job_listings WHERE %s`, strings.Join(conds, " AND ")),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("countActive query: %w", err)
	}
	return count, nil
}

// FindByExternalID returns one record by its provider identity, or nil when
// absent.
func (s *Store) FindByExternalID(ctx context.Context, source, externalID string) (*model.JobListing, error) {
	var j model.JobListing
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM job_listings WHERE source_name = $1 AND external_id = $2`, listingColumns),
		source, externalID,
	).Scan(
		&j.ID, &j.ExternalID, &j.Title, &j.Company, &j.Location,
		&j.Description, &j.JobType, &j.WorkArrangement, &j.ExperienceLevel,
		&j.SalaryRaw, &j.SourceName, &j.SourceURL, &j.IsActive,
		&j.PostedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("findByExternalID: %w", err)
	}
	return &j, nil
}

// RandomActive returns up to limit random active records (recommended jobs).
func (s *Store) RandomActive(ctx context.Context, limit int) ([]model.JobListing, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM job_listings WHERE is_active = true ORDER BY random() LIMIT $1`, listingColumns),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("randomActive query: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Upsert inserts or refreshes one record, keyed on (source_name, external_id).
// Idempotent and last-write-wins on mutable fields, so it is safe under
// concurrent backfill runs for overlapping filters. A re-observed record is
// reactivated. The stored location is only overwritten when the incoming one
// is more specific than the bare default region.
func (s *Store) Upsert(ctx context.Context, j model.JobListing) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_listings
		   (external_id, title, company, location, description, job_type,
		    work_arrangement, experience_level, salary_raw, source_name, source_url,
		    is_active, posted_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true, NOW(), NOW())
		 ON CONFLICT (source_name, external_id) DO UPDATE SET
		   title            = EXCLUDED.title,
		   company          = EXCLUDED.company,
		   description      = EXCLUDED.description,
		   job_type         = EXCLUDED.job_type,
		   work_arrangement = EXCLUDED.work_arrangement,
		   experience_level = EXCLUDED.experience_level,
		   salary_raw       = EXCLUDED.salary_raw,
		   source_url       = EXCLUDED.source_url,
		   location         = CASE
		                        WHEN EXCLUDED.location <> '' AND EXCLUDED.location <> $12
		                        THEN EXCLUDED.location
		                        ELSE job_listings.location
		                      END,
		   is_active        = true,
		   updated_at       = NOW()`,
		j.ExternalID, j.Title, j.Company, j.Location, j.Description, j.JobType,
		j.WorkArrangement, j.ExperienceLevel, j.SalaryRaw, j.SourceName, j.SourceURL,
		s.region,
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", j.SourceName, j.ExternalID, err)
	}
	return nil
}

// MarkInactive deactivates active records matching the filter's keyword and
// location predicates whose updated_at is older than updatedBefore. It is the
// staleness sweep: records not re-observed during a complete backfill are
// retired, never deleted. updated_at is left untouched.
func (s *Store) MarkInactive(ctx context.Context, f model.Filter, updatedBefore time.Time) (int, error) {
	args := []any{updatedBefore}
	conds := baseConds([]string{"is_active = true", "updated_at < $1"}, &args, f.Keywords, f.Location)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE job_listings SET is_active = false WHERE %s`, strings.Join(conds, " AND ")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("markInactive: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanListings(rows pgx.Rows) ([]model.JobListing, error) {
	jobs := make([]model.JobListing, 0)
	for rows.Next() {
		var j model.JobListing
		if err := rows.Scan(
			&j.ID, &j.ExternalID, &j.Title, &j.Company, &j.Location,
			&j.Description, &j.JobType, &j.WorkArrangement, &j.ExperienceLevel,
			&j.SalaryRaw, &j.SourceName, &j.SourceURL, &j.IsActive,
			&j.PostedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
