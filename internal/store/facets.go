package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alumnihub/jobs-service/internal/model"
)

// FacetCounts groups active records matching the keyword/location predicates
// by job type, work arrangement and experience level. The taxonomy filters
// themselves are never applied: a facet must count across its own dimension.
// A query failure on one dimension leaves that map empty instead of failing
// the whole call.
func (s *Store) FacetCounts(ctx context.Context, keywords, location string) model.FacetCounts {
	fc := model.NewFacetCounts()

	for _, dim := range []struct {
		column string
		counts map[string]int
	}{
		{"job_type", fc.JobTypes},
		{"work_arrangement", fc.WorkArrangements},
		{"experience_level", fc.ExperienceLevels},
	} {
		if err := s.facetDimension(ctx, dim.column, keywords, location, dim.counts); err != nil {
			slog.Warn("facet query failed", "dimension", dim.column, "err", err)
		}
	}
	return fc
}

func (s *Store) facetDimension(ctx context.Context, column, keywords, location string, counts map[string]int) error {
	var args []any
	conds := baseConds(
		[]string{"is_active = true", column + " IS NOT NULL", column + " <> ''"},
		&args, keywords, location)

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM job_listings WHERE %s GROUP BY %s`,
			column, strings.Join(conds, " AND "), column),
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return err
		}
		counts[value] = count
	}
	return rows.Err()
}
