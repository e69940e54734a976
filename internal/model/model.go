// Package model defines shared data structures for the jobs service.
package model

import "time"

// Job type values inferred by the normaliser.
const (
	JobTypeFullTime   = "Full-time"
	JobTypePartTime   = "Part-time"
	JobTypeInternship = "Internship"
	JobTypeContract   = "Contract"
	JobTypeTemporary  = "Temporary"
)

// Work arrangement values.
const (
	WorkRemote = "Remote"
	WorkHybrid = "Hybrid"
	WorkOnSite = "On-site"
)

// Experience level values.
const (
	LevelInternship = "Internship"
	LevelEntry      = "Entry Level"
	LevelMid        = "Mid-Level"
	LevelSenior     = "Senior"
	LevelLead       = "Lead"
)

// SalaryNegotiable is stored when a listing carries no salary text.
const SalaryNegotiable = "Negotiable"

// JobListing is the canonical job record: the normalised, persisted
// representation of one posting, keyed by (source_name, external_id).
// Taxonomy and salary fields are derived by the normaliser and may change
// on re-fetch without changing identity.
type JobListing struct {
	ID              int64     `json:"-"`
	ExternalID      string    `json:"externalId"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	JobType         string    `json:"jobType"`
	WorkArrangement string    `json:"workArrangement"`
	ExperienceLevel string    `json:"experienceLevel"`
	SalaryRaw       string    `json:"salary"`
	SourceName      string    `json:"source"`
	SourceURL       string    `json:"link"`
	IsActive        bool      `json:"-"`
	PostedAt        time.Time `json:"postedAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FacetCounts groups active records matching the keyword/location predicates
// by each categorical dimension.
type FacetCounts struct {
	JobTypes         map[string]int `json:"jobTypes"`
	WorkArrangements map[string]int `json:"workArrangements"`
	ExperienceLevels map[string]int `json:"experienceLevels"`
}

// NewFacetCounts returns FacetCounts with all maps allocated.
func NewFacetCounts() FacetCounts {
	return FacetCounts{
		JobTypes:         make(map[string]int),
		WorkArrangements: make(map[string]int),
		ExperienceLevels: make(map[string]int),
	}
}

// SearchResult is the caller-facing response envelope. A degraded result
// (provider unreachable, no local data) carries an Error string instead of
// failing the request.
type SearchResult struct {
	Jobs       []JobListing `json:"jobs"`
	TotalCount int          `json:"totalCount"`
	Facets     *FacetCounts `json:"facets,omitempty"`
	Error      string       `json:"error,omitempty"`
}
