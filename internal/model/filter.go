package model

import (
	"strconv"
	"strings"
	"unicode"
)

// Filter carries every search predicate plus pagination. The same struct
// drives both the in-memory snapshot filtering (Matches) and the SQL
// predicates the store derives from it, so the two paths cannot drift apart.
type Filter struct {
	Keywords        string
	Location        string // empty means no location restriction
	JobType         string
	WorkArrangement string
	ExperienceLevel string
	Page            int
	PageSize        int
	SalaryFloor     int // forwarded to the provider only, never a local predicate
	HasSalary       bool
}

// Normalized clamps pagination and treats a location equal to the default
// region as "no location filter".
func (f Filter) Normalized(region string) Filter {
	f.Keywords = strings.TrimSpace(f.Keywords)
	f.Location = strings.TrimSpace(f.Location)
	if strings.EqualFold(f.Location, region) {
		f.Location = ""
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	if f.PageSize > 50 {
		f.PageSize = 50
	}
	return f
}

// MatchesBase applies only the keyword and location predicates. Facet counts
// use this: they must ignore the taxonomy filters and their own dimension.
func (f Filter) MatchesBase(j JobListing) bool {
	if f.Keywords != "" {
		k := strings.ToLower(f.Keywords)
		if !strings.Contains(strings.ToLower(j.Title), k) &&
			!strings.Contains(strings.ToLower(j.Company), k) &&
			!strings.Contains(strings.ToLower(j.Description), k) {
			return false
		}
	}
	if f.Location != "" && !containsFold(j.Location, f.Location) {
		return false
	}
	return true
}

// Matches applies every predicate of the filter to one record.
func (f Filter) Matches(j JobListing) bool {
	if !f.MatchesBase(j) {
		return false
	}
	if f.JobType != "" && !containsFold(j.JobType, f.JobType) {
		return false
	}
	if f.WorkArrangement != "" && !containsFold(j.WorkArrangement, f.WorkArrangement) {
		return false
	}
	if f.ExperienceLevel != "" && !containsFold(j.ExperienceLevel, f.ExperienceLevel) {
		return false
	}
	if f.HasSalary && !HasNumericSalary(j.SalaryRaw) {
		return false
	}
	return true
}

// Params flattens the filter into cache-key parameters. Page and page size
// are always present; other fields only when set.
func (f Filter) Params() map[string]string {
	p := map[string]string{
		"page":       strconv.Itoa(f.Page),
		"page_size":  strconv.Itoa(f.PageSize),
		"has_salary": strconv.FormatBool(f.HasSalary),
	}
	if f.Keywords != "" {
		p["keywords"] = f.Keywords
	}
	if f.Location != "" {
		p["location"] = f.Location
	}
	if f.JobType != "" {
		p["job_type"] = f.JobType
	}
	if f.WorkArrangement != "" {
		p["work_arrangement"] = f.WorkArrangement
	}
	if f.ExperienceLevel != "" {
		p["experience_level"] = f.ExperienceLevel
	}
	if f.SalaryFloor > 0 {
		p["salary"] = strconv.Itoa(f.SalaryFloor)
	}
	return p
}

// HasNumericSalary reports whether the salary text contains at least one
// digit, i.e. is not the "Negotiable" placeholder or other prose.
func HasNumericSalary(salary string) bool {
	return strings.ContainsFunc(salary, unicode.IsDigit)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
