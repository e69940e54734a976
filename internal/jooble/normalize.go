package jooble

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"alumnihub/jobs-service/internal/model"
)

// stripPolicy removes every HTML tag from provider snippets.
var stripPolicy = bluemonday.StrictPolicy()

// Title scans use word boundaries so e.g. "International" never matches
// "intern". Priority: Internship > Contract/Freelance > Part-time > Temporary.
var (
	reInternship = regexp.MustCompile(`(?i)\bintern(ship|s)?\b`)
	reContract   = regexp.MustCompile(`(?i)\bcontract(ual)?\b|\bfreelance\b`)
	rePartTime   = regexp.MustCompile(`(?i)\bpart[\s-]?time\b`)
	reTemporary  = regexp.MustCompile(`(?i)\btemp(orary)?\b`)

	// Salary numeric tokens: thousands separators and a k suffix (×1000).
	reSalaryNumber = regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d+)?)\s*([kK])?`)
)

var remoteMarkers = []string{"remote", "wfh", "work from home", "home based", "home-based", "virtual"}

// salaryRemoteMarkers is the narrower set consulted by the salary heuristic:
// explicit title markers only. A merely home-based posting, or one whose
// location text says remote, still quotes local pay.
var salaryRemoteMarkers = []string{"remote", "wfh", "work from home", "virtual"}

// Foreign-currency markers: when present the quoted figures are taken at face
// value and never re-attributed to the local currency.
var foreignMarkers = []string{"usd", "us$", "dollar"}

const (
	foreignSymbol = "$"
	localSymbol   = "₱"
)

// Normalize converts one raw provider record into canonical fields. It never
// fails: every field has a deterministic default, so the output is always
// best-effort. region is the default region (e.g. "Philippines") used by the
// salary currency heuristic and as the location fallback.
func Normalize(raw RawJob, region string) model.JobListing {
	title := strings.TrimSpace(raw.Title)
	titleLower := strings.ToLower(title)

	location := strings.TrimSpace(raw.Location)
	if location == "" {
		location = region
	}

	snippet := cleanSnippet(raw.Snippet)

	company := strings.TrimSpace(raw.Company)
	if company == "" {
		company = "Unknown Company"
	}

	workArrangement := inferWorkArrangement(titleLower, strings.ToLower(location))

	sourceURL := strings.TrimSpace(raw.Link)
	externalID := raw.ID.String()
	if sourceURL == "" {
		sourceURL = "jooble:" + externalID
	}

	return model.JobListing{
		ExternalID:      externalID,
		Title:           title,
		Company:         company,
		Location:        location,
		Description:     snippet,
		JobType:         inferJobType(titleLower, raw.Type),
		WorkArrangement: workArrangement,
		ExperienceLevel: inferExperienceLevel(titleLower),
		SalaryRaw: normalizeSalary(
			raw.Salary, titleLower, snippet, location, region,
			containsAny(titleLower, salaryRemoteMarkers...)),
		SourceName: SourceName,
		SourceURL:  sourceURL,
		IsActive:   true,
	}
}

func cleanSnippet(snippet string) string {
	s := stripPolicy.Sanitize(snippet)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ") // &nbsp; decodes to NBSP
	return strings.TrimSpace(s)
}

// inferJobType scans the title for a more specific type than the provider's
// stated one, falling back to it, then to Full-time.
func inferJobType(titleLower, stated string) string {
	switch {
	case reInternship.MatchString(titleLower):
		return model.JobTypeInternship
	case reContract.MatchString(titleLower):
		return model.JobTypeContract
	case rePartTime.MatchString(titleLower):
		return model.JobTypePartTime
	case reTemporary.MatchString(titleLower):
		return model.JobTypeTemporary
	}
	if t := strings.TrimSpace(stated); t != "" {
		return t
	}
	return model.JobTypeFullTime
}

func inferWorkArrangement(titleLower, locationLower string) string {
	for _, marker := range remoteMarkers {
		if strings.Contains(titleLower, marker) || strings.Contains(locationLower, marker) {
			return model.WorkRemote
		}
	}
	if strings.Contains(titleLower, "hybrid") || strings.Contains(locationLower, "hybrid") {
		return model.WorkHybrid
	}
	return model.WorkOnSite
}

func inferExperienceLevel(titleLower string) string {
	switch {
	case containsAny(titleLower, "intern", "ojt", "trainee"):
		return model.LevelInternship
	case containsAny(titleLower, "senior", "sr.", "principal", "manager", "head"):
		return model.LevelSenior
	case containsAny(titleLower, "lead", "chief", "director"):
		return model.LevelLead
	case containsAny(titleLower, "junior", "jr.", "entry", "fresh", "associate"):
		return model.LevelEntry
	}
	return model.LevelMid
}

// normalizeSalary applies the currency heuristic. A "$" figure on a local,
// non-remote posting with no explicit foreign-currency marker is often a
// mislabelled local amount; period-aware magnitude analysis decides whether
// to rewrite the symbol. Missing salary text becomes the Negotiable
// placeholder.
func normalizeSalary(salary, titleLower, snippet, location, region string, remote bool) string {
	salary = strings.TrimSpace(salary)
	if salary == "" {
		return model.SalaryNegotiable
	}

	if !strings.Contains(salary, foreignSymbol) || !strings.Contains(location, region) || remote {
		return salary
	}

	checkText := strings.ToLower(salary + " " + titleLower + " " + snippet)
	if containsAny(checkText, foreignMarkers...) {
		return salary
	}

	if deemedLocal(salary) {
		return strings.ReplaceAll(salary, foreignSymbol, localSymbol)
	}
	return salary
}

// deemedLocal classifies the quoted figures by pay period and magnitude.
// Small hourly/daily/monthly figures are plausible in the foreign currency;
// large ones only make sense as local amounts. Yearly figures are always
// taken as foreign. With no parseable figures at all the symbol is assumed
// to be a typo for the local one.
func deemedLocal(salary string) bool {
	values := parseSalaryNumbers(salary)
	if len(values) == 0 {
		return true
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))

	salaryLower := strings.ToLower(salary)
	switch {
	case containsAny(salaryLower, "hour", "hr"):
		return avg >= 50
	case containsAny(salaryLower, "day", "daily"):
		return avg > 200
	case containsAny(salaryLower, "year", "annum"):
		return false
	default: // monthly
		return avg >= 10000
	}
}

// parseSalaryNumbers extracts every numeric token from a salary string.
// Malformed tokens are skipped rather than failing the record.
func parseSalaryNumbers(salary string) []float64 {
	var values []float64
	for _, m := range reSalaryNumber.FindAllStringSubmatch(salary, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		values = append(values, v)
	}
	return values
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
