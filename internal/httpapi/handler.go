// Package httpapi exposes the job search pipeline over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"alumnihub/jobs-service/internal/jooble"
	"alumnihub/jobs-service/internal/model"
	"alumnihub/jobs-service/internal/search"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// Handler holds the resolver and serves the /jobs routes.
type Handler struct {
	resolver *search.Resolver
}

// NewHandler returns a configured Handler.
func NewHandler(resolver *search.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Router builds the chi router with standard middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/search", h.search)
		r.Get("/recommended", h.recommended)
		r.Get("/lookup", h.lookup)
		r.Post("/reload", h.reload)
	})
	return r
}

// search is the caller-facing entry point. It always answers 200: a search
// that cannot reach the provider and has no local data returns zero results
// with an error string, never a hard failure.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := model.Filter{
		Keywords:        q.Get("keywords"),
		Location:        q.Get("location"),
		JobType:         q.Get("job_type"),
		WorkArrangement: q.Get("work_arrangement"),
		ExperienceLevel: q.Get("experience_level"),
		Page:            intParam(q.Get("page"), 1),
		PageSize:        intParam(q.Get("limit"), 10),
		SalaryFloor:     intParam(q.Get("salary"), 0),
		HasSalary:       q.Get("has_salary") == "true",
	}

	writeJSON(w, http.StatusOK, h.resolver.Search(r.Context(), f))
}

func (h *Handler) recommended(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 3)
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	jobs, err := h.resolver.Recommended(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load recommended jobs"})
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := q.Get("source")
	if source == "" {
		source = jooble.SourceName
	}
	id := q.Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	job, err := h.resolver.Lookup(r.Context(), source, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// reload rebuilds the bulk snapshot and invalidates derived cache entries.
// Exposed so external write paths (entity CRUD, admin tooling) can force
// consistency after touching job records directly.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	n, err := h.resolver.ReloadSnapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "snapshot reload failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reloaded": n})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "jobs-service",
		"version": Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
