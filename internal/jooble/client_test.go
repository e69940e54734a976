package jooble_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"alumnihub/jobs-service/internal/jooble"
)

func TestSearch_RequestShape(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"totalCount": 128, "jobs": [{"id": 123456789012345678, "title": "Encoder"}]}`))
	}))
	defer srv.Close()

	c := jooble.NewClient("test-key")
	c.BaseURL = srv.URL

	resp, err := c.Search(context.Background(), jooble.SearchRequest{
		Keywords: "encoder",
		Location: "Manila, Philippines",
		Page:     3,
		Salary:   25000,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/test-key" {
		t.Errorf("key must be the path segment, got %q", gotPath)
	}
	want := map[string]string{
		"keywords":     "encoder",
		"location":     "Manila, Philippines",
		"page":         "3",
		"ResultOnPage": "20",
		"salary":       "25000",
	}
	for k, v := range want {
		if gotPayload[k] != v {
			t.Errorf("payload[%q] = %q, want %q", k, gotPayload[k], v)
		}
	}

	if resp.TotalCount != 128 {
		t.Errorf("TotalCount = %d", resp.TotalCount)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].ID.String() != "123456789012345678" {
		t.Errorf("large numeric ids must survive decoding, got %+v", resp.Jobs)
	}
}

// Jooble feeds are inconsistent about id types: some pages carry numeric ids,
// others strings, sometimes mixed on one page. Neither form may reject the
// response.
func TestSearch_StringAndNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalCount": 2, "jobs": [
			{"id": "-761320834697869", "title": "Encoder"},
			{"id": 8833855909928438, "title": "Clerk"}
		]}`))
	}))
	defer srv.Close()

	c := jooble.NewClient("test-key")
	c.BaseURL = srv.URL

	resp, err := c.Search(context.Background(), jooble.SearchRequest{Keywords: "encoder", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected both jobs, got %d", len(resp.Jobs))
	}
	if got := resp.Jobs[0].ID.String(); got != "-761320834697869" {
		t.Errorf("string id = %q", got)
	}
	if got := resp.Jobs[1].ID.String(); got != "8833855909928438" {
		t.Errorf("numeric id = %q", got)
	}
}

func TestSearch_SalaryOmittedWhenUnset(t *testing.T) {
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	c := jooble.NewClient("test-key")
	c.BaseURL = srv.URL

	if _, err := c.Search(context.Background(), jooble.SearchRequest{Keywords: "nurse", Page: 1}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := gotPayload["salary"]; ok {
		t.Error("salary hint must be omitted when zero")
	}
}

func TestSearch_NoAPIKey(t *testing.T) {
	c := jooble.NewClient("")
	_, err := c.Search(context.Background(), jooble.SearchRequest{Keywords: "nurse", Page: 1})
	if !errors.Is(err, jooble.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid api key"))
	}))
	defer srv.Close()

	c := jooble.NewClient("bad-key")
	c.BaseURL = srv.URL

	_, err := c.Search(context.Background(), jooble.SearchRequest{Keywords: "nurse", Page: 1})
	if err == nil {
		t.Fatal("expected an error for a 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error should carry status and body, got %v", err)
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := jooble.NewClient("test-key")
	c.BaseURL = srv.URL

	if _, err := c.Search(context.Background(), jooble.SearchRequest{Keywords: "nurse", Page: 1}); err == nil {
		t.Fatal("expected a decode error for non-JSON body")
	}
}
