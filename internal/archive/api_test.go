package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubStore struct {
	counts map[string]int
	err    error
}

func (s stubStore) SeverityCounts(ctx context.Context) (map[string]int, error) {
	return s.counts, s.err
}

func TestSeveritiesEndpoint(t *testing.T) {
	h := NewHandler(stubStore{counts: map[string]int{
		"severe":   3,
		"moderate": 7,
		"normal":   40,
	}})

	req := httptest.NewRequest(http.MethodGet, "/severities", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Severities map[string]int `json:"severities"`
		Total      int            `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 50 {
		t.Errorf("total = %d, want 50", resp.Total)
	}
	if resp.Severities["severe"] != 3 || resp.Severities["moderate"] != 7 {
		t.Errorf("severities = %v", resp.Severities)
	}
}

func TestSeveritiesEndpointStoreFailure(t *testing.T) {
	h := NewHandler(stubStore{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/severities", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
