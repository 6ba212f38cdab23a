package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/record"
)

func subj(id string, serial int, hgb float64) record.Subject {
	return record.Subject{ID: id, Serial: serial, HGB: &hgb}
}

func TestDiffDetectsNewAndChangedRows(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))

	first := []record.Subject{subj("A", 1, 11.2), subj("B", 2, 9.0)}
	changed, candidate := cache.Diff(first)
	if len(changed) != 2 {
		t.Fatalf("initial diff = %d rows, want 2", len(changed))
	}

	if err := cache.Commit(candidate); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Unchanged snapshot produces no candidates.
	changed, _ = cache.Diff(first)
	if len(changed) != 0 {
		t.Fatalf("diff after commit = %d rows, want 0", len(changed))
	}

	// One modified row produces exactly one candidate.
	second := []record.Subject{subj("A", 1, 10.0), subj("B", 2, 9.0)}
	changed, _ = cache.Diff(second)
	if len(changed) != 1 || changed[0].ID != "A" {
		t.Fatalf("diff = %v, want only A", changed)
	}
}

func TestDiffWithoutCommitIsRepeatable(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))
	snapshot := []record.Subject{subj("A", 1, 11.2)}

	changed, _ := cache.Diff(snapshot)
	if len(changed) != 1 {
		t.Fatalf("first diff = %d rows, want 1", len(changed))
	}

	// No commit happened, so the same rows are offered again.
	changed, _ = cache.Diff(snapshot)
	if len(changed) != 1 {
		t.Fatalf("second diff = %d rows, want 1", len(changed))
	}
}

func TestCommitPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_cache.json")
	snapshot := []record.Subject{subj("A", 1, 11.2), subj("B", 2, 9.0)}

	cache := NewCache(path)
	_, candidate := cache.Diff(snapshot)
	if err := cache.Commit(candidate); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reloaded := NewCache(path)
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded cache has %d entries, want 2", reloaded.Len())
	}
	if changed, _ := reloaded.Diff(snapshot); len(changed) != 0 {
		t.Fatalf("reloaded diff = %d rows, want 0", len(changed))
	}
}

func TestDiffSkipsBlankIDs(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))
	changed, candidate := cache.Diff([]record.Subject{{ID: ""}, subj("A", 1, 11.2)})
	if len(changed) != 1 {
		t.Fatalf("diff = %d rows, want 1", len(changed))
	}
	if _, ok := candidate[""]; ok {
		t.Error("blank id leaked into candidate cache")
	}
}

func TestSignatureStableAndOrderSensitive(t *testing.T) {
	a := subj("A", 1, 11.2)
	if Signature(a) != Signature(a) {
		t.Error("signature not deterministic")
	}

	b := subj("A", 1, 11.3)
	if Signature(a) == Signature(b) {
		t.Error("changed hgb did not change signature")
	}

	c := subj("A", 2, 11.2)
	if Signature(a) == Signature(c) {
		t.Error("changed serial did not change signature")
	}
}

func TestRowMatchesSignatureColumnSet(t *testing.T) {
	hgb := 9.0
	s := record.Subject{
		ID:            "A",
		Serial:        1,
		HGB:           &hgb,
		Name:          "R****i",
		HouseholdName: "S****a",
		BlockLabel:    "Koppal (5)",
		Location:      "Hirevankalkunta (012)",
		Trimester:     "2",
		CollectedBy:   "M****a",
		SampleStatus:  "Collected",
		Contact:       "91XXXXXXXX21",
	}

	row := Row(s)
	if len(row) != len(columns) {
		t.Fatalf("row has %d keys, want %d", len(row), len(columns))
	}
	for _, c := range columns {
		if _, ok := row[c.name]; !ok {
			t.Errorf("row missing column %q", c.name)
		}
	}
	for _, key := range []string{
		"Household Name", "Block", "Location", "Trimester",
		"Collected By", "Sample Status", "Contact",
	} {
		if _, ok := row[key]; ok {
			t.Errorf("row carries %q, which is outside the signature column set", key)
		}
	}
}

func TestPushBodyCarriesOnlySignatureColumns(t *testing.T) {
	var body []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPusher(srv.URL, 5*time.Second, 600)
	s := subj("A", 1, 9.0)
	s.HouseholdName = "S****a"
	s.Contact = "91XXXXXXXX21"

	if err := pusher.Push(context.Background(), []record.Subject{s}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if len(body) != 1 {
		t.Fatalf("push body has %d rows, want 1", len(body))
	}
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c.name] = true
	}
	for key := range body[0] {
		if !allowed[key] {
			t.Errorf("push body carries %q, which is outside the signature column set", key)
		}
	}
	if body[0]["ID"] != "A" || body[0]["HGB"] != "9" {
		t.Errorf("push row = %v, want ID A with HGB 9", body[0])
	}
}

func TestPushSuccessGatesCommit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cache := NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))
	pusher := NewPusher(srv.URL, 5*time.Second, 600)

	snapshot := []record.Subject{subj("A", 1, 11.2)}
	changed, candidate := cache.Diff(snapshot)

	if err := pusher.Push(context.Background(), changed); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := cache.Commit(candidate); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("push endpoint hit %d times, want 1", hits.Load())
	}

	if changed, _ := cache.Diff(snapshot); len(changed) != 0 {
		t.Fatalf("post-push diff = %d rows, want 0", len(changed))
	}
}

func TestPushFailureLeavesCacheUncommitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))
	pusher := NewPusher(srv.URL, 5*time.Second, 600)

	snapshot := []record.Subject{subj("A", 1, 11.2)}
	changed, _ := cache.Diff(snapshot)

	if err := pusher.Push(context.Background(), changed); err == nil {
		t.Fatal("expected push error on 502")
	}

	// Cache untouched: the same rows are offered on the next cycle.
	if changed, _ := cache.Diff(snapshot); len(changed) != 1 {
		t.Fatalf("diff after failed push = %d rows, want 1", len(changed))
	}
}

func TestPushDisabledWithoutEndpoint(t *testing.T) {
	pusher := NewPusher("", 5*time.Second, 600)
	if pusher.Enabled() {
		t.Error("pusher with empty URL should be disabled")
	}
}
