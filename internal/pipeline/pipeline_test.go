package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/anonymize"
	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/source"
	syncpkg "github.com/karnataka-health/anemia-platform/internal/sync"
)

const feedPayload = `{"data": [
	{"ID": "A", "Age": "30", "Gender": "female", "HGB": 11.2, "PSU Name": "Kunikera"},
	{"ID": "B", "Age": "4", "Gender": "male", "HGB": 10.5, "PSU Name": "Tadkal"},
	{"ID": "", "Age": "40"}
]}`

func newTestPipeline(t *testing.T, feedURL, pushURL string) *Pipeline {
	t.Helper()
	cache := syncpkg.NewCache(filepath.Join(t.TempDir(), "sync_cache.json"))
	return New(
		source.NewFetcher(feedURL, 5*time.Second),
		record.NewReconciler(anonymize.New("test-salt")),
		cache,
		syncpkg.NewPusher(pushURL, 5*time.Second, 600),
	)
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	p := newTestPipeline(t, srv.URL, "")
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := p.Snapshot()
	if snap.Err {
		t.Errorf("snapshot error flag set, status %q", snap.Status)
	}
	if snap.Status != source.StatusLive {
		t.Errorf("status = %q, want %q", snap.Status, source.StatusLive)
	}
	if len(snap.Subjects) != 2 {
		t.Fatalf("snapshot has %d subjects, want 2 (blank id dropped)", len(snap.Subjects))
	}
	if snap.CycleID == "" {
		t.Error("cycle id not assigned")
	}
	if snap.LastUpdated.IsZero() {
		t.Error("last updated not set")
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	p := newTestPipeline(t, srv.URL, "")
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	goodCycle := p.Snapshot().CycleID

	fail.Store(true)
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	snap := p.Snapshot()
	if !snap.Err {
		t.Error("error flag not set after failed refresh")
	}
	if len(snap.Subjects) != 2 {
		t.Errorf("failed refresh replaced subjects: %d", len(snap.Subjects))
	}
	if snap.CycleID != goodCycle {
		t.Error("failed refresh replaced the cycle id")
	}
}

func TestRefreshPushesDiffsOnce(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer feed.Close()

	var pushes atomic.Int32
	push := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer push.Close()

	p := newTestPipeline(t, feed.URL, push.URL)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p.bg.Wait()
	if pushes.Load() != 1 {
		t.Fatalf("first refresh pushed %d times, want 1", pushes.Load())
	}

	// Unchanged feed: no diff, no push.
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p.bg.Wait()
	if pushes.Load() != 1 {
		t.Fatalf("unchanged refresh pushed again (%d total)", pushes.Load())
	}
}

func TestFailedPushRetriesNextCycle(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer feed.Close()

	var rejectNext atomic.Bool
	var accepted atomic.Int32
	push := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejectNext.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		accepted.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer push.Close()

	p := newTestPipeline(t, feed.URL, push.URL)

	rejectNext.Store(true)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p.bg.Wait()
	if accepted.Load() != 0 {
		t.Fatal("rejected push counted as accepted")
	}

	// The cache was not committed, so the next cycle re-offers the rows.
	rejectNext.Store(false)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p.bg.Wait()
	if accepted.Load() != 1 {
		t.Fatalf("retry cycle pushed %d batches, want 1", accepted.Load())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedPayload))
	}))
	defer srv.Close()

	p := newTestPipeline(t, srv.URL, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	if len(p.Subjects()) == 0 {
		t.Error("scheduler never produced a snapshot")
	}
}
