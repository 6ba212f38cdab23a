// Package pipeline orchestrates the refresh cycle: fetch the raw snapshot,
// reconcile it into subjects, publish the result for readers, and hand the
// changed rows to the outbound sync stage in the background.
package pipeline

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/karnataka-health/anemia-platform/internal/classify"
	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/metrics"
	"github.com/karnataka-health/anemia-platform/internal/source"
	syncpkg "github.com/karnataka-health/anemia-platform/internal/sync"
)

// Snapshot is the published pipeline state read by the API layer. Subjects
// is replaced wholesale on a successful refresh and retained untouched on a
// failed one.
type Snapshot struct {
	CycleID     string
	Subjects    []record.Subject
	Status      string
	Err         bool
	LastUpdated time.Time
}

// Archiver persists a reconciled cycle; the pipeline treats archival as
// best-effort.
type Archiver interface {
	ArchiveCycle(ctx context.Context, cycleID string, subjects []record.Subject) error
}

// Pipeline ties the fetch, reconcile and sync stages together.
type Pipeline struct {
	fetcher    *source.Fetcher
	reconciler *record.Reconciler
	cache      *syncpkg.Cache
	pusher     *syncpkg.Pusher
	archiver   Archiver

	mu       gosync.RWMutex
	snapshot Snapshot

	bg gosync.WaitGroup
}

func New(fetcher *source.Fetcher, reconciler *record.Reconciler, cache *syncpkg.Cache, pusher *syncpkg.Pusher) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		reconciler: reconciler,
		cache:      cache,
		pusher:     pusher,
		snapshot:   Snapshot{Status: "Starting"},
	}
}

// SetArchiver attaches an optional archive backend.
func (p *Pipeline) SetArchiver(a Archiver) {
	p.archiver = a
}

// Refresh runs one full cycle. A fetch failure keeps the previous subject
// set and only updates the status fields, so readers never see good data
// replaced by an empty set.
func (p *Pipeline) Refresh(ctx context.Context) error {
	start := time.Now()

	raws, status, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.mu.Lock()
		p.snapshot.Status = status
		p.snapshot.Err = true
		p.mu.Unlock()
		metrics.RecordRefreshCycle("fetch_error", time.Since(start))
		return fmt.Errorf("refresh fetch failed: %w", err)
	}

	metrics.RecordRecordsIngested(len(raws))

	rawRecords := make([]record.RawRecord, len(raws))
	for i, r := range raws {
		rawRecords[i] = record.RawRecord(r)
	}

	subjects := p.reconciler.Reconcile(rawRecords)
	metrics.RecordRecordsDropped("reconciliation", len(raws)-len(subjects))
	publishSeverityGauges(subjects)

	cycleID := uuid.New().String()
	p.mu.Lock()
	p.snapshot = Snapshot{
		CycleID:     cycleID,
		Subjects:    subjects,
		Status:      status,
		Err:         false,
		LastUpdated: time.Now(),
	}
	p.mu.Unlock()

	// Outbound stages run off the refresh path so readers and the next
	// cycle are never blocked on network I/O.
	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		p.syncOut(context.WithoutCancel(ctx), subjects)
		if p.archiver != nil {
			if err := p.archiver.ArchiveCycle(context.WithoutCancel(ctx), cycleID, subjects); err != nil {
				fmt.Printf("Warning: cycle archive failed: %v\n", err)
			}
		}
	}()

	metrics.RecordRefreshCycle("success", time.Since(start))
	return nil
}

// syncOut diffs the snapshot against the committed signature cache and
// pushes the changed rows. The candidate cache is committed only after the
// endpoint confirms the batch; any failure leaves the persisted cache
// untouched so the next cycle re-offers the same rows.
func (p *Pipeline) syncOut(ctx context.Context, subjects []record.Subject) {
	if p.pusher == nil || !p.pusher.Enabled() {
		return
	}

	changed, candidate := p.cache.Diff(subjects)
	if len(changed) == 0 {
		return
	}

	if err := p.pusher.Push(ctx, changed); err != nil {
		fmt.Printf("Warning: sync push failed, will retry next cycle: %v\n", err)
		return
	}
	if err := p.cache.Commit(candidate); err != nil {
		fmt.Printf("Warning: failed to persist sync cache: %v\n", err)
	}
}

// Snapshot returns the current published state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subjects returns the current reconciled subject set.
func (p *Pipeline) Subjects() []record.Subject {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.Subjects
}

// Run refreshes immediately and then on every tick until the context is
// cancelled. It blocks; callers start it in its own goroutine.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	if err := p.Refresh(ctx); err != nil {
		fmt.Printf("Warning: initial refresh failed: %v\n", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.bg.Wait()
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				fmt.Printf("Warning: refresh failed: %v\n", err)
			}
		}
	}
}

func publishSeverityGauges(subjects []record.Subject) {
	counts := make(map[classify.Severity]int, len(classify.Severities))
	for _, s := range subjects {
		counts[s.AnemiaCategory]++
	}
	for _, sev := range classify.Severities {
		metrics.SetSubjectsBySeverity(string(sev), counts[sev])
	}
}
