// Package notify tracks which subjects a health worker has already been
// notified about and composes the follow-up messages sent to workers.
package notify

import (
	"strings"
	gosync "sync"
	"time"

	"github.com/karnataka-health/anemia-platform/internal/shared/metrics"
	"github.com/karnataka-health/anemia-platform/internal/shared/statefile"
)

// timestampLayout is the human-readable day/month hour:minute form stored
// in the ledger file.
const timestampLayout = "02/01 15:04"

// Ledger is the file-backed notification record, keyed "{worker}_{id}".
// Every operation reloads the file, mutates in memory and writes back under
// one mutex, so concurrent refresh cycles and UI actions cannot lose
// entries.
type Ledger struct {
	mu   gosync.Mutex
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// key builds the ledger key. A missing worker name degrades to an empty
// prefix rather than dropping the entry, so subjects without an assigned
// worker still get exactly one ledger slot.
func key(worker, id string) string {
	return cleanWorker(worker) + "_" + strings.TrimSpace(id)
}

func cleanWorker(worker string) string {
	w := strings.TrimSpace(worker)
	switch strings.ToLower(w) {
	case "nan", "none", "missing":
		return ""
	}
	return w
}

// MarkNotified records that the worker was notified about the subject at t.
// Re-marking overwrites the previous timestamp.
func (l *Ledger) MarkNotified(worker, id string, t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := statefile.Load(l.path)
	entries[key(worker, id)] = t.Format(timestampLayout)
	if err := statefile.Save(l.path, entries); err != nil {
		return err
	}
	metrics.RecordNotificationMarked(1)
	return nil
}

// IsNotified reports whether a ledger entry exists for the worker/subject
// pair.
func (l *Ledger) IsNotified(worker, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := statefile.Load(l.path)[key(worker, id)]
	return ok
}

// NotifiedAt returns the recorded timestamp text, or "" when absent.
func (l *Ledger) NotifiedAt(worker, id string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return statefile.Load(l.path)[key(worker, id)]
}

// Reset removes every entry belonging to the worker.
func (l *Ledger) Reset(worker string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := cleanWorker(worker) + "_"
	entries := statefile.Load(l.path)
	for k := range entries {
		if strings.HasPrefix(k, prefix) {
			delete(entries, k)
		}
	}
	if err := statefile.Save(l.path, entries); err != nil {
		return err
	}
	metrics.RecordNotificationReset()
	return nil
}

// ResetSubject removes the subject's entries under every worker. The match
// is deliberately by suffix so entries survive worker-name changes between
// snapshots.
func (l *Ledger) ResetSubject(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	suffix := "_" + strings.TrimSpace(id)
	entries := statefile.Load(l.path)
	for k := range entries {
		if strings.HasSuffix(k, suffix) {
			delete(entries, k)
		}
	}
	if err := statefile.Save(l.path, entries); err != nil {
		return err
	}
	metrics.RecordNotificationReset()
	return nil
}

// Entries returns a copy of the current ledger contents.
func (l *Ledger) Entries() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return statefile.Load(l.path)
}
