// Package sync detects row-level changes between refresh cycles and pushes
// only the changed subjects to the downstream sheet endpoint. Delivery is
// at-least-once: the signature cache is committed only after the endpoint
// confirms a push, so a failed push re-offers the same rows next cycle.
package sync

import (
	gosync "sync"

	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/statefile"
)

// Cache is the file-backed id→signature map. All access is serialized so
// overlapping refresh cycles cannot lose updates.
type Cache struct {
	mu   gosync.Mutex
	path string
	sigs map[string]string
}

// NewCache loads the persisted signature map at path; a missing or corrupt
// file seeds an empty map.
func NewCache(path string) *Cache {
	return &Cache{
		path: path,
		sigs: statefile.Load(path),
	}
}

// Diff returns the subjects whose signature is new or changed since the
// last committed push, plus the candidate map to commit if the push
// succeeds. The candidate map is the committed map with the diffed rows'
// signatures applied; the cache itself is not modified.
func (c *Cache) Diff(subjects []record.Subject) ([]record.Subject, map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidate := make(map[string]string, len(c.sigs)+len(subjects))
	for id, sig := range c.sigs {
		candidate[id] = sig
	}

	var changed []record.Subject
	for _, s := range subjects {
		if s.ID == "" {
			continue
		}
		sig := Signature(s)
		if prev, ok := c.sigs[s.ID]; !ok || prev != sig {
			changed = append(changed, s)
			candidate[s.ID] = sig
		}
	}
	return changed, candidate
}

// Commit persists a candidate map produced by Diff. Call only after the
// downstream push has been confirmed.
func (c *Cache) Commit(candidate map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := statefile.Save(c.path, candidate); err != nil {
		return err
	}
	c.sigs = candidate
	return nil
}

// Len reports the number of committed signatures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sigs)
}
