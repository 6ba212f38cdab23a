// Package statefile persists small string->string maps as JSON files.
// Both process-wide caches (sync signatures, notification ledger) use it
// with a load-at-start, mutate-in-memory, write-on-success lifecycle.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the map at path. A missing, corrupt, or unreadable file
// degrades to an empty map so startup never fails on bad cache state.
func Load(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to load state file %s: %v\n", path, err)
		}
		return map[string]string{}
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		fmt.Printf("Warning: corrupt state file %s, starting empty: %v\n", path, err)
		return map[string]string{}
	}
	return m
}

// Save writes the map as a whole-file overwrite. The write goes through a
// temp file and rename so a crash mid-write cannot leave a torn file.
func Save(path string, m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal state file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
