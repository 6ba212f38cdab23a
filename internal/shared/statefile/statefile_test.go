package statefile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	in := map[string]string{"A": "sig-1", "B": "sig-2"}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := Load(path)
	if len(out) != 2 || out["A"] != "sig-1" || out["B"] != "sig-2" {
		t.Errorf("Load = %v, want %v", out, in)
	}
}

func TestLoadMissingFile(t *testing.T) {
	out := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if out == nil || len(out) != 0 {
		t.Errorf("Load of missing file = %v, want empty map", out)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := Load(path)
	if out == nil || len(out) != 0 {
		t.Errorf("Load of corrupt file = %v, want empty map", out)
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	Save(path, map[string]string{"A": "old", "B": "old"})
	if err := Save(path, map[string]string{"A": "new"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := Load(path)
	if len(out) != 1 || out["A"] != "new" {
		t.Errorf("Load after overwrite = %v", out)
	}
}
