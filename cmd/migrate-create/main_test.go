package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNextVersion(t *testing.T) {
	dir := t.TempDir()
	if got, err := nextVersion(filepath.Join(dir, "missing")); err != nil || got != 1 {
		t.Fatalf("expected 1 for missing dir, got %d err=%v", got, err)
	}
	for _, name := range []string{"000001_init.up.sql", "000001_init.down.sql", "000007_history.up.sql", "README.md", "abc_x.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := nextVersion(dir)
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000001_x.up.sql")
	if err := writeFile(path, "-- up\n"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := writeFile(path, "-- up\n"); err == nil {
		t.Fatalf("expected error on existing file")
	}
}
