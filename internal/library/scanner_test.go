package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/llehouerou/aria/internal/ingest"
)

func TestScanImportsAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	data := []byte("not really audio but hashable")

	if err := os.WriteFile(filepath.Join(dir, "one.mp3"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.mp3"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.flac"), []byte("different bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := openTestStore(t)
	scanner := NewScanner(store, ingest.New(nil), nil, nil)

	stats, err := scanner.Scan(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if stats.Added != 2 {
		t.Errorf("added = %d, want 2", stats.Added)
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.Failed != 0 {
		t.Errorf("failed = %d, want 0", stats.Failed)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("library rows = %d, want 2", n)
	}
}

func TestImportFileFallsBackToFilenameTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "My Song.mp3")
	if err := os.WriteFile(path, []byte("opaque bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := openTestStore(t)
	scanner := NewScanner(store, ingest.New(nil), nil, nil)

	added, _, err := scanner.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if !added {
		t.Fatal("expected track to be added")
	}

	rec, err := store.TrackByPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "My Song" {
		t.Errorf("title = %q, want My Song", rec.Title)
	}
}
