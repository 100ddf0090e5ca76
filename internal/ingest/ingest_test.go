package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	emptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	helloHash = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func TestHashBytes(t *testing.T) {
	if got := HashBytes(nil); got != emptyHash {
		t.Errorf("HashBytes(nil) = %s, want %s", got, emptyHash)
	}
	if got := HashBytes([]byte("hello world")); got != helloHash {
		t.Errorf("HashBytes(hello world) = %s, want %s", got, helloHash)
	}
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	data := bytes.Repeat([]byte("abc123"), 50000) // spans several chunks

	got, err := HashReader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if want := HashBytes(data); got != want {
		t.Errorf("HashReader = %s, want %s", got, want)
	}
}

func TestHashReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := HashReader(ctx, strings.NewReader("data"))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestProcessHashOnlyForUnseekable(t *testing.T) {
	p := New(nil)

	// io.Reader without ReaderAt forces the streaming path.
	res, err := p.Process(context.Background(), io.LimitReader(strings.NewReader("hello world"), 11))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Hash != helloHash {
		t.Errorf("hash = %s, want %s", res.Hash, helloHash)
	}
	if res.Metadata != nil || res.Cover != nil {
		t.Error("expected no metadata for unseekable source")
	}
}

func TestProcessDegradesOnUnparseableTags(t *testing.T) {
	p := New(nil)

	res, err := p.Process(context.Background(), bytes.NewReader([]byte("hello world")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Hash != helloHash {
		t.Errorf("hash = %s, want %s", res.Hash, helloHash)
	}
	if res.Metadata != nil {
		t.Error("expected nil metadata for non-audio bytes")
	}
}

func TestProcessFileNameInvariance(t *testing.T) {
	dir := t.TempDir()
	data := []byte("the very same audio bytes")

	a := filepath.Join(dir, "one.mp3")
	b := filepath.Join(dir, "completely different name.flac")
	for _, path := range []string{a, b} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := New(nil)
	resA, err := p.ProcessFile(context.Background(), a)
	if err != nil {
		t.Fatalf("ProcessFile(%s): %v", a, err)
	}
	resB, err := p.ProcessFile(context.Background(), b)
	if err != nil {
		t.Fatalf("ProcessFile(%s): %v", b, err)
	}

	if resA.Hash != resB.Hash {
		t.Errorf("hashes differ for identical bytes: %s vs %s", resA.Hash, resB.Hash)
	}
	if want := HashBytes(data); resA.Hash != want {
		t.Errorf("hash = %s, want %s", resA.Hash, want)
	}
}

func TestParseFraction(t *testing.T) {
	tests := []struct {
		in         string
		num, total int
	}{
		{"3/12", 3, 12},
		{"7", 7, 0},
		{"", 0, 0},
		{"x/y", 0, 0},
		{"03/10", 3, 10},
	}
	for _, tt := range tests {
		num, total := parseFraction(tt.in)
		if num != tt.num || total != tt.total {
			t.Errorf("parseFraction(%q) = %d, %d, want %d, %d", tt.in, num, total, tt.num, tt.total)
		}
	}
}
