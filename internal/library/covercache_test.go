package library

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"testing"

	"github.com/llehouerou/aria/internal/ingest"
)

func jpegCover(t *testing.T, w, h int) *ingest.Cover {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return &ingest.Cover{Data: buf.Bytes(), MIMEType: "image/jpeg"}
}

func TestCoverCachePut(t *testing.T) {
	c, err := NewCoverCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCoverCache: %v", err)
	}

	cover := jpegCover(t, 800, 800)
	path, err := c.Put("abc123", cover)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored cover: %v", err)
	}
	if !bytes.Equal(data, cover.Data) {
		t.Error("stored cover must keep the original bytes")
	}

	if got := c.Path("abc123"); got != path {
		t.Errorf("Path = %q, want %q", got, path)
	}

	thumbPath := c.ThumbnailPath("abc123")
	if thumbPath == "" {
		t.Fatal("expected a thumbnail")
	}
	f, err := os.Open(thumbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width > thumbSize || cfg.Height > thumbSize {
		t.Errorf("thumbnail %dx%d exceeds %d", cfg.Width, cfg.Height, thumbSize)
	}
}

func TestCoverCachePutIdempotent(t *testing.T) {
	c, err := NewCoverCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cover := jpegCover(t, 100, 100)
	first, err := c.Put("abc", cover)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Put("abc", cover)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
}

func TestCoverCacheMissingHash(t *testing.T) {
	c, err := NewCoverCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Path("nope"); got != "" {
		t.Errorf("Path = %q, want empty", got)
	}
	if got := c.ThumbnailPath("nope"); got != "" {
		t.Errorf("ThumbnailPath = %q, want empty", got)
	}
}
