package library

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // cover decoding
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/llehouerou/aria/internal/ingest"
)

const thumbSize = 300

// CoverCache stores extracted cover art on disk, named by the track's
// content hash. The original image is kept in its source encoding and
// a JPEG thumbnail is generated next to it.
type CoverCache struct {
	dir string
}

func NewCoverCache(cacheDir string) (*CoverCache, error) {
	dir := filepath.Join(cacheDir, "covers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CoverCache{dir: dir}, nil
}

// Put stores the cover for hash and returns the path of the original
// image. Writing the same hash twice is a no-op.
func (c *CoverCache) Put(hash string, cover *ingest.Cover) (string, error) {
	path := c.coverPath(hash, cover.MIMEType)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.WriteFile(path, cover.Data, 0o644); err != nil {
		return "", fmt.Errorf("write cover: %w", err)
	}

	if err := c.writeThumbnail(hash, cover.Data); err != nil {
		// The full-size cover is still usable.
		return path, nil
	}
	return path, nil
}

// Path returns the stored cover path for hash, or empty when no cover
// is cached.
func (c *CoverCache) Path(hash string) string {
	for _, ext := range []string{".jpg", ".png"} {
		path := filepath.Join(c.dir, hash+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ThumbnailPath returns the thumbnail path for hash, or empty when
// none exists.
func (c *CoverCache) ThumbnailPath(hash string) string {
	path := filepath.Join(c.dir, hash+"_thumb.jpg")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func (c *CoverCache) coverPath(hash, mimeType string) string {
	ext := ".jpg"
	if mimeType == "image/png" {
		ext = ".png"
	}
	return filepath.Join(c.dir, hash+ext)
}

func (c *CoverCache) writeThumbnail(hash string, data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	thumb := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)

	f, err := os.Create(filepath.Join(c.dir, hash+"_thumb.jpg"))
	if err != nil {
		return err
	}
	defer f.Close()

	return jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85})
}
