package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/ingest"
	"github.com/llehouerou/aria/internal/player"
)

const scanWorkers = 4

// ScanStats summarizes a completed scan.
type ScanStats struct {
	Added      int
	Duplicates int
	Failed     int
	Bytes      uint64
}

// Scanner walks library sources, ingests every audio file and stores
// the results.
type Scanner struct {
	store    *Store
	pipeline *ingest.Pipeline
	covers   *CoverCache
	log      *zap.Logger
}

func NewScanner(store *Store, pipeline *ingest.Pipeline, covers *CoverCache, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{store: store, pipeline: pipeline, covers: covers, log: log}
}

// Scan walks the given roots and imports every supported audio file.
// Files whose bytes are already in the library count as duplicates.
func (s *Scanner) Scan(ctx context.Context, roots []string) (ScanStats, error) {
	start := time.Now()

	paths := make(chan string)
	var walkErr error
	go func() {
		defer close(paths)
		for _, root := range roots {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					s.log.Warn("scan: skipping entry", zap.String("path", path), zap.Error(err))
					return nil
				}
				if d.IsDir() || !isAudioFile(path) {
					return nil
				}
				select {
				case paths <- path:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				walkErr = err
				return
			}
		}
	}()

	var (
		mu    sync.Mutex
		stats ScanStats
		wg    sync.WaitGroup
	)
	for range scanWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				added, size, err := s.ImportFile(ctx, path)
				mu.Lock()
				switch {
				case err != nil:
					stats.Failed++
				case added:
					stats.Added++
					stats.Bytes += uint64(size)
				default:
					stats.Duplicates++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if walkErr != nil {
		return stats, walkErr
	}

	s.log.Info("scan complete",
		zap.Int("added", stats.Added),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("failed", stats.Failed),
		zap.String("imported", humanize.IBytes(stats.Bytes)),
		zap.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// ImportFile ingests a single file and stores it. It reports whether a
// new library row was created and the file size in bytes.
func (s *Scanner) ImportFile(ctx context.Context, path string) (bool, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, err
	}

	res, err := s.pipeline.ProcessFile(ctx, path)
	if err != nil {
		s.log.Warn("import failed", zap.String("path", path), zap.Error(err))
		return false, 0, err
	}

	rec := recordFromResult(path, res)

	if res.Cover != nil && s.covers != nil {
		coverPath, err := s.covers.Put(res.Hash, res.Cover)
		if err != nil {
			s.log.Warn("cover cache write failed", zap.String("path", path), zap.Error(err))
		} else {
			rec.CoverPath = coverPath
		}
	}

	stored, added, err := s.store.AddTrack(rec)
	if err != nil {
		return false, 0, err
	}
	if !added {
		s.log.Debug("duplicate content",
			zap.String("path", path),
			zap.String("existing", stored.Path),
			zap.String("hash", res.Hash))
	}
	return added, info.Size(), nil
}

func recordFromResult(path string, res *ingest.Result) Record {
	rec := Record{
		Hash:  res.Hash,
		Path:  path,
		Title: titleFromPath(path),
	}
	m := res.Metadata
	if m == nil {
		return rec
	}
	if m.Title != "" {
		rec.Title = m.Title
	}
	rec.Artist = m.Artist
	rec.Album = m.Album
	rec.AlbumArtist = m.AlbumArtist
	rec.Genre = m.Genre
	rec.Year = m.Year
	rec.TrackNumber = m.TrackNumber
	rec.DiscNumber = m.DiscNumber
	rec.MIMEType = mimeForPath(path)
	return rec
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isAudioFile(path string) bool {
	return player.GuessFormat("", path) != player.FormatUnknown
}

func mimeForPath(path string) string {
	switch player.GuessFormat("", path) {
	case player.FormatMP3:
		return "audio/mpeg"
	case player.FormatFLAC:
		return "audio/flac"
	case player.FormatOGG:
		return "audio/ogg"
	case player.FormatWAV:
		return "audio/wav"
	default:
		return ""
	}
}
