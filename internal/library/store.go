// Package library persists the music collection. Tracks are keyed by
// the hash of their audio bytes, so the same file imported twice, or
// under two names, stores exactly one row.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/aria/internal/queue"
	"github.com/llehouerou/aria/internal/track"
)

const dbFileName = "aria.db"

// Record is one library row.
type Record struct {
	Hash        string
	Path        string
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        int
	TrackNumber int
	DiscNumber  int
	Duration    time.Duration
	MIMEType    string
	CoverPath   string
	AddedAt     time.Time
}

// Track converts the record to a playable track. The hash doubles as
// the track id.
func (r Record) Track() track.Track {
	return track.Track{
		ID:       r.Hash,
		Title:    r.Title,
		Artist:   r.Artist,
		Album:    r.Album,
		CoverURL: r.CoverPath,
		Duration: r.Duration,
		AudioURL: r.Path,
		MIMEType: r.MIMEType,
	}
}

// Store is the sqlite-backed library.
type Store struct {
	db *sql.DB
}

// Open opens or creates the library database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, err
	}
	// Serialize writers; sqlite returns busy errors under a
	// connection pool.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			hash TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			album_artist TEXT NOT NULL DEFAULT '',
			genre TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			track_number INTEGER NOT NULL DEFAULT 0,
			disc_number INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT '',
			cover_path TEXT NOT NULL DEFAULT '',
			added_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_path ON tracks(path);
		CREATE INDEX IF NOT EXISTS idx_tracks_album_artist ON tracks(album_artist, album);

		CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_index INTEGER NOT NULL DEFAULT -1,
			repeat_mode INTEGER NOT NULL DEFAULT 0,
			shuffle INTEGER NOT NULL DEFAULT 0,
			volume REAL NOT NULL DEFAULT 1.0,
			muted INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS queue_tracks (
			position INTEGER PRIMARY KEY,
			hash TEXT NOT NULL REFERENCES tracks(hash),
			orig_position INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

// withTx executes fn within a transaction, rolling back on error.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AddTrack inserts the record unless a track with the same hash is
// already stored. It returns the stored record and whether a new row
// was created; on a duplicate the existing record wins and only its
// path is refreshed.
func (s *Store) AddTrack(rec Record) (Record, bool, error) {
	if rec.AddedAt.IsZero() {
		rec.AddedAt = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT INTO tracks (hash, path, title, artist, album, album_artist, genre,
			year, track_number, disc_number, duration_ms, mime_type, cover_path, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, rec.Hash, rec.Path, rec.Title, rec.Artist, rec.Album, rec.AlbumArtist, rec.Genre,
		rec.Year, rec.TrackNumber, rec.DiscNumber, rec.Duration.Milliseconds(),
		rec.MIMEType, rec.CoverPath, rec.AddedAt.Unix())
	if err != nil {
		return Record{}, false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return rec, true, nil
	}

	// Duplicate content: the stored row wins, only its path moves to
	// the latest location seen.
	if _, err := s.db.Exec(`UPDATE tracks SET path = ? WHERE hash = ?`, rec.Path, rec.Hash); err != nil {
		return Record{}, false, err
	}
	existing, err := s.TrackByHash(rec.Hash)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("library: not found")

const recordColumns = `hash, path, title, artist, album, album_artist, genre,
	year, track_number, disc_number, duration_ms, mime_type, cover_path, added_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	var durationMS, addedAt int64
	err := row.Scan(&rec.Hash, &rec.Path, &rec.Title, &rec.Artist, &rec.Album,
		&rec.AlbumArtist, &rec.Genre, &rec.Year, &rec.TrackNumber, &rec.DiscNumber,
		&durationMS, &rec.MIMEType, &rec.CoverPath, &addedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.AddedAt = time.Unix(addedAt, 0)
	return rec, nil
}

// TrackByHash returns the record with the given content hash.
func (s *Store) TrackByHash(hash string) (Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM tracks WHERE hash = ?`, hash)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// TrackByPath returns the record whose file path matches.
func (s *Store) TrackByPath(path string) (Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM tracks WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Tracks returns the whole library ordered for browsing.
func (s *Store) Tracks() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT ` + recordColumns + `
		FROM tracks
		ORDER BY album_artist, album, disc_number, track_number, title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RemoveByPath deletes the record stored for path. Removing a path
// that is not in the library is not an error.
func (s *Store) RemoveByPath(path string) error {
	return withTx(s.db, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT hash FROM tracks WHERE path = ?`, path)
		var hash string
		if err := row.Scan(&hash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if _, err := tx.Exec(`DELETE FROM queue_tracks WHERE hash = ?`, hash); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM tracks WHERE hash = ?`, hash)
		return err
	})
}

// SaveQueue persists the queue snapshot so playback resumes across
// restarts. Only hashes are stored, track data stays in the tracks
// table. Each row records the track's position in both orderings, so a
// shuffled queue comes back in its shuffled order and disabling shuffle
// after a restart still recovers the saved original order.
func (s *Store) SaveQueue(snap queue.Snapshot, volume float64, muted bool) error {
	return withTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM queue_tracks`); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO queue_state (id, current_index, repeat_mode, shuffle, volume, muted)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle,
				volume = excluded.volume,
				muted = excluded.muted
		`, snap.CurrentIndex, int(snap.RepeatMode), snap.Shuffle, volume, muted)
		if err != nil {
			return err
		}
		// Original positions by id, consumed front to back so duplicate
		// tracks map to distinct positions.
		origByID := make(map[string][]int, len(snap.OriginalOrder))
		for i, t := range snap.OriginalOrder {
			origByID[t.ID] = append(origByID[t.ID], i)
		}
		for i, t := range snap.Tracks {
			orig := i
			if positions := origByID[t.ID]; len(positions) > 0 {
				orig = positions[0]
				origByID[t.ID] = positions[1:]
			}
			if _, err := tx.Exec(`INSERT INTO queue_tracks (position, hash, orig_position) VALUES (?, ?, ?)`,
				i, t.ID, orig); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavedQueue is the persisted queue state. Tracks holds the playing
// order from the saved session, OriginalOrder the order before any
// shuffle.
type SavedQueue struct {
	Tracks        []track.Track
	OriginalOrder []track.Track
	CurrentIndex  int
	RepeatMode    queue.RepeatMode
	Shuffle       bool
	Volume        float64
	Muted         bool
}

// LoadQueue restores the persisted queue, or returns nil when no
// session has been saved yet. Hashes no longer in the library are
// skipped.
func (s *Store) LoadQueue() (*SavedQueue, error) {
	saved := &SavedQueue{CurrentIndex: -1}

	row := s.db.QueryRow(`SELECT current_index, repeat_mode, shuffle, volume, muted FROM queue_state WHERE id = 1`)
	var repeat int
	err := row.Scan(&saved.CurrentIndex, &repeat, &saved.Shuffle, &saved.Volume, &saved.Muted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	saved.RepeatMode = queue.RepeatMode(repeat)

	if saved.Tracks, err = s.queueTracks("q.position"); err != nil {
		return nil, err
	}
	if saved.OriginalOrder, err = s.queueTracks("q.orig_position"); err != nil {
		return nil, err
	}

	if saved.CurrentIndex >= len(saved.Tracks) {
		saved.CurrentIndex = len(saved.Tracks) - 1
	}
	return saved, nil
}

func (s *Store) queueTracks(orderBy string) ([]track.Track, error) {
	rows, err := s.db.Query(`
		SELECT t.hash, t.path, t.title, t.artist, t.album, t.album_artist, t.genre,
			t.year, t.track_number, t.disc_number, t.duration_ms, t.mime_type, t.cover_path, t.added_at
		FROM queue_tracks q JOIN tracks t ON t.hash = q.hash
		ORDER BY ` + orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []track.Track
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, rec.Track())
	}
	return tracks, rows.Err()
}

// Count returns the number of stored tracks.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}
