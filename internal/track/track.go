// Package track defines the playable track value shared by the queue,
// the player and the library store.
package track

import "time"

// Track describes one playable audio item and its stream locator.
// A Track is immutable once constructed; two tracks are the same logical
// song iff their IDs match.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	CoverURL string
	Duration time.Duration

	// AudioURL is the logical stream locator (e.g. /api/songs/{id}/stream
	// or a filesystem path). ResolvedURL, when set, is a locally cached or
	// pre-resolved playable location that overrides AudioURL.
	AudioURL    string
	MIMEType    string
	ResolvedURL string
}

// StreamURL returns the URL playback should use: the resolved location if
// the host supplied one, otherwise the logical locator.
func (t Track) StreamURL() string {
	if t.ResolvedURL != "" {
		return t.ResolvedURL
	}
	return t.AudioURL
}

// SameAs reports whether both tracks refer to the same logical song.
func (t Track) SameAs(other Track) bool {
	return t.ID == other.ID
}
