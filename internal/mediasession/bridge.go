// Package mediasession mirrors playback state to the desktop media
// session so system-wide media keys and applets can drive the player.
// On Linux this speaks MPRIS over D-Bus; elsewhere it is a no-op.
package mediasession

import (
	"time"

	"github.com/llehouerou/aria/internal/playback"
	"github.com/llehouerou/aria/internal/queue"
	"github.com/llehouerou/aria/internal/track"
)

// DefaultSeekStep is applied when the session requests a skip without
// an explicit offset.
const DefaultSeekStep = 10 * time.Second

// Controller is the slice of the playback service the bridge drives.
type Controller interface {
	Play()
	Pause()
	Toggle()
	Stop()
	Next()
	Previous()
	Seek(delta time.Duration)
	SeekTo(pos time.Duration)

	Status() playback.Status
	Position() time.Duration
	Duration() time.Duration
	CurrentTrack() *track.Track

	QueueIsEmpty() bool
	QueueHasNext() bool
	QueueHasPrevious() bool

	RepeatMode() queue.RepeatMode
	SetRepeatMode(mode queue.RepeatMode)
	Shuffle() bool
	SetShuffle(enabled bool)

	Volume() float64
	SetVolume(v float64)
}

var _ Controller = (*playback.Service)(nil)

// ValidPosition reports whether an absolute position may be forwarded
// to the session. Positions are meaningless until the track duration
// is known, and out-of-range targets from stale session state are
// dropped rather than clamped.
func ValidPosition(pos, duration time.Duration) bool {
	if duration <= 0 {
		return false
	}
	return pos >= 0 && pos <= duration
}

// SeekOffset normalizes a requested relative skip: a zero offset falls
// back to the default step in the given direction, and a negative
// offset is ignored since the direction is already carried by backward.
func SeekOffset(offset time.Duration, backward bool) time.Duration {
	if offset < 0 {
		return 0
	}
	if offset == 0 {
		offset = DefaultSeekStep
	}
	if backward {
		offset = -offset
	}
	return offset
}
