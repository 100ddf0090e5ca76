package player

import (
	"time"

	"github.com/llehouerou/aria/internal/track"
)

// EventType identifies a player event.
type EventType int

const (
	EventPlay EventType = iota
	EventPause
	EventEnd
	EventLoad
	EventSeek
	EventVolume
	EventError
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnd:
		return "end"
	case EventLoad:
		return "load"
	case EventSeek:
		return "seek"
	case EventVolume:
		return "volume"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners together with a fresh state snapshot.
// Err is set for EventError only.
type Event struct {
	Type EventType
	Err  error
}

// State is a snapshot of the player. Position accounts for a pending
// seek: while the voice is still loading, the recorded seek target is
// reported instead of a stale zero.
type State struct {
	CurrentTrack *track.Track
	Playing      bool
	Loading      bool
	Position     time.Duration
	Duration     time.Duration
	Volume       float64
	Muted        bool
}

// Listener receives player events synchronously, in the order the state
// transitions occurred.
type Listener func(Event, State)
