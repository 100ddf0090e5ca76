package playback

// Status is the coarse transport state exposed to desktop integrations.
type Status int

const (
	StateStopped Status = iota
	StatePlaying
	StatePaused
)

func (s Status) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Change identifies which part of the playback state a notification
// refers to.
type Change int

const (
	// ChangePlayback covers transport transitions and track changes.
	ChangePlayback Change = iota
	// ChangePosition is the periodic position tick and explicit seeks.
	ChangePosition
	// ChangeVolume covers volume and mute.
	ChangeVolume
	// ChangeQueue covers queue content edits.
	ChangeQueue
	// ChangeMode covers shuffle and repeat toggles.
	ChangeMode
	// ChangeError reports playback failures.
	ChangeError
)
