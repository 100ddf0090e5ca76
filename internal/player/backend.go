package player

import (
	"errors"
	"strings"
	"time"
)

// ErrContextSuspended is reported by a backend when the output device
// refuses to start because audio has not been activated yet (the platform
// equivalent of a browser autoplay rejection). It is an expected,
// user-driven condition, not a playback fault.
var ErrContextSuspended = errors.New("audio context suspended")

// autoplayMessage is the activation-rejection wording used by backends
// that cannot wrap ErrContextSuspended directly.
const autoplayMessage = "not allowed to start"

// IsActivationError reports whether err is an audio activation rejection
// rather than a genuine playback failure.
func IsActivationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContextSuspended) {
		return true
	}
	return strings.Contains(err.Error(), autoplayMessage)
}

// VoiceState describes how far a voice has come in loading its source.
type VoiceState int

const (
	VoiceUnloaded VoiceState = iota
	VoiceLoading
	VoiceLoaded
)

// Callbacks are wired into a voice at construction time. The voice
// invokes them as its load/play lifecycle progresses. Voices load
// asynchronously: no callback fires from within Backend.NewVoice itself,
// and none fires after Unload returns.
type Callbacks struct {
	OnLoad      func()
	OnPlay      func()
	OnPause     func()
	OnEnd       func()
	OnStop      func()
	OnLoadError func(error)
	OnPlayError func(error)
}

// VoiceConfig configures a new voice.
type VoiceConfig struct {
	URL       string
	Format    Format // best guess; FormatUnknown means auto-detect
	Volume    float64
	Muted     bool
	Autoplay  bool // start playback as soon as the source is ready
	Callbacks Callbacks
}

// Voice is one loaded playback primitive. The player owns exactly one at
// a time and tears it down before creating the next.
type Voice interface {
	Play()
	Pause()
	Stop()
	// Unload releases all resources held by the voice. No callbacks fire
	// after Unload returns.
	Unload()

	Seek(pos time.Duration)
	Position() time.Duration
	Duration() time.Duration

	SetVolume(v float64)
	SetMuted(muted bool)

	State() VoiceState
	Playing() bool
}

// Backend creates voices on some audio output. Construction itself never
// fails; load and play failures are reported through the configured
// callbacks so the player's recovery protocol sees every failure the
// same way.
type Backend interface {
	NewVoice(cfg VoiceConfig) Voice

	// ContextRunning reports whether the audio output has been activated.
	ContextRunning() bool
	// ResumeContext attempts to (re)activate the audio output.
	ResumeContext() error
}
