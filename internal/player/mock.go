package player

import "time"

// MockBackend is a test double for Backend. Voices it creates do nothing
// until the test drives their lifecycle explicitly via FinishLoad,
// FailLoad, FailPlay and FinishTrack.
type MockBackend struct {
	contextRunning bool
	resumeErr      error
	resumeCalls    int
	voices         []*MockVoice
}

// NewMockBackend creates a mock backend with a running audio context.
func NewMockBackend() *MockBackend {
	return &MockBackend{contextRunning: true}
}

func (b *MockBackend) NewVoice(cfg VoiceConfig) Voice {
	v := &MockVoice{cfg: cfg, state: VoiceLoading}
	b.voices = append(b.voices, v)
	return v
}

func (b *MockBackend) ContextRunning() bool { return b.contextRunning }

func (b *MockBackend) ResumeContext() error {
	b.resumeCalls++
	if b.resumeErr == nil {
		b.contextRunning = true
	}
	return b.resumeErr
}

// Test helpers

func (b *MockBackend) SetContextRunning(running bool) { b.contextRunning = running }

func (b *MockBackend) SetResumeError(err error) { b.resumeErr = err }

func (b *MockBackend) ResumeCalls() int { return b.resumeCalls }

// Voices returns every voice created so far, in construction order.
func (b *MockBackend) Voices() []*MockVoice { return b.voices }

// LastVoice returns the most recently created voice, or nil.
func (b *MockBackend) LastVoice() *MockVoice {
	if len(b.voices) == 0 {
		return nil
	}
	return b.voices[len(b.voices)-1]
}

// MockVoice is a controllable playback primitive.
type MockVoice struct {
	cfg      VoiceConfig
	state    VoiceState
	playing  bool
	unloaded bool
	position time.Duration
	duration time.Duration

	playCalls   int
	seekTargets []time.Duration
}

func (v *MockVoice) Play() {
	v.playCalls++
	if v.unloaded {
		return
	}
	v.playing = true
	if cb := v.cfg.Callbacks.OnPlay; cb != nil {
		cb()
	}
}

func (v *MockVoice) Pause() {
	if v.unloaded || !v.playing {
		return
	}
	v.playing = false
	if cb := v.cfg.Callbacks.OnPause; cb != nil {
		cb()
	}
}

func (v *MockVoice) Stop() {
	if v.unloaded {
		return
	}
	v.playing = false
	v.position = 0
	if cb := v.cfg.Callbacks.OnStop; cb != nil {
		cb()
	}
}

func (v *MockVoice) Unload() {
	v.unloaded = true
	v.playing = false
	v.state = VoiceUnloaded
}

func (v *MockVoice) Seek(pos time.Duration) {
	v.seekTargets = append(v.seekTargets, pos)
	v.position = pos
}

func (v *MockVoice) Position() time.Duration { return v.position }

func (v *MockVoice) Duration() time.Duration { return v.duration }

func (v *MockVoice) SetVolume(float64) {}

func (v *MockVoice) SetMuted(bool) {}

func (v *MockVoice) State() VoiceState { return v.state }

func (v *MockVoice) Playing() bool { return v.playing }

// Test helpers

// Config returns the configuration the voice was created with.
func (v *MockVoice) Config() VoiceConfig { return v.cfg }

// Unloaded reports whether Unload was called.
func (v *MockVoice) IsUnloaded() bool { return v.unloaded }

// PlayCalls returns the number of Play invocations.
func (v *MockVoice) PlayCalls() int { return v.playCalls }

// SeekTargets returns every seek applied to the voice.
func (v *MockVoice) SeekTargets() []time.Duration { return v.seekTargets }

// SetDuration sets the duration reported once loaded.
func (v *MockVoice) SetDuration(d time.Duration) { v.duration = d }

// FinishLoad marks the voice loaded and fires the load callback, then
// the play callback when the voice was created with autoplay.
func (v *MockVoice) FinishLoad() {
	if v.unloaded {
		return
	}
	v.state = VoiceLoaded
	if cb := v.cfg.Callbacks.OnLoad; cb != nil {
		cb()
	}
	if v.cfg.Autoplay {
		v.Play()
	}
}

// FailLoad fires the load-error callback.
func (v *MockVoice) FailLoad(err error) {
	if v.unloaded {
		return
	}
	if cb := v.cfg.Callbacks.OnLoadError; cb != nil {
		cb(err)
	}
}

// FailPlay fires the play-error callback.
func (v *MockVoice) FailPlay(err error) {
	if v.unloaded {
		return
	}
	if cb := v.cfg.Callbacks.OnPlayError; cb != nil {
		cb(err)
	}
}

// FinishTrack simulates the track playing to completion.
func (v *MockVoice) FinishTrack() {
	if v.unloaded || !v.playing {
		return
	}
	v.playing = false
	if cb := v.cfg.Callbacks.OnEnd; cb != nil {
		cb()
	}
}

// Compile-time interface checks.
var (
	_ Backend = (*MockBackend)(nil)
	_ Voice   = (*MockVoice)(nil)
)
