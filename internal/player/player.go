// Package player implements the single-voice audio player: a state
// machine over a playback backend that owns exactly one voice at a time,
// defers seeks until the voice is ready, and recovers from transient
// play failures with a single automatic retry.
package player

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/track"
)

// tickInterval is the cadence of position updates while playing.
const tickInterval = 100 * time.Millisecond

// Options configure a player.
type Options struct {
	Logger *zap.Logger
	// DevMode enables suppression of stale load errors produced by
	// development tooling reloads.
	DevMode bool
	// Volume is the initial volume; the zero value selects full volume.
	Volume float64
}

type listenerEntry struct {
	id int
	fn Listener
}

// Player owns one voice at a time and exposes transport controls.
//
// Event delivery is synchronous and strictly ordered relative to the
// state transition that caused it: the play event always precedes the
// first periodic seek tick. Listeners must not call back into the player
// from within a callback.
type Player struct {
	backend Backend
	log     *zap.Logger
	devMode bool

	mu             sync.Mutex
	voice          Voice
	current        *track.Track
	playing        bool
	loading        bool
	volume         float64
	muted          bool
	pendingSeek    time.Duration
	pendingSeekSet bool
	recovering     bool
	voicePlayed    bool // current voice was observed playing at least once
	tickStop       chan struct{}

	listeners  []listenerEntry
	nextListID int
}

// New creates a player on the given backend.
func New(backend Backend, opts Options) *Player {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	vol := opts.Volume
	if vol == 0 {
		vol = 1.0
	}
	return &Player{
		backend: backend,
		log:     log,
		devMode: opts.DevMode,
		volume:  clampVolume(vol),
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Subscribe registers a listener for player events and returns a handle
// that removes it.
func (p *Player) Subscribe(fn Listener) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextListID
	p.nextListID++
	p.listeners = append(p.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, e := range p.listeners {
			if e.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Play tears down any existing voice and starts playback of t. The old
// voice is destroyed even when t is the track already loaded, so event
// wiring is always fresh. Playback start is asynchronous and confirmed
// by the play event.
func (p *Player) Play(t track.Track) {
	p.startVoice(t, true)
}

// Prime loads t without starting playback, so the next track is ready
// while the previous one is still showing. If the audio context has not
// been activated yet no voice is constructed: the track is recorded as
// current and a load event is emitted, deferring the real load to the
// next Play.
func (p *Player) Prime(t track.Track) {
	if !p.backend.ContextRunning() {
		p.log.Debug("prime deferred, audio context not running",
			zap.String("track", t.ID))
		p.mu.Lock()
		tr := t
		old := p.voice
		p.voice = nil
		p.current = &tr
		p.playing = false
		p.loading = false
		p.voicePlayed = false
		p.pendingSeekSet = false
		p.stopTickLocked()
		p.mu.Unlock()
		teardown(old)
		p.emit(Event{Type: EventLoad})
		return
	}
	p.startVoice(t, false)
}

func (p *Player) startVoice(t track.Track, autoplay bool) {
	url := t.StreamURL()
	cfg := VoiceConfig{
		URL:      url,
		Format:   GuessFormat(t.MIMEType, url),
		Autoplay: autoplay,
		Callbacks: Callbacks{
			OnLoad:      p.handleLoad,
			OnPlay:      p.handlePlay,
			OnPause:     p.handlePause,
			OnEnd:       p.handleEnd,
			OnStop:      p.handleStop,
			OnLoadError: p.handleLoadError,
			OnPlayError: p.handlePlayError,
		},
	}

	p.mu.Lock()
	old := p.voice
	p.voice = nil
	tr := t
	p.current = &tr
	p.playing = false
	p.loading = true
	p.voicePlayed = false
	p.pendingSeekSet = false
	p.stopTickLocked()
	cfg.Volume = p.volume
	cfg.Muted = p.muted
	p.mu.Unlock()

	teardown(old)

	v := p.backend.NewVoice(cfg)
	p.mu.Lock()
	p.voice = v
	p.mu.Unlock()
}

func teardown(v Voice) {
	if v == nil {
		return
	}
	v.Stop()
	v.Unload()
}

// Pause pauses the current voice. No-op when nothing is loaded.
func (p *Player) Pause() {
	p.mu.Lock()
	v := p.voice
	p.mu.Unlock()
	if v == nil {
		return
	}
	v.Pause()
}

// Resume resumes playback. With no voice but a remembered current track
// (for instance after a deferred prime) it re-invokes Play.
func (p *Player) Resume() {
	p.mu.Lock()
	v := p.voice
	cur := p.current
	p.mu.Unlock()

	switch {
	case v != nil:
		v.Play()
	case cur != nil:
		p.Play(*cur)
	}
}

// Stop tears down the voice and clears the current track.
func (p *Player) Stop() {
	p.mu.Lock()
	old := p.voice
	p.voice = nil
	p.current = nil
	p.playing = false
	p.loading = false
	p.pendingSeekSet = false
	p.recovering = false
	p.stopTickLocked()
	p.mu.Unlock()
	teardown(old)
}

// Seek moves the playback position. If the voice is not loaded yet the
// target is recorded and applied as soon as the voice becomes ready;
// state snapshots report the recorded target in the meantime.
func (p *Player) Seek(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	p.mu.Lock()
	v := p.voice
	if v == nil || v.State() != VoiceLoaded {
		p.pendingSeek = pos
		p.pendingSeekSet = true
		p.mu.Unlock()
		p.emit(Event{Type: EventSeek})
		return
	}
	p.mu.Unlock()
	v.Seek(pos)
	p.emit(Event{Type: EventSeek})
}

// SetVolume sets the output volume, clamped to [0, 1]. Volume is global
// to the output, not per track.
func (p *Player) SetVolume(v float64) {
	v = clampVolume(v)
	p.mu.Lock()
	p.volume = v
	voice := p.voice
	p.mu.Unlock()
	if voice != nil {
		voice.SetVolume(v)
	}
	p.emit(Event{Type: EventVolume})
}

// SetMuted mutes or unmutes the output.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	voice := p.voice
	p.mu.Unlock()
	if voice != nil {
		voice.SetMuted(muted)
	}
	p.emit(Event{Type: EventVolume})
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Muted reports whether output is muted.
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// CurrentTrack returns the current track, or nil if none.
func (p *Player) CurrentTrack() *track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	t := *p.current
	return &t
}

// IsPlaying reports whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// State returns a snapshot of the player.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() State {
	st := State{
		Playing: p.playing,
		Loading: p.loading,
		Volume:  p.volume,
		Muted:   p.muted,
	}
	if p.current != nil {
		t := *p.current
		st.CurrentTrack = &t
		st.Duration = t.Duration
	}
	if v := p.voice; v != nil && v.State() == VoiceLoaded {
		st.Position = v.Position()
		if d := v.Duration(); d > 0 {
			st.Duration = d
		}
	} else if p.pendingSeekSet {
		st.Position = p.pendingSeek
	}
	return st
}

// Close stops playback and drops all listeners.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	p.listeners = nil
	p.mu.Unlock()
	return nil
}

// Voice callbacks. Handlers take the lock for state changes only; voice
// methods and listener delivery run unlocked.

func (p *Player) handleLoad() {
	p.mu.Lock()
	p.loading = false
	v := p.voice
	target, apply := p.pendingSeek, p.pendingSeekSet
	if apply {
		p.pendingSeekSet = false
	}
	p.mu.Unlock()

	if apply && v != nil {
		v.Seek(target)
	}
	p.emit(Event{Type: EventLoad})
}

func (p *Player) handlePlay() {
	p.mu.Lock()
	p.playing = true
	p.loading = false
	p.recovering = false
	p.voicePlayed = true
	v := p.voice
	target, apply := p.pendingSeek, p.pendingSeekSet
	if apply {
		p.pendingSeekSet = false
	}
	p.mu.Unlock()

	if apply && v != nil {
		v.Seek(target)
	}
	p.emit(Event{Type: EventPlay})

	// Ticks start after the play event so listeners always see play
	// before the first periodic seek.
	p.mu.Lock()
	p.startTickLocked()
	p.mu.Unlock()
}

func (p *Player) handlePause() {
	p.mu.Lock()
	p.playing = false
	p.stopTickLocked()
	p.mu.Unlock()
	p.emit(Event{Type: EventPause})
}

func (p *Player) handleEnd() {
	p.mu.Lock()
	p.playing = false
	p.stopTickLocked()
	p.mu.Unlock()
	p.emit(Event{Type: EventEnd})
}

func (p *Player) handleStop() {
	p.mu.Lock()
	p.playing = false
	p.stopTickLocked()
	p.mu.Unlock()
}

// handleLoadError surfaces load failures. Load errors are never retried.
// In dev mode a load error with no current track on a voice that never
// played is suppressed as a stale artifact of tooling reloads.
func (p *Player) handleLoadError(err error) {
	p.mu.Lock()
	suppress := p.devMode && p.current == nil && !p.voicePlayed
	p.mu.Unlock()

	if suppress {
		p.log.Debug("suppressed stale load error", zap.Error(err))
		return
	}
	p.log.Error("load failed", zap.Error(err))
	p.emit(Event{Type: EventError, Err: err})
}

// handlePlayError runs the recovery protocol: classify the failure,
// resume the audio context if it is suspended, tear down the failed
// voice, and retry the same track exactly once. A second consecutive
// failure is terminal.
func (p *Player) handlePlayError(err error) {
	if IsActivationError(err) {
		p.log.Info("playback blocked until audio is activated", zap.Error(err))
	} else {
		p.log.Warn("playback start failed", zap.Error(err))
	}

	if !p.backend.ContextRunning() {
		if rerr := p.backend.ResumeContext(); rerr != nil {
			p.log.Debug("audio context resume failed", zap.Error(rerr))
		}
	}

	p.mu.Lock()
	old := p.voice
	p.voice = nil
	p.playing = false
	p.loading = false
	p.stopTickLocked()
	wasRecovering := p.recovering
	retry := !wasRecovering && p.current != nil
	p.recovering = retry
	var cur track.Track
	if p.current != nil {
		cur = *p.current
	}
	p.mu.Unlock()

	teardown(old)

	// The error is always surfaced, retry or not, so the UI can reflect
	// the attempt.
	p.emit(Event{Type: EventError, Err: err})

	switch {
	case retry:
		p.log.Info("retrying playback once", zap.String("track", cur.ID))
		p.Play(cur)
	case wasRecovering:
		p.log.Error("playback retry failed, giving up", zap.Error(err))
	}
}

// Position tick.

func (p *Player) startTickLocked() {
	if p.tickStop != nil || !p.playing {
		return
	}
	stop := make(chan struct{})
	p.tickStop = stop
	go p.tickLoop(stop)
}

func (p *Player) stopTickLocked() {
	if p.tickStop != nil {
		close(p.tickStop)
		p.tickStop = nil
	}
}

func (p *Player) tickLoop(stop <-chan struct{}) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !p.IsPlaying() {
				continue
			}
			p.emit(Event{Type: EventSeek})
		}
	}
}

// emit delivers ev with a fresh snapshot to all current listeners,
// synchronously and in subscription order.
func (p *Player) emit(ev Event) {
	p.mu.Lock()
	st := p.stateLocked()
	fns := lo.Map(p.listeners, func(e listenerEntry, _ int) Listener { return e.fn })
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev, st)
	}
}
