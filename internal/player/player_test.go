package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/llehouerou/aria/internal/track"
)

func testTrack(id string) track.Track {
	return track.Track{
		ID:       id,
		Title:    "Track " + id,
		AudioURL: "/api/songs/" + id + "/stream",
		MIMEType: "audio/mpeg",
	}
}

// eventRecorder captures delivered events. Guarded because the position
// ticker emits from its own goroutine.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	states []State
}

func (r *eventRecorder) listener() Listener {
	return func(e Event, s State) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		r.states = append(r.states, s)
	}
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func (r *eventRecorder) recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func indexOfType(types []EventType, want EventType) int {
	for i, tt := range types {
		if tt == want {
			return i
		}
	}
	return -1
}

func TestPlayer_Play_CreatesVoiceWithAutoplay(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Play(testTrack("a"))

	v := b.LastVoice()
	require.NotNil(t, v)
	assert.True(t, v.Config().Autoplay)
	assert.Equal(t, "/api/songs/a/stream", v.Config().URL)
	assert.Equal(t, FormatMP3, v.Config().Format)
	assert.True(t, p.State().Loading)
}

func TestPlayer_Play_PrefersResolvedURL(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	tr := testTrack("a")
	tr.ResolvedURL = "/cache/a.mp3"

	p.Play(tr)

	assert.Equal(t, "/cache/a.mp3", b.LastVoice().Config().URL)
}

func TestPlayer_Play_TearsDownPreviousVoice(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	tr := testTrack("a")

	p.Play(tr)
	first := b.LastVoice()
	first.FinishLoad()

	// Same track: the voice is still replaced for fresh event wiring.
	p.Play(tr)

	assert.True(t, first.IsUnloaded())
	assert.Len(t, b.Voices(), 2)
}

func TestPlayer_PlayEventAfterLoad(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	b.LastVoice().FinishLoad()

	require.Equal(t, []EventType{EventLoad, EventPlay}, rec.types())
	last := rec.lastState()
	assert.True(t, last.Playing)
	require.NotNil(t, last.CurrentTrack)
	assert.Equal(t, "a", last.CurrentTrack.ID)
}

func TestPlayer_PendingSeek_ReportedThenApplied(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Play(testTrack("a"))
	p.Seek(42 * time.Second)

	// Voice not loaded yet: the state reports the pending target so the
	// UI does not flash back to 0:00.
	assert.Equal(t, 42*time.Second, p.State().Position)

	v := b.LastVoice()
	v.FinishLoad()

	require.NotEmpty(t, v.SeekTargets())
	assert.Equal(t, 42*time.Second, v.SeekTargets()[0])
	assert.Equal(t, 42*time.Second, p.State().Position)
}

func TestPlayer_Seek_ImmediateWhenLoaded(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	p.Play(testTrack("a"))
	v := b.LastVoice()
	v.FinishLoad()

	p.Seek(10 * time.Second)

	assert.Contains(t, v.SeekTargets(), 10*time.Second)
}

func TestPlayer_Seek_ClampsNegative(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Play(testTrack("a"))
	p.Seek(-5 * time.Second)

	assert.Equal(t, time.Duration(0), p.State().Position)
}

func TestPlayer_Prime_DeferredWithoutContext(t *testing.T) {
	b := NewMockBackend()
	b.SetContextRunning(false)
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Prime(testTrack("a"))

	// No voice was constructed, but the track is current and a load
	// notification went out.
	assert.Empty(t, b.Voices())
	require.NotNil(t, p.CurrentTrack())
	assert.Equal(t, "a", p.CurrentTrack().ID)
	assert.Equal(t, []EventType{EventLoad}, rec.types())
}

func TestPlayer_Prime_LoadsWithoutPlaying(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Prime(testTrack("a"))
	v := b.LastVoice()
	require.NotNil(t, v)
	assert.False(t, v.Config().Autoplay)

	v.FinishLoad()
	assert.False(t, p.IsPlaying())
}

func TestPlayer_Resume_ReinvokesPlayAfterDeferredPrime(t *testing.T) {
	b := NewMockBackend()
	b.SetContextRunning(false)
	p := New(b, Options{})

	p.Prime(testTrack("a"))
	b.SetContextRunning(true)
	p.Resume()

	v := b.LastVoice()
	require.NotNil(t, v)
	assert.True(t, v.Config().Autoplay)
}

func TestPlayer_PauseResume_NoVoiceNoTrack(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	// Both are no-ops without a voice and without a remembered track.
	p.Pause()
	p.Resume()

	assert.Empty(t, b.Voices())
	assert.False(t, p.IsPlaying())
}

func TestPlayer_Stop_ClearsCurrentTrack(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	p.Play(testTrack("a"))
	v := b.LastVoice()
	v.FinishLoad()

	p.Stop()

	assert.Nil(t, p.CurrentTrack())
	assert.True(t, v.IsUnloaded())
	assert.False(t, p.IsPlaying())
}

func TestPlayer_VolumeClamped(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.SetVolume(1.7)
	assert.Equal(t, 1.0, p.State().Volume)

	p.SetVolume(-0.3)
	assert.Equal(t, 0.0, p.State().Volume)
}

func TestPlayer_VolumeEventEmitted(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.SetVolume(0.5)
	p.SetMuted(true)

	assert.Equal(t, []EventType{EventVolume, EventVolume}, rec.types())
	assert.True(t, rec.lastState().Muted)
}

func TestPlayer_PlayError_RetriesExactlyOnce(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	first := b.LastVoice()
	first.FailPlay(errors.New("decoder exploded"))

	// The failed voice is gone and a fresh one was created for the same
	// track.
	assert.True(t, first.IsUnloaded())
	require.Len(t, b.Voices(), 2)
	second := b.LastVoice()
	assert.Equal(t, first.Config().URL, second.Config().URL)

	// Second consecutive failure: no third attempt.
	second.FailPlay(errors.New("decoder exploded again"))
	assert.Len(t, b.Voices(), 2)

	// Both failures surfaced to subscribers.
	errorCount := 0
	for _, e := range rec.recorded() {
		if e.Type == EventError {
			errorCount++
			assert.Error(t, e.Err)
		}
	}
	assert.Equal(t, 2, errorCount)
}

func TestPlayer_PlayError_RecoveryClearedBySuccess(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Play(testTrack("a"))
	b.LastVoice().FailPlay(errors.New("transient"))
	require.Len(t, b.Voices(), 2)

	// The retry succeeds, so a later failure gets a fresh retry budget.
	b.LastVoice().FinishLoad()
	assert.True(t, p.IsPlaying())

	b.LastVoice().FailPlay(errors.New("transient again"))
	assert.Len(t, b.Voices(), 3)
}

func TestPlayer_PlayError_ResumesSuspendedContext(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})

	p.Play(testTrack("a"))
	b.SetContextRunning(false)
	b.LastVoice().FailPlay(ErrContextSuspended)

	assert.Equal(t, 1, b.ResumeCalls())
}

func TestPlayer_PlayError_SeverityByClassification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	b := NewMockBackend()
	p := New(b, Options{Logger: zap.New(core)})

	p.Play(testTrack("a"))
	b.LastVoice().FailPlay(ErrContextSuspended)

	// Activation rejections are expected and log at info; the retry
	// failing with a real error logs warn.
	b.LastVoice().FailPlay(errors.New("device gone"))

	var infoSeen, warnSeen bool
	for _, entry := range logs.All() {
		switch entry.Level {
		case zap.InfoLevel:
			if entry.Message == "playback blocked until audio is activated" {
				infoSeen = true
			}
		case zap.WarnLevel:
			if entry.Message == "playback start failed" {
				warnSeen = true
			}
		}
	}
	assert.True(t, infoSeen, "activation rejection should log at info")
	assert.True(t, warnSeen, "genuine failure should log at warn")
}

func TestPlayer_LoadError_Surfaced(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	b.LastVoice().FailLoad(errors.New("404"))

	require.Equal(t, []EventType{EventError}, rec.types())
	// Load errors are not retried.
	assert.Len(t, b.Voices(), 1)
}

func TestPlayer_LoadError_DevModeSuppression(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{DevMode: true})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	// A voice with no current track that never played: the stale
	// artifact shape that dev tooling reloads produce.
	v := b.NewVoice(VoiceConfig{Callbacks: Callbacks{
		OnLoadError: p.handleLoadError,
	}}).(*MockVoice)
	v.FailLoad(errors.New("stale reference"))

	assert.Empty(t, rec.recorded())
}

func TestPlayer_LoadError_NotSuppressedWithCurrentTrack(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{DevMode: true})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	b.LastVoice().FailLoad(errors.New("genuine failure"))

	events := rec.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestPlayer_EndEventEmitted(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	v := b.LastVoice()
	v.FinishLoad()
	v.FinishTrack()

	assert.Equal(t, []EventType{EventLoad, EventPlay, EventEnd}, rec.types())
	assert.False(t, p.IsPlaying())
}

func TestPlayer_Tick_SeekEventsStartAfterPlay(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	defer p.Close()
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	b.LastVoice().FinishLoad()

	require.Eventually(t, func() bool {
		return indexOfType(rec.types(), EventSeek) >= 0
	}, time.Second, 10*time.Millisecond, "no position tick while playing")

	types := rec.types()
	playIdx := indexOfType(types, EventPlay)
	seekIdx := indexOfType(types, EventSeek)
	require.GreaterOrEqual(t, playIdx, 0)
	assert.Greater(t, seekIdx, playIdx, "position tick before the play event")
}

func TestPlayer_Tick_StopsOnPause(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	defer p.Close()
	rec := &eventRecorder{}
	p.Subscribe(rec.listener())

	p.Play(testTrack("a"))
	b.LastVoice().FinishLoad()
	p.Pause()

	// Let any tick already in flight land before taking the baseline.
	time.Sleep(2 * tickInterval)
	baseline := len(rec.types())
	time.Sleep(3 * tickInterval)

	assert.Equal(t, baseline, len(rec.types()))
}

func TestPlayer_Unsubscribe(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	rec := &eventRecorder{}
	unsub := p.Subscribe(rec.listener())

	p.SetVolume(0.5)
	unsub()
	p.SetVolume(0.6)

	assert.Len(t, rec.recorded(), 1)
}

func TestPlayer_StateDuration_FallsBackToTrackMetadata(t *testing.T) {
	b := NewMockBackend()
	p := New(b, Options{})
	tr := testTrack("a")
	tr.Duration = 3 * time.Minute

	p.Play(tr)

	// Voice not loaded yet: duration comes from the track metadata.
	assert.Equal(t, 3*time.Minute, p.State().Duration)
}
