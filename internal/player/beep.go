package player

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"
)

// BeepBackend plays voices through the beep speaker. The speaker is
// initialized lazily on the first play, which is the closest analog of a
// browser audio context that starts suspended: ContextRunning reports
// false until then, so priming is deferred exactly like in a fresh page.
type BeepBackend struct {
	log *zap.Logger

	mu          sync.Mutex
	initialized bool
	suspended   bool
	sampleRate  beep.SampleRate
}

// NewBeepBackend creates a backend on the default audio output.
func NewBeepBackend(log *zap.Logger) *BeepBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &BeepBackend{log: log}
}

func (b *BeepBackend) ContextRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized && !b.suspended
}

func (b *BeepBackend) ResumeContext() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		// Nothing to resume; the speaker starts with the first voice.
		return nil
	}
	if b.suspended {
		if err := speaker.Resume(); err != nil {
			return fmt.Errorf("resume speaker: %w", err)
		}
		b.suspended = false
	}
	return nil
}

// SuspendContext pauses the audio device, e.g. before system sleep.
func (b *BeepBackend) SuspendContext() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized || b.suspended {
		return nil
	}
	if err := speaker.Suspend(); err != nil {
		return fmt.Errorf("suspend speaker: %w", err)
	}
	b.suspended = true
	return nil
}

// activate makes sure the speaker is running, initializing it from the
// first track's sample rate.
func (b *BeepBackend) activate(rate beep.SampleRate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
			return fmt.Errorf("init speaker: %w", err)
		}
		b.initialized = true
		b.sampleRate = rate
		return nil
	}
	if b.suspended {
		if err := speaker.Resume(); err != nil {
			return fmt.Errorf("resume speaker: %w", err)
		}
		b.suspended = false
	}
	return nil
}

func (b *BeepBackend) speakerRate() beep.SampleRate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sampleRate
}

func (b *BeepBackend) NewVoice(cfg VoiceConfig) Voice {
	v := &beepVoice{backend: b, cfg: cfg, state: VoiceLoading}
	go v.load()
	return v
}

var _ Backend = (*BeepBackend)(nil)

// beepVoice is one decoded stream on the speaker.
type beepVoice struct {
	backend *BeepBackend
	cfg     VoiceConfig

	// cbMu gates callback delivery: Unload holds it while marking the
	// voice dead, so no callback fires after Unload returns.
	cbMu     sync.Mutex
	unloaded bool

	mu       sync.Mutex
	state    VoiceState
	playing  bool
	started  bool // chain handed to the speaker
	wantPlay bool
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	cleanup  func()
}

func (v *beepVoice) load() {
	src, cleanup, err := openSource(v.cfg.URL)
	if err != nil {
		v.fireLoadError(err)
		return
	}

	streamer, format, err := decode(v.cfg.Format, src)
	if err != nil {
		cleanup()
		v.fireLoadError(err)
		return
	}

	v.mu.Lock()
	v.streamer = streamer
	v.format = format
	v.cleanup = cleanup
	v.state = VoiceLoaded
	autoplay := v.cfg.Autoplay || v.wantPlay
	v.mu.Unlock()

	v.fire(v.cfg.Callbacks.OnLoad)
	if autoplay {
		v.Play()
	}
}

func (v *beepVoice) fire(cb func()) {
	if cb == nil {
		return
	}
	v.cbMu.Lock()
	defer v.cbMu.Unlock()
	if v.unloaded {
		return
	}
	cb()
}

func (v *beepVoice) fireErr(cb func(error), err error) {
	if cb == nil {
		return
	}
	v.cbMu.Lock()
	defer v.cbMu.Unlock()
	if v.unloaded {
		return
	}
	cb(err)
}

func (v *beepVoice) fireLoadError(err error) {
	v.mu.Lock()
	v.state = VoiceUnloaded
	v.mu.Unlock()
	v.fireErr(v.cfg.Callbacks.OnLoadError, err)
}

func (v *beepVoice) Play() {
	v.mu.Lock()
	if v.state != VoiceLoaded {
		// Not ready yet: remember the intent, load completion honors it.
		v.wantPlay = true
		v.mu.Unlock()
		return
	}
	if v.playing {
		v.mu.Unlock()
		return
	}

	if !v.started {
		if err := v.backend.activate(v.format.SampleRate); err != nil {
			v.mu.Unlock()
			v.fireErr(v.cfg.Callbacks.OnPlayError, err)
			return
		}

		var streamer beep.Streamer = v.streamer
		if rate := v.backend.speakerRate(); rate != v.format.SampleRate {
			streamer = beep.Resample(4, v.format.SampleRate, rate, v.streamer)
		}
		v.ctrl = &beep.Ctrl{Streamer: streamer}
		v.volume = &effects.Volume{Streamer: v.ctrl, Base: 2}
		v.applyVolumeLocked()
		v.started = true
		v.playing = true
		chain := beep.Seq(v.volume, beep.Callback(v.handleDrained))
		v.mu.Unlock()

		speaker.Play(chain)
		v.fire(v.cfg.Callbacks.OnPlay)
		return
	}

	ctrl := v.ctrl
	v.playing = true
	v.mu.Unlock()

	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
	v.fire(v.cfg.Callbacks.OnPlay)
}

func (v *beepVoice) handleDrained() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
	v.fire(v.cfg.Callbacks.OnEnd)
}

func (v *beepVoice) Pause() {
	v.mu.Lock()
	ctrl := v.ctrl
	if !v.playing || ctrl == nil {
		v.mu.Unlock()
		return
	}
	v.playing = false
	v.mu.Unlock()

	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	v.fire(v.cfg.Callbacks.OnPause)
}

func (v *beepVoice) Stop() {
	v.mu.Lock()
	wasStarted := v.started
	v.playing = false
	v.wantPlay = false
	v.mu.Unlock()

	if wasStarted {
		speaker.Clear()
	}
	v.fire(v.cfg.Callbacks.OnStop)
}

func (v *beepVoice) Unload() {
	// Block until any in-flight callback completes, then silence the
	// voice for good.
	v.cbMu.Lock()
	v.unloaded = true
	v.cbMu.Unlock()

	v.mu.Lock()
	wasStarted := v.started
	streamer := v.streamer
	cleanup := v.cleanup
	v.streamer = nil
	v.cleanup = nil
	v.ctrl = nil
	v.volume = nil
	v.state = VoiceUnloaded
	v.playing = false
	v.started = false
	v.mu.Unlock()

	if wasStarted {
		speaker.Clear()
	}
	if streamer != nil {
		streamer.Close()
	}
	if cleanup != nil {
		cleanup()
	}
}

func (v *beepVoice) Seek(pos time.Duration) {
	v.mu.Lock()
	streamer := v.streamer
	format := v.format
	started := v.started
	v.mu.Unlock()
	if streamer == nil {
		return
	}

	length := streamer.Len()
	if length == 0 {
		return
	}
	n := format.SampleRate.N(pos)
	n = max(n, 0)
	if n >= length {
		n = length - 1
	}

	if started {
		speaker.Lock()
		defer speaker.Unlock()
	}
	if err := streamer.Seek(n); err != nil {
		v.backend.log.Warn("seek failed", zap.Error(err))
	}
}

func (v *beepVoice) Position() time.Duration {
	v.mu.Lock()
	streamer := v.streamer
	format := v.format
	v.mu.Unlock()
	if streamer == nil {
		return 0
	}
	return format.SampleRate.D(streamer.Position())
}

func (v *beepVoice) Duration() time.Duration {
	v.mu.Lock()
	streamer := v.streamer
	format := v.format
	v.mu.Unlock()
	if streamer == nil {
		return 0
	}
	return format.SampleRate.D(streamer.Len())
}

func (v *beepVoice) SetVolume(vol float64) {
	v.mu.Lock()
	v.cfg.Volume = vol
	started := v.started
	v.mu.Unlock()
	if !started {
		return
	}
	speaker.Lock()
	v.mu.Lock()
	v.applyVolumeLocked()
	v.mu.Unlock()
	speaker.Unlock()
}

func (v *beepVoice) SetMuted(muted bool) {
	v.mu.Lock()
	v.cfg.Muted = muted
	started := v.started
	v.mu.Unlock()
	if !started {
		return
	}
	speaker.Lock()
	v.mu.Lock()
	v.applyVolumeLocked()
	v.mu.Unlock()
	speaker.Unlock()
}

// applyVolumeLocked maps the linear [0,1] volume onto the exponential
// volume effect. Zero volume and mute both silence the chain.
func (v *beepVoice) applyVolumeLocked() {
	if v.volume == nil {
		return
	}
	if v.cfg.Muted || v.cfg.Volume <= 0 {
		v.volume.Silent = true
		return
	}
	v.volume.Silent = false
	v.volume.Volume = math.Log2(v.cfg.Volume)
}

func (v *beepVoice) State() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *beepVoice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

var _ Voice = (*beepVoice)(nil)

// decode picks a decoder for the guessed format. Auto-detect is not
// attempted: an unknown format is a load error the caller surfaces.
func decode(f Format, src io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch f {
	case FormatMP3:
		return mp3.Decode(src)
	case FormatFLAC:
		return flac.Decode(src)
	case FormatOGG:
		return vorbis.Decode(src)
	case FormatWAV:
		return wav.Decode(src)
	default:
		return nil, beep.Format{}, fmt.Errorf("cannot determine audio format for %q", f)
	}
}

// openSource opens a stream URL for decoding. Remote sources are spooled
// to a temporary file first, since decoders need to seek.
func openSource(url string) (io.ReadSeekCloser, func(), error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return spoolRemote(url)
	case strings.HasPrefix(url, "file://"):
		url = strings.TrimPrefix(url, "file://")
	}
	f, err := os.Open(url)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {}, nil
}

func spoolRemote(url string) (io.ReadSeekCloser, func(), error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "aria-stream-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return nil, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		cleanup()
		return nil, nil, err
	}
	return tmp, cleanup, nil
}
