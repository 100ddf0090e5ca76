// Package playback ties the single-voice player to the playing queue:
// transport verbs operate on both, and track endings advance the queue
// according to the active repeat mode.
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/player"
	"github.com/llehouerou/aria/internal/queue"
	"github.com/llehouerou/aria/internal/track"
)

// Listener receives change notifications. Callbacks run synchronously
// on the goroutine that caused the change and must not block.
type Listener func(Change)

// Service orchestrates the player and the queue.
//
// The mutex guards the queue only. Player calls are never made while
// it is held, so player callbacks may re-enter the service freely.
type Service struct {
	log    *zap.Logger
	player *player.Player

	mu    sync.Mutex
	queue *queue.Queue

	lmu       sync.Mutex
	listeners []serviceListener
	nextID    int

	unsubscribe func()
}

type serviceListener struct {
	id int
	fn Listener
}

func New(p *player.Player, q *queue.Queue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		log:    log,
		player: p,
		queue:  q,
	}
	s.unsubscribe = p.Subscribe(s.onPlayerEvent)
	return s
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Service) Subscribe(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, serviceListener{id: id, fn: fn})
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Service) notify(c Change) {
	s.lmu.Lock()
	fns := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		fns[i] = l.fn
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Play resumes the paused track, or starts the queue's current track
// when nothing is loaded.
func (s *Service) Play() {
	if s.player.CurrentTrack() != nil {
		s.player.Resume()
		return
	}

	s.mu.Lock()
	cur := s.queue.Current()
	s.mu.Unlock()
	if cur == nil {
		return
	}
	s.player.Play(*cur)
}

// PlayTracks replaces the queue with the given tracks and starts
// playback at startIndex.
func (s *Service) PlayTracks(tracks []track.Track, startIndex int) {
	s.mu.Lock()
	s.queue.SetQueue(tracks, startIndex)
	cur := s.queue.Current()
	s.mu.Unlock()

	s.notify(ChangeQueue)
	if cur != nil {
		s.player.Play(*cur)
	}
}

func (s *Service) Pause() {
	s.player.Pause()
}

func (s *Service) Toggle() {
	if s.player.IsPlaying() {
		s.player.Pause()
		return
	}
	s.Play()
}

// Stop halts playback. The queue position is kept.
func (s *Service) Stop() {
	s.player.Stop()
	s.notify(ChangePlayback)
}

// Next advances the queue and plays the resulting track. At the end of
// the queue with repeat off this is a no-op.
func (s *Service) Next() {
	s.mu.Lock()
	t := s.queue.Next()
	s.mu.Unlock()
	if t == nil {
		return
	}
	s.player.Play(*t)
}

// Previous steps the queue backwards and plays the resulting track.
func (s *Service) Previous() {
	s.mu.Lock()
	t := s.queue.Previous()
	s.mu.Unlock()
	if t == nil {
		return
	}
	s.player.Play(*t)
}

// JumpTo starts playback of the queued track with the given id.
// Unknown ids are ignored.
func (s *Service) JumpTo(id string) {
	s.mu.Lock()
	t := s.queue.JumpTo(id)
	s.mu.Unlock()
	if t == nil {
		return
	}
	s.notify(ChangeQueue)
	s.player.Play(*t)
}

// Seek moves the position by delta, clamped to the track bounds.
func (s *Service) Seek(delta time.Duration) {
	st := s.player.State()
	s.SeekTo(st.Position + delta)
}

// SeekTo moves the position to pos, clamped to the track bounds.
func (s *Service) SeekTo(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	if d := s.player.State().Duration; d > 0 && pos > d {
		pos = d
	}
	s.player.Seek(pos)
}

// Enqueue appends tracks to the end of the queue.
func (s *Service) Enqueue(tracks ...track.Track) {
	s.mu.Lock()
	for _, t := range tracks {
		s.queue.AddTrack(t)
	}
	s.mu.Unlock()
	s.notify(ChangeQueue)
}

// EnqueueAt inserts a track at the given queue position.
func (s *Service) EnqueueAt(t track.Track, position int) {
	s.mu.Lock()
	s.queue.AddTrackAt(t, position)
	s.mu.Unlock()
	s.notify(ChangeQueue)
}

// RemoveTrack removes the track with the given id from the queue. If
// the removed track was playing, playback moves to the track that took
// its place, or stops when the queue ran out.
func (s *Service) RemoveTrack(id string) {
	s.mu.Lock()
	cur := s.queue.Current()
	wasCurrent := cur != nil && cur.ID == id
	s.queue.RemoveTrack(id)
	replacement := s.queue.Current()
	s.mu.Unlock()

	s.notify(ChangeQueue)
	if !wasCurrent || !s.player.IsPlaying() {
		return
	}
	if replacement != nil {
		s.player.Play(*replacement)
	} else {
		s.player.Stop()
		s.notify(ChangePlayback)
	}
}

// ClearQueue drops all tracks and stops playback.
func (s *Service) ClearQueue() {
	s.mu.Lock()
	s.queue.Clear()
	s.mu.Unlock()

	s.notify(ChangeQueue)
	s.player.Stop()
	s.notify(ChangePlayback)
}

// Status derives the transport state from the player snapshot.
func (s *Service) Status() Status {
	st := s.player.State()
	switch {
	case st.CurrentTrack == nil:
		return StateStopped
	case st.Playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (s *Service) Position() time.Duration {
	return s.player.State().Position
}

func (s *Service) Duration() time.Duration {
	return s.player.State().Duration
}

func (s *Service) CurrentTrack() *track.Track {
	return s.player.CurrentTrack()
}

func (s *Service) PlayerState() player.State {
	return s.player.State()
}

// QueueState returns a defensive snapshot of the queue.
func (s *Service) QueueState() queue.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.State()
}

func (s *Service) QueueIsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.IsEmpty()
}

func (s *Service) QueueHasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PeekNext() != nil
}

func (s *Service) QueueHasPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PeekPrevious() != nil
}

func (s *Service) RepeatMode() queue.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RepeatMode()
}

func (s *Service) SetRepeatMode(mode queue.RepeatMode) {
	s.mu.Lock()
	s.queue.SetRepeatMode(mode)
	s.mu.Unlock()
	s.notify(ChangeMode)
}

func (s *Service) CycleRepeatMode() queue.RepeatMode {
	s.mu.Lock()
	mode := s.queue.CycleRepeatMode()
	s.mu.Unlock()
	s.notify(ChangeMode)
	return mode
}

func (s *Service) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

func (s *Service) SetShuffle(enabled bool) {
	s.mu.Lock()
	s.queue.SetShuffle(enabled)
	s.mu.Unlock()
	s.notify(ChangeMode)
}

func (s *Service) ToggleShuffle() bool {
	s.mu.Lock()
	enabled := s.queue.ToggleShuffle()
	s.mu.Unlock()
	s.notify(ChangeMode)
	return enabled
}

func (s *Service) Volume() float64 {
	return s.player.Volume()
}

func (s *Service) SetVolume(v float64) {
	s.player.SetVolume(v)
}

func (s *Service) Muted() bool {
	return s.player.Muted()
}

func (s *Service) SetMuted(muted bool) {
	s.player.SetMuted(muted)
}

// Close detaches from the player. The player itself is owned by the
// caller and closed separately.
func (s *Service) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.lmu.Lock()
	s.listeners = nil
	s.lmu.Unlock()
	return nil
}

func (s *Service) onPlayerEvent(ev player.Event, _ player.State) {
	switch ev.Type {
	case player.EventEnd:
		s.advance()
		s.notify(ChangePlayback)
	case player.EventPlay, player.EventPause, player.EventLoad:
		s.notify(ChangePlayback)
	case player.EventSeek:
		s.notify(ChangePosition)
	case player.EventVolume:
		s.notify(ChangeVolume)
	case player.EventError:
		s.notify(ChangeError)
	}
}

// advance moves the queue forward after a track finished. With repeat
// one the queue hands back the same track, which restarts it.
func (s *Service) advance() {
	s.mu.Lock()
	t := s.queue.Next()
	s.mu.Unlock()
	if t == nil {
		s.log.Debug("queue exhausted, playback stops")
		return
	}
	s.player.Play(*t)
}
