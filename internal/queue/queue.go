// Package queue implements the play queue: an ordered track list with a
// current position, shuffle and repeat policy.
//
// All operations are synchronous and never panic on invalid input:
// not-found ids and out-of-range indices result in nil returns or no-ops.
// The queue assumes single-threaded, non-overlapping calls.
package queue

import (
	"math/rand"
	"time"

	"github.com/llehouerou/aria/internal/track"
)

// Queue holds the ordered list of tracks to play and the current position.
//
// Two orderings are kept: tracks (the current, possibly shuffled order) and
// original (the order tracks were supplied in), so shuffle can be toggled
// off without losing the caller's ordering. Both always contain the same
// multiset of track ids.
type Queue struct {
	tracks       []track.Track
	original     []track.Track
	currentIndex int // -1 if empty
	shuffle      bool
	repeat       RepeatMode
	rng          *rand.Rand
}

// New creates an empty queue with a time-seeded random source.
func New() *Queue {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates an empty queue using the given random source for
// shuffling. Tests pass a fixed seed for deterministic permutations.
func NewWithSource(src rand.Source) *Queue {
	return &Queue{
		currentIndex: -1,
		rng:          rand.New(src),
	}
}

// SetQueue replaces the queue contents with a copy of tracks and sets the
// current position to startIndex. Callers must supply a valid startIndex
// for a non-empty list; bounds are not validated here. If shuffle is
// enabled a new shuffle order is generated over the new list, keeping the
// track at startIndex current.
func (q *Queue) SetQueue(tracks []track.Track, startIndex int) {
	q.tracks = append([]track.Track(nil), tracks...)
	q.original = append([]track.Track(nil), tracks...)
	if len(tracks) == 0 {
		q.currentIndex = -1
		return
	}
	q.currentIndex = startIndex
	if q.shuffle {
		q.regenerateShuffle()
	}
}

// Restore replaces the queue with a previously captured snapshot. Both
// orderings, the position and the modes are taken as-is and no new
// shuffle permutation is generated, so a restored shuffled queue keeps
// the order it was saved with and disabling shuffle afterwards still
// recovers the saved original order.
func (q *Queue) Restore(snap Snapshot) {
	q.tracks = append([]track.Track(nil), snap.Tracks...)
	q.original = append([]track.Track(nil), snap.OriginalOrder...)
	if len(q.original) == 0 {
		q.original = append([]track.Track(nil), snap.Tracks...)
	}
	q.shuffle = snap.Shuffle
	q.repeat = snap.RepeatMode

	if len(q.tracks) == 0 {
		q.currentIndex = -1
		return
	}
	q.currentIndex = snap.CurrentIndex
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
	if q.currentIndex >= len(q.tracks) {
		q.currentIndex = len(q.tracks) - 1
	}
}

// AddTrack appends a track to the end of the queue.
func (q *Queue) AddTrack(t track.Track) {
	q.AddTrackAt(t, len(q.original))
}

// AddTrackAt inserts a track at the given position (clamped into range).
// If shuffle is active the whole shuffle order is regenerated; prior
// shuffle positions are not preserved.
func (q *Queue) AddTrackAt(t track.Track, position int) {
	if position < 0 {
		position = 0
	}
	if position > len(q.original) {
		position = len(q.original)
	}
	q.original = insertAt(q.original, t, position)

	if q.shuffle {
		q.regenerateShuffle()
		return
	}

	q.tracks = insertAt(q.tracks, t, position)
	if q.currentIndex < 0 {
		q.currentIndex = 0
	} else if position <= q.currentIndex {
		q.currentIndex++
	}
}

func insertAt(list []track.Track, t track.Track, pos int) []track.Track {
	list = append(list, track.Track{})
	copy(list[pos+1:], list[pos:])
	list[pos] = t
	return list
}

// RemoveTrack removes the first track with the given id from both
// orderings and adjusts the current position. No-op if the id is absent.
func (q *Queue) RemoveTrack(id string) {
	idx := indexOf(q.tracks, id)
	if idx < 0 {
		return
	}
	q.tracks = append(q.tracks[:idx], q.tracks[idx+1:]...)

	if orig := indexOf(q.original, id); orig >= 0 {
		q.original = append(q.original[:orig], q.original[orig+1:]...)
	}

	switch {
	case q.currentIndex > idx:
		q.currentIndex--
	case q.currentIndex == idx:
		// Current track removed: stay at the same index, which now points
		// at the next track, or clamp back if it was the last element.
		if q.currentIndex >= len(q.tracks) {
			q.currentIndex = len(q.tracks) - 1
		}
	}
}

func indexOf(list []track.Track, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Current returns the currently playing track, or nil if the queue is
// empty.
func (q *Queue) Current() *track.Track {
	if q.currentIndex < 0 || q.currentIndex >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.currentIndex]
	return &t
}

// PeekNext returns the track Next would yield without moving the current
// position.
func (q *Queue) PeekNext() *track.Track {
	_, t := q.nextIndex()
	return t
}

// PeekPrevious returns the track Previous would yield without moving the
// current position.
func (q *Queue) PeekPrevious() *track.Track {
	_, t := q.previousIndex()
	return t
}

// Next advances to the next track according to the repeat policy and
// returns the new current track.
//
//	RepeatOff: at the end, returns nil and the position is unchanged.
//	RepeatAll: wraps to the first track.
//	RepeatOne: always returns the current track without moving.
func (q *Queue) Next() *track.Track {
	idx, t := q.nextIndex()
	if t == nil {
		return nil
	}
	q.currentIndex = idx
	return t
}

// Previous moves to the previous track according to the repeat policy and
// returns the new current track. At the start, RepeatOff returns the
// current track without moving and RepeatAll wraps to the last track.
// RepeatOne does not apply to backwards navigation.
func (q *Queue) Previous() *track.Track {
	idx, t := q.previousIndex()
	if t == nil {
		return nil
	}
	q.currentIndex = idx
	return t
}

func (q *Queue) nextIndex() (int, *track.Track) {
	if len(q.tracks) == 0 || q.currentIndex < 0 {
		return -1, nil
	}
	if q.repeat == RepeatOne {
		return q.currentIndex, q.Current()
	}
	idx := q.currentIndex + 1
	if idx >= len(q.tracks) {
		if q.repeat != RepeatAll {
			return -1, nil
		}
		idx = 0
	}
	t := q.tracks[idx]
	return idx, &t
}

func (q *Queue) previousIndex() (int, *track.Track) {
	if len(q.tracks) == 0 || q.currentIndex < 0 {
		return -1, nil
	}
	idx := q.currentIndex - 1
	if idx < 0 {
		if q.repeat != RepeatAll {
			return q.currentIndex, q.Current()
		}
		idx = len(q.tracks) - 1
	}
	t := q.tracks[idx]
	return idx, &t
}

// JumpTo moves the current position to the track with the given id and
// returns it. Returns nil and leaves the queue unchanged if the id is
// absent.
func (q *Queue) JumpTo(id string) *track.Track {
	idx := indexOf(q.tracks, id)
	if idx < 0 {
		return nil
	}
	q.currentIndex = idx
	return q.Current()
}

// Shuffle reports whether shuffle is enabled.
func (q *Queue) Shuffle() bool { return q.shuffle }

// ToggleShuffle flips shuffle and returns the new setting.
func (q *Queue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffle)
	return q.shuffle
}

// SetShuffle enables or disables shuffle. Enabling generates a fresh
// random permutation of the original order; disabling restores it. In
// both directions the currently playing track stays current: the position
// is relocated by track id, never by index.
func (q *Queue) SetShuffle(enabled bool) {
	if q.shuffle == enabled {
		return
	}
	q.shuffle = enabled

	if enabled {
		q.regenerateShuffle()
		return
	}

	current := q.Current()
	q.tracks = append([]track.Track(nil), q.original...)
	q.relocate(current)
}

// regenerateShuffle applies a Fisher-Yates permutation of the original
// order to tracks, then relocates the current position to the previously
// current track.
func (q *Queue) regenerateShuffle() {
	current := q.Current()

	q.tracks = append([]track.Track(nil), q.original...)
	for i := len(q.tracks) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
	q.relocate(current)
}

// relocate points currentIndex at the given track by id, or clamps it
// into range if the track is gone.
func (q *Queue) relocate(current *track.Track) {
	if len(q.tracks) == 0 {
		q.currentIndex = -1
		return
	}
	if current != nil {
		if idx := indexOf(q.tracks, current.ID); idx >= 0 {
			q.currentIndex = idx
			return
		}
	}
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
	if q.currentIndex >= len(q.tracks) {
		q.currentIndex = len(q.tracks) - 1
	}
}

// RepeatMode returns the current repeat mode.
func (q *Queue) RepeatMode() RepeatMode { return q.repeat }

// SetRepeatMode sets the repeat mode.
func (q *Queue) SetRepeatMode(mode RepeatMode) { q.repeat = mode }

// CycleRepeatMode cycles Off -> All -> One -> Off and returns the new
// mode.
func (q *Queue) CycleRepeatMode() RepeatMode {
	switch q.repeat {
	case RepeatOff:
		q.repeat = RepeatAll
	case RepeatAll:
		q.repeat = RepeatOne
	case RepeatOne:
		q.repeat = RepeatOff
	}
	return q.repeat
}

// Clear empties the queue and resets the position.
func (q *Queue) Clear() {
	q.tracks = nil
	q.original = nil
	q.currentIndex = -1
}

// CurrentIndex returns the index of the current track (-1 if empty).
func (q *Queue) CurrentIndex() int { return q.currentIndex }

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int { return len(q.tracks) }

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool { return len(q.tracks) == 0 }

// Snapshot is a defensive copy of the queue state. Mutating its slices
// does not affect the queue.
type Snapshot struct {
	Tracks        []track.Track
	OriginalOrder []track.Track
	CurrentIndex  int
	Shuffle       bool
	RepeatMode    RepeatMode
}

// State returns a snapshot of the queue.
func (q *Queue) State() Snapshot {
	return Snapshot{
		Tracks:        append([]track.Track(nil), q.tracks...),
		OriginalOrder: append([]track.Track(nil), q.original...),
		CurrentIndex:  q.currentIndex,
		Shuffle:       q.shuffle,
		RepeatMode:    q.repeat,
	}
}
