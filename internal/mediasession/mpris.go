//go:build linux

package mediasession

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/aria/internal/playback"
	"github.com/llehouerou/aria/internal/queue"
)

// Bridge exposes the playback service as an MPRIS player on the
// session bus.
type Bridge struct {
	server *server.Server
}

// New creates the bridge and starts serving on D-Bus in the
// background.
func New(c Controller) (*Bridge, error) {
	b := &Bridge{}
	b.server = server.NewServer("aria", &rootAdapter{}, &playerAdapter{controller: c})

	go func() {
		_ = b.server.Listen()
	}()

	return b, nil
}

// Close releases the D-Bus name.
func (b *Bridge) Close() error {
	return b.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Aria", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// optional loop and shuffle interfaces.
type playerAdapter struct {
	controller Controller
}

func (p *playerAdapter) Next() error {
	p.controller.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.controller.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	p.controller.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.controller.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.controller.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	p.controller.Play()
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.controller.Seek(time.Duration(offset) * time.Microsecond)
	return nil
}

// SetPosition drops targets that fall outside the current track, which
// happens when a desktop applet acts on stale metadata.
func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	pos := time.Duration(position) * time.Microsecond
	if !ValidPosition(pos, p.controller.Duration()) {
		return nil
	}
	p.controller.SeekTo(pos)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.controller.Status() {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	case playback.StateStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	t := p.controller.CurrentTrack()
	if t == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(t.ID)),
		Length:  types.Microseconds(t.Duration.Microseconds()),
		Title:   t.Title,
		Artist:  []string{t.Artist},
		Album:   t.Album,
	}
	if t.CoverURL != "" {
		meta.ArtUrl = t.CoverURL
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.controller.Volume(), nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	p.controller.SetVolume(v)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.controller.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.controller.QueueHasNext(), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.controller.QueueHasPrevious(), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return !p.controller.QueueIsEmpty(), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.controller.RepeatMode() {
	case queue.RepeatOne:
		return types.LoopStatusTrack, nil
	case queue.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case queue.RepeatOff:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.controller.SetRepeatMode(queue.RepeatOff)
	case types.LoopStatusTrack:
		p.controller.SetRepeatMode(queue.RepeatOne)
	case types.LoopStatusPlaylist:
		p.controller.SetRepeatMode(queue.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.controller.Shuffle(), nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.controller.SetShuffle(shuffle)
	return nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
