package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/config"
	"github.com/llehouerou/aria/internal/mediasession"
	"github.com/llehouerou/aria/internal/playback"
	"github.com/llehouerou/aria/internal/player"
	"github.com/llehouerou/aria/internal/queue"
	"github.com/llehouerou/aria/internal/track"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [path...]",
	Short: "Play music from the library",
	Long: `Play the given files or directories, importing them first if needed.
Without arguments the queue from the previous session is restored, or
the whole library is queued.

The session is controlled from stdin:
  p        play/pause     n  next        b  previous
  f        seek forward   r  seek back   s  toggle shuffle
  m        cycle repeat   +  volume up   -  volume down
  i        now playing    q  quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		saved, err := a.store.LoadQueue()
		if err != nil {
			return err
		}

		q := queue.New()
		if len(args) == 0 && saved != nil && len(saved.Tracks) > 0 {
			// Resume the previous session: both orderings come back
			// as saved, without a fresh shuffle permutation.
			q.Restore(queue.Snapshot{
				Tracks:        saved.Tracks,
				OriginalOrder: saved.OriginalOrder,
				CurrentIndex:  saved.CurrentIndex,
				Shuffle:       saved.Shuffle,
				RepeatMode:    saved.RepeatMode,
			})
		} else {
			tracks, err := a.resolveTracks(cmd, args)
			if err != nil {
				return err
			}
			q.SetQueue(tracks, 0)
			if saved != nil {
				q.SetShuffle(saved.Shuffle)
				q.SetRepeatMode(saved.RepeatMode)
			}
		}
		if q.IsEmpty() {
			return fmt.Errorf("nothing to play")
		}

		volume, muted := a.cfg.DefaultVolume, false
		if saved != nil {
			volume, muted = saved.Volume, saved.Muted
		}

		backend := player.NewBeepBackend(a.log.Named("audio"))
		p := player.New(backend, player.Options{
			Logger:  a.log.Named("player"),
			DevMode: config.DevMode(),
			Volume:  volume,
		})
		defer p.Close()
		p.SetMuted(muted)

		svc := playback.New(p, q, a.log.Named("playback"))
		defer svc.Close()

		bridge, err := mediasession.New(svc)
		if err != nil {
			a.log.Warn("media session unavailable", zap.Error(err))
		} else {
			defer bridge.Close()
		}

		unsub := svc.Subscribe(func(c playback.Change) {
			if c != playback.ChangePlayback {
				return
			}
			if t := svc.CurrentTrack(); t != nil && svc.Status() == playback.StatePlaying {
				fmt.Printf("> %s - %s\n", t.Artist, t.Title)
			}
		})
		defer unsub()

		svc.Play()
		runControlLoop(ctx, svc)

		if err := a.store.SaveQueue(svc.QueueState(), svc.Volume(), svc.Muted()); err != nil {
			a.log.Warn("saving queue failed", zap.Error(err))
		}
		return nil
	},
}

// resolveTracks picks the tracks to queue: explicit paths win,
// otherwise the whole library is queued.
func (a *app) resolveTracks(cmd *cobra.Command, args []string) ([]track.Track, error) {
	if len(args) > 0 {
		return a.importArgs(cmd, args)
	}

	records, err := a.store.Tracks()
	if err != nil {
		return nil, err
	}
	tracks := make([]track.Track, len(records))
	for i, rec := range records {
		tracks[i] = rec.Track()
	}
	return tracks, nil
}

func (a *app) importArgs(cmd *cobra.Command, args []string) ([]track.Track, error) {
	var tracks []track.Track
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			if _, err := a.scanner.Scan(cmd.Context(), []string{arg}); err != nil {
				return nil, err
			}
			records, err := a.store.Tracks()
			if err != nil {
				return nil, err
			}
			for _, rec := range records {
				if underDir(rec.Path, arg) {
					tracks = append(tracks, rec.Track())
				}
			}
			continue
		}

		if _, _, err := a.scanner.ImportFile(cmd.Context(), arg); err != nil {
			return nil, err
		}
		rec, err := a.store.TrackByPath(arg)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, rec.Track())
	}
	return tracks, nil
}

// underDir reports whether path lies inside dir. A plain prefix check
// would also match siblings sharing a name prefix ("/music2" under
// "/music").
func underDir(path, dir string) bool {
	return strings.HasPrefix(path, filepath.Clean(dir)+string(os.PathSeparator))
}

func runControlLoop(ctx context.Context, svc *playback.Service) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "q":
				return
			case "", "p":
				svc.Toggle()
			case "n":
				svc.Next()
			case "b":
				svc.Previous()
			case "f":
				svc.Seek(mediasession.SeekOffset(0, false))
			case "r":
				svc.Seek(mediasession.SeekOffset(0, true))
			case "s":
				fmt.Printf("shuffle: %v\n", svc.ToggleShuffle())
			case "m":
				fmt.Printf("repeat: %s\n", svc.CycleRepeatMode())
			case "+":
				svc.SetVolume(svc.Volume() + 0.1)
			case "-":
				svc.SetVolume(svc.Volume() - 0.1)
			case "i":
				printNowPlaying(svc)
			}
		}
	}
}

func printNowPlaying(svc *playback.Service) {
	t := svc.CurrentTrack()
	if t == nil {
		fmt.Println("nothing playing")
		return
	}
	st := svc.PlayerState()
	fmt.Printf("%s - %s [%s] %s / %s\n",
		t.Artist, t.Title, svc.Status(),
		st.Position.Round(time.Second), st.Duration.Round(time.Second))
}
