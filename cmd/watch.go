package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/library"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Keep the library in sync with the filesystem",
	Long: `Scan the sources once, then watch them for changes. New or modified
audio files are imported after they settle, removed files are dropped
from the library. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp()
		if err != nil {
			return err
		}
		defer a.close()

		roots, err := a.sources(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := a.scanner.Scan(ctx, roots); err != nil {
			return err
		}

		watcher, err := library.NewWatcher(a.scanner, a.store, a.cfg.Watch.Debounce, a.log.Named("watcher"))
		if err != nil {
			return err
		}
		defer watcher.Close()

		a.log.Info("watching", zap.Strings("roots", roots))
		if err := watcher.Watch(ctx, roots); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
