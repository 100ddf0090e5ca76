// Package cmd implements the aria command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/aria/internal/config"
	"github.com/llehouerou/aria/internal/ingest"
	"github.com/llehouerou/aria/internal/library"
	"github.com/llehouerou/aria/internal/logger"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also log to stderr")
}

var rootCmd = &cobra.Command{
	Use:   "aria",
	Short: "A music library and player",
	Long: `aria maintains a content-addressed music library and plays it.

Tracks are identified by the hash of their audio bytes, so renaming or
moving files never creates duplicates. The library is kept in sync with
the filesystem either by explicit scans or by watching the sources.`,
	SilenceUsage: true,
}

// Execute is the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *library.Store
	covers  *library.CoverCache
	scanner *library.Scanner
}

func setupApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log, verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := library.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}

	covers, err := library.NewCoverCache(cfg.CacheDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open cover cache: %w", err)
	}

	pipeline := ingest.New(log.Named("ingest"))
	scanner := library.NewScanner(store, pipeline, covers, log.Named("scanner"))

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		covers:  covers,
		scanner: scanner,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.log.Sync()
}

// sources resolves the directories a command operates on: explicit
// arguments win over the configured library sources.
func (a *app) sources(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.cfg.LibrarySources) == 0 {
		return nil, fmt.Errorf("no library sources configured and none given")
	}
	return a.cfg.LibrarySources, nil
}
