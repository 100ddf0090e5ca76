package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir...]",
	Short: "Import audio files into the library",
	Long: `Walk the given directories (or the configured library sources) and
import every supported audio file. Files whose bytes are already in
the library are recognized as duplicates and skipped.`,
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

		stats, err := a.scanner.Scan(ctx, roots)
		if err != nil {
			return err
		}

		fmt.Printf("added %d, duplicates %d, failed %d\n", stats.Added, stats.Duplicates, stats.Failed)
		return nil
	},
}
