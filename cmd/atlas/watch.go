package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"atlas/internal/cache"
)

var (
	watchDebounce time.Duration
	watchJSON     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-cache projects whenever their atlas.yaml changes",
	Long: `Watch every registered project's atlas.yaml and refresh its cache entry
after each change. Edits to the registry itself (projects added or removed by
other atlas commands) are picked up without a restart.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-caching (default from watch.debounce_ms)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.engine.Watch(ctx, watchDebounce, func(out *cache.Outcome) {
		if err := printResponse(cmd, out, watchJSON); err != nil {
			s.logger.Warn("Failed to print outcome", "slug", out.Slug, "error", err.Error())
		}
	})
}
