package main

import (
	"github.com/spf13/cobra"
)

var refreshJSON bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [slug]",
	Short: "Re-read atlas.yaml into the cache",
	Long: `Refresh the cache entry of one project, or of every registered project when
no slug or --project is given. A full refresh also prunes cache entries of
projects that are no longer registered. Problems with one project never stop
the others.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	slug := optionalArg(args, 0)
	if slug == "" {
		slug = projectFlag
	}
	if slug == "" {
		return printResponse(cmd, s.engine.RefreshAll(), refreshJSON)
	}

	out, err := s.engine.Refresh(slug)
	if err != nil {
		return err
	}
	return printResponse(cmd, out, refreshJSON)
}
