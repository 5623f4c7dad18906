package main

import (
	"github.com/spf13/cobra"
)

var (
	showEnrich bool
	showJSON   bool
)

var showCmd = &cobra.Command{
	Use:   "show [slug]",
	Short: "Show a project's full cached metadata",
	Long: `Show the registry entry and cached atlas.yaml of a project.

Without a slug the project is taken from --project, $ATLAS_PROJECT, or the
current directory. --enrich adds data contributed by providers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showEnrich, "enrich", false, "Include provider data")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	slug, err := s.target(optionalArg(args, 0))
	if err != nil {
		return err
	}
	view, err := s.engine.Show(slug, showEnrich)
	if err != nil {
		return err
	}
	return printResponse(cmd, view, showJSON)
}
