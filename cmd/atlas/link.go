package main

import (
	"github.com/spf13/cobra"
)

var linkJSON bool

var linkCmd = &cobra.Command{
	Use:   "link <name> <url> [slug]",
	Short: "Add or replace a named link in a project's atlas.yaml",
	Long: `Record a link (CI, dashboard, tracker, ...) in the project's atlas.yaml and
refresh its cache entry. An existing link of the same name is replaced in place.

Examples:
  atlas link ci https://ci.example.com/web-sdk
  atlas link dashboard https://grafana.example.com/d/abc collector`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().BoolVar(&linkJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	slug, err := s.target(optionalArg(args, 2))
	if err != nil {
		return err
	}
	res, err := s.engine.Link(slug, args[0], args[1])
	if err != nil {
		return err
	}
	return printResponse(cmd, res, linkJSON)
}
