package main

import (
	"github.com/spf13/cobra"

	"atlas/internal/cache"
)

var (
	listGroup string
	listTag   string
	listQuery string
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Long: `List every registered project with its cached summary.

Filters combine: a project is shown only when it matches all of them. Group
and tag filters only match projects that have been cached.

Examples:
  atlas list
  atlas list --group backend
  atlas list --tag go --query collector`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listGroup, "group", "", "Only projects in this group")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only projects with this tag")
	listCmd.Flags().StringVar(&listQuery, "query", "", "Substring matched against slug, name and summary")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res := s.engine.List(cache.Filter{Group: listGroup, Tag: listTag, Query: listQuery})
	return printResponse(cmd, res, listJSON)
}
