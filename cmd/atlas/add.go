package main

import (
	"github.com/spf13/cobra"

	"atlas/internal/atlas"
)

var (
	addSlug     string
	addRepo     string
	addAlso     []string
	addSummary  string
	addForce    bool
	addNoDetect bool
	addJSON     bool
)

var addCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project",
	Long: `Register the project at path (default: the current directory).

The slug defaults to the directory name. When the project has no atlas.yaml,
one is created from --summary and whatever can be detected from go.mod,
package.json, Cargo.toml, pyproject.toml, the README and the git remote.

Examples:
  atlas add
  atlas add ~/dev/collector --summary "Event ingestion service"
  atlas add . --slug web --also ~/dev/web-assets --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addSlug, "slug", "", "Project slug (default: slugified directory name)")
	addCmd.Flags().StringVar(&addRepo, "repo", "", "Repository URL (default: the origin remote)")
	addCmd.Flags().StringArrayVar(&addAlso, "also", nil, "Additional path that belongs to the project (repeatable)")
	addCmd.Flags().StringVar(&addSummary, "summary", "", "One-line summary for a new atlas.yaml")
	addCmd.Flags().BoolVar(&addForce, "force", false, "Replace an existing registration of the same slug")
	addCmd.Flags().BoolVar(&addNoDetect, "no-detect", false, "Skip metadata detection")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Add(atlas.AddOptions{
		Path:     optionalArg(args, 0),
		Slug:     addSlug,
		Repo:     addRepo,
		Also:     addAlso,
		Summary:  addSummary,
		Force:    addForce,
		NoDetect: addNoDetect,
	})
	if err != nil {
		return err
	}
	return printResponse(cmd, res, addJSON)
}
