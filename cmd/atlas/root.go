package main

import (
	"github.com/spf13/cobra"

	"atlas/internal/version"
)

var (
	// projectFlag is the global --project slug
	projectFlag string
	verbosity   int
	quietFlag   bool
	// atlasHomeFlag overrides ATLAS_HOME
	atlasHomeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas - project registry for coding-agent sessions",
	Long: `Atlas keeps a central registry of local projects, resolves which project a
directory belongs to, and caches each project's self-declared metadata
(atlas.yaml) so a session can start with a compact index of every project.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("Atlas version {{.Version}}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&projectFlag, "project", "",
		"Project slug (default: $ATLAS_PROJECT, then the project containing the current directory)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logging")
	pf.StringVar(&atlasHomeFlag, "atlas-home", "", "Atlas home directory (default: $ATLAS_HOME or ~/.claude/atlas)")
}
