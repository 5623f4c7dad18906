package main

import (
	"github.com/spf13/cobra"

	"atlas/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(cmd, &VersionResponseCLI{
			Version:   version.Version,
			Commit:    version.Commit,
			BuildDate: version.BuildDate,
		}, versionJSON)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(versionCmd)
}
