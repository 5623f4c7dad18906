package main

import (
	"github.com/spf13/cobra"
)

var removeJSON bool

var removeCmd = &cobra.Command{
	Use:     "remove <slug>",
	Aliases: []string{"rm"},
	Short:   "Unregister a project",
	Long:    "Remove a project from the registry and drop its cache entry. Files in the project are not touched.",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Remove(args[0])
	if err != nil {
		return err
	}
	return printResponse(cmd, res, removeJSON)
}
