package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	atlaserrors "atlas/internal/errors"
)

var whichJSON bool

var whichCmd = &cobra.Command{
	Use:   "which [path]",
	Short: "Print the project a path belongs to",
	Long: `Resolve path (default: the current directory) to a registered project.

An exact match on a registered path wins over an ancestor; among ancestors
the deepest one wins. Two different projects matching equally is an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWhich,
}

func init() {
	whichCmd.Flags().BoolVar(&whichJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(whichCmd)
}

func runWhich(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	path := optionalArg(args, 0)
	if path == "" {
		if path, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	m, err := s.engine.Resolve(path)
	if err != nil {
		return err
	}
	if m == nil {
		return atlaserrors.NewUnresolvedError(path)
	}
	return printResponse(cmd, &WhichResponseCLI{
		Path:      path,
		Slug:      m.Slug,
		Kind:      m.Kind.String(),
		Candidate: m.Candidate,
	}, whichJSON)
}
