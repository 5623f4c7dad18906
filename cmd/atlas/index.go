package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var indexCwd string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the compact project index for session start",
	Long: `Print one line per registered project with its cached summary, marking the
project that contains --cwd (default: the current directory) with "*".

Meant to be run by a session-start hook. It never fails because of a single
project: unresolvable directories only drop the marker.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCwd, "cwd", "", "Directory whose project is marked current")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	cwd := indexCwd
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	lines := s.engine.RenderIndex(cwd)
	if len(lines) == 0 {
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
	return err
}
