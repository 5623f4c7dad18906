package main

import (
	"strings"

	"github.com/spf13/cobra"

	"atlas/internal/atlas"
	atlaserrors "atlas/internal/errors"
)

var (
	editName       string
	editSummary    string
	editGroup      string
	editNotes      string
	editAddTags    []string
	editRemoveTags []string
	editSet        []string
	editJSON       bool
)

var editCmd = &cobra.Command{
	Use:   "edit [slug]",
	Short: "Change fields of a project's atlas.yaml",
	Long: `Edit the project's atlas.yaml and refresh its cache entry. The file is
created when missing. Only the flags given are changed.

Examples:
  atlas edit --summary "Browser SDK for event capture"
  atlas edit collector --group backend --add-tag go --add-tag kafka
  atlas edit web-sdk --set owner=web-team --set tier=`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEdit,
}

func init() {
	f := editCmd.Flags()
	f.StringVar(&editName, "name", "", "Display name")
	f.StringVar(&editSummary, "summary", "", "One-line summary (100 characters max)")
	f.StringVar(&editGroup, "group", "", "Group")
	f.StringVar(&editNotes, "notes", "", "Free-form notes")
	f.StringSliceVar(&editAddTags, "add-tag", nil, "Tag to add (repeatable)")
	f.StringSliceVar(&editRemoveTags, "remove-tag", nil, "Tag to remove (repeatable)")
	f.StringArrayVar(&editSet, "set", nil, "Metadata key=value; an empty value deletes the key (repeatable)")
	f.BoolVar(&editJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	opts, err := editOptions(cmd)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	slug, err := s.target(optionalArg(args, 0))
	if err != nil {
		return err
	}
	res, err := s.engine.Edit(slug, opts)
	if err != nil {
		return err
	}
	return printResponse(cmd, res, editJSON)
}

// editOptions maps the flags that were given onto EditOptions.
func editOptions(cmd *cobra.Command) (atlas.EditOptions, error) {
	changed := func(name string, v *string) *string {
		if cmd.Flags().Changed(name) {
			return v
		}
		return nil
	}
	opts := atlas.EditOptions{
		Name:       changed("name", &editName),
		Summary:    changed("summary", &editSummary),
		Group:      changed("group", &editGroup),
		Notes:      changed("notes", &editNotes),
		AddTags:    editAddTags,
		RemoveTags: editRemoveTags,
	}
	meta, err := parseAssignments(editSet)
	if err != nil {
		return opts, err
	}
	opts.Metadata = meta
	return opts, nil
}

// parseAssignments parses key=value pairs.
func parseAssignments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, atlaserrors.NewValidationError("set", "expected key=value, got "+p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
