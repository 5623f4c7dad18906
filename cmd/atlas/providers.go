package main

import (
	"github.com/spf13/cobra"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List provider definitions",
	Long: `List the providers defined in <atlas home>/providers/*.yaml.

A provider names a file inside each project whose content is added to
` + "`atlas show --enrich`" + ` under the provider's field_name.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.engine.Providers()
	if err != nil {
		return err
	}
	return printResponse(cmd, &ProvidersResponseCLI{
		Dir:       s.engine.Layout().ProvidersDir(),
		Providers: list,
	}, providersJSON)
}
