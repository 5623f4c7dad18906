package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"atlas/internal/atlas"
	"atlas/internal/cache"
	atlaserrors "atlas/internal/errors"
	"atlas/internal/providers"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

func formatFor(jsonOut bool) OutputFormat {
	if jsonOut {
		return FormatJSON
	}
	return FormatHuman
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// printResponse writes resp to the command's stdout.
func printResponse(cmd *cobra.Command, resp interface{}, jsonOut bool) error {
	out, err := FormatResponse(resp, formatFor(jsonOut))
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *cache.QueryResult:
		return formatListHuman(v), nil
	case *atlas.ProjectView:
		return formatViewHuman(v)
	case *atlas.AddResult:
		return formatAddHuman(v), nil
	case *atlas.EditResult:
		return formatEditHuman(v), nil
	case *atlas.LinkResult:
		return formatLinkHuman(v), nil
	case *atlas.RemoveResult:
		return fmt.Sprintf("Removed %s (%s). Its atlas.yaml was left in place.", v.Project.Slug, v.Project.Path), nil
	case *cache.Outcome:
		return formatOutcome(v), nil
	case *cache.Report:
		return formatReportHuman(v), nil
	case *WhichResponseCLI:
		return fmt.Sprintf("%s (%s match via %s)", v.Slug, v.Kind, v.Candidate), nil
	case *ProvidersResponseCLI:
		return formatProvidersHuman(v), nil
	case *VersionResponseCLI:
		return fmt.Sprintf("atlas version %s\nCommit: %s\nBuilt: %s", v.Version, v.Commit, v.BuildDate), nil
	default:
		return formatJSON(resp)
	}
}

func formatListHuman(res *cache.QueryResult) string {
	var b strings.Builder
	if len(res.Items) == 0 {
		if res.Registered == 0 {
			b.WriteString("No projects registered. Run `atlas add` in a project directory.")
		} else {
			b.WriteString("No projects match.")
		}
	} else {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, it := range res.Items {
			summary := "(no atlas config)"
			var extra []string
			if it.Cached != nil {
				summary = it.Cached.Summary
				if summary == "" {
					summary = "(no summary)"
				}
				if it.Cached.Group != "" {
					extra = append(extra, "group="+it.Cached.Group)
				}
				if len(it.Cached.Tags) > 0 {
					extra = append(extra, "tags="+strings.Join(it.Cached.Tags, ","))
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Project.Slug, summary, strings.Join(extra, " "))
		}
		_ = tw.Flush()
	}
	if res.Hint != nil {
		b.WriteString("\n")
		b.WriteString(formatNotice("Hint", res.Hint))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatViewHuman(v *atlas.ProjectView) (string, error) {
	var b strings.Builder
	b.WriteString(v.Detail)
	if len(v.Providers) > 0 {
		b.WriteString("\nProviders:\n")
		fields := make([]string, 0, len(v.Providers))
		for f := range v.Providers {
			fields = append(fields, f)
		}
		slices.Sort(fields)
		for _, f := range fields {
			data, err := yaml.Marshal(map[string]interface{}{f: v.Providers[f]})
			if err != nil {
				return "", fmt.Errorf("failed to render provider %s: %w", f, err)
			}
			for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
				b.WriteString("  " + line + "\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatAddHuman(r *atlas.AddResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Registered %s at %s\n", r.Project.Slug, r.Project.Path)
	if r.Project.Repo != "" {
		fmt.Fprintf(&b, "  Repo: %s\n", r.Project.Repo)
	}
	if r.Replaced != "" {
		fmt.Fprintf(&b, "  Replaced: %s\n", r.Replaced)
	}
	if r.ConfigCreated {
		fmt.Fprintf(&b, "  Created %s\n", r.ConfigPath)
	}
	if r.Refresh != nil && r.Refresh.Status == cache.StatusRefreshed {
		b.WriteString("  Cached\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(formatNotice("Warning", w))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEditHuman(r *atlas.EditResult) string {
	verb := "Updated"
	if r.Created {
		verb = "Created"
	}
	s := fmt.Sprintf("%s atlas config for %s", verb, r.Slug)
	if r.Refresh != nil && r.Refresh.Warning != nil {
		s += "\n" + strings.TrimRight(formatNotice("Warning", r.Refresh.Warning), "\n")
	}
	return s
}

func formatLinkHuman(r *atlas.LinkResult) string {
	verb := "Added"
	if r.Updated {
		verb = "Updated"
	}
	return fmt.Sprintf("%s link %s -> %s for %s", verb, r.Name, r.URL, r.Slug)
}

func formatOutcome(o *cache.Outcome) string {
	line := fmt.Sprintf("%s: %s", o.Slug, o.Status)
	if o.CachedAt != nil {
		line += " (" + o.CachedAt.Format(time.RFC3339) + ")"
	}
	if o.Warning != nil {
		line += " - " + o.Warning.Message
	}
	return line
}

func formatReportHuman(r *cache.Report) string {
	var b strings.Builder
	for i := range r.Outcomes {
		b.WriteString(formatOutcome(&r.Outcomes[i]))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d refreshed, %d without config, %d missing, %d invalid, %d failed",
		r.Count(cache.StatusRefreshed),
		r.Count(cache.StatusConfigMissing),
		r.Count(cache.StatusPathMissing),
		r.Count(cache.StatusInvalid),
		r.Count(cache.StatusFailed))
	if len(r.Pruned) > 0 {
		fmt.Fprintf(&b, "\nPruned orphaned cache entries: %s", strings.Join(r.Pruned, ", "))
	}
	return strings.TrimLeft(b.String(), "\n")
}

func formatProvidersHuman(r *ProvidersResponseCLI) string {
	if len(r.Providers) == 0 {
		return fmt.Sprintf("No providers registered in %s", r.Dir)
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFIELD\tFILE\tDESCRIPTION")
	for _, p := range r.Providers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.FieldName, p.ProjectFile, p.Description)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// formatNotice renders an AtlasError as a labelled line plus its first fix.
func formatNotice(label string, e *atlaserrors.AtlasError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", label, e.Message)
	if len(e.SuggestedFixes) > 0 {
		fix := e.SuggestedFixes[0]
		if fix.Command != "" {
			fmt.Fprintf(&b, "  Try: %s (%s)\n", fix.Command, fix.Description)
		} else {
			fmt.Fprintf(&b, "  Try: %s\n", fix.Description)
		}
	}
	return b.String()
}

// printError reports a failed command on w.
func printError(w io.Writer, err error) {
	if ae, ok := atlaserrors.AsAtlasError(err); ok {
		label := "Error"
		if ae.IsWarning() {
			label = "Warning"
		}
		fmt.Fprintf(w, "[%s] %s", ae.Code, formatNotice(label, ae))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// WhichResponseCLI is the result of `atlas which`.
type WhichResponseCLI struct {
	Path      string `json:"path"`
	Slug      string `json:"slug"`
	Kind      string `json:"kind"`
	Candidate string `json:"candidate"`
}

// ProvidersResponseCLI lists provider definitions.
type ProvidersResponseCLI struct {
	Dir       string               `json:"dir"`
	Providers []providers.Provider `json:"providers"`
}

// VersionResponseCLI is the result of `atlas version`.
type VersionResponseCLI struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}
