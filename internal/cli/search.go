package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/registry"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the MCP server catalogs",
	Long: `Search for MCP servers across the configured catalogs. Results from the
npm registry and PulseMCP are merged by repository identity, so a server
listed in both appears once, carrying the usage and verification signals
of the secondary catalog.

When every catalog is unreachable, recent results for the same query are
served from the local cache and marked as such.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

// searchEntry is one result row for display.
type searchEntry struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Provenance  string `json:"provenance"`
	UsageCount  int    `json:"usage_count,omitempty"`
	Verified    bool   `json:"verified,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	result := newAggregator().Search(cmd.Context(), args[0], searchLimit)

	for _, failure := range result.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: catalog %s unavailable: %v\n", failure.Source, failure.Err)
	}
	if result.FromCache {
		fmt.Fprintf(cmd.ErrOrStderr(), "catalogs unreachable; showing cached results from %s ago\n",
			result.CacheAge.Round(time.Second))
	}

	if len(result.Records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No servers found matching %q\n", args[0])
		return nil
	}

	entries := make([]searchEntry, 0, len(result.Records))
	for _, rec := range result.Records {
		entries = append(entries, searchEntry{
			Name:        rec.Name,
			Version:     rec.Version,
			Description: rec.Description,
			Provenance:  string(rec.Provenance),
			UsageCount:  rec.UsageCount,
			Verified:    rec.Verified,
		})
	}

	if searchJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return printSearchTable(cmd, entries)
}

func printSearchTable(cmd *cobra.Command, entries []searchEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSOURCE\tUSAGE\tDESCRIPTION")
	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		usage := "-"
		if e.UsageCount > 0 {
			usage = fmt.Sprintf("%d", e.UsageCount)
		}
		desc := e.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		name := e.Name
		if e.Verified {
			name += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, version, sourceLabel(e.Provenance), usage, desc)
	}
	return w.Flush()
}

func sourceLabel(provenance string) string {
	switch registry.Provenance(provenance) {
	case registry.ProvenanceBoth:
		return "npm+pulse"
	case registry.ProvenancePrimary:
		return "npm"
	default:
		return "pulse"
	}
}
