package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers recorded in the lockfile",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := newLockStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}
	if doc == nil || len(doc.Servers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Lockfile is empty.")
		return nil
	}

	names := make([]string, 0, len(doc.Servers))
	for name := range doc.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tPACKAGE\tVERSION\tTOOLS\tVERIFIED")
	for _, name := range names {
		entry := doc.Servers[name]
		version := entry.Version
		if version == "" {
			version = "-"
		}
		verified := "-"
		if entry.VerifiedAt != nil {
			verified = entry.VerifiedAt.Format("2006-01-02 15:04")
			if !entry.VerifiedHealthy {
				verified += " (unhealthy)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", name, entry.PackageIdentifier, version, len(entry.Tools), verified)
	}
	return w.Flush()
}
