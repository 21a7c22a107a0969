package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/hostconfig"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Reinstall locked servers missing from the client configuration",
	Long: `Bring the client configuration back in line with the lockfile: every
locked server absent from the client configuration is re-added with its
locked launch configuration.

Environment variable values are not stored in the lockfile, so restored
servers that need them must have their values set again.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	store, err := newLockStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}
	if doc == nil || len(doc.Servers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Lockfile is empty; nothing to restore.")
		return nil
	}

	host := newHostFile()
	installed, err := host.Read()
	if err != nil {
		return err
	}

	restored := 0
	for name, entry := range doc.Servers {
		if _, ok := installed[name]; ok {
			continue
		}
		if err := host.Upsert(hostconfig.Server{
			Name:    name,
			Command: entry.Config.Command,
			Args:    entry.Config.Args,
		}); err != nil {
			return fmt.Errorf("restoring %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", name)
		if len(entry.Config.EnvKeys) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  note: set environment values for %v\n", entry.Config.EnvKeys)
		}
		restored++
	}

	if restored == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All locked servers are already installed.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d server(s)\n", restored)
	}
	return nil
}
