package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Remove a server from the lockfile and the client configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := newLockStore()
	if err != nil {
		return err
	}
	found, err := store.Remove(name)
	if err != nil {
		return fmt.Errorf("updating lockfile: %w", err)
	}

	if err := newHostFile().Remove(name); err != nil {
		return fmt.Errorf("updating client configuration: %w", err)
	}

	if !found {
		fmt.Fprintf(cmd.OutOrStdout(), "%s was not in the lockfile; client configuration cleaned up\n", name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", name)
	return nil
}
