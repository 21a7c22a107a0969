package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/hostconfig"
	"github.com/anchor-mcp/anchor/internal/lockfile"
	"github.com/anchor-mcp/anchor/internal/probe"
)

var repairCmd = &cobra.Command{
	Use:   "repair <name>",
	Short: "Diagnose and repair a broken MCP server",
	Long: `Launch a locked server, and if it fails, run the self-healing engine:
classify the error, apply a candidate fix, and reprobe with escalating
timeouts until the server answers or the attempt budget is spent.

A successful repair updates both the client configuration and the
lockfile with the working launch configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := newLockStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("no lockfile found; run install first")
	}
	entry, ok := doc.Servers[name]
	if !ok {
		return fmt.Errorf("server %q is not in the lockfile", name)
	}

	host := newHostFile()
	servers, err := host.Read()
	if err != nil {
		return err
	}

	cfg := probe.ServerConfig{
		Command: entry.Config.Command,
		Args:    entry.Config.Args,
		Env:     servers[name].Env,
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Probing %s...\n", name)
	result := newProbe().Probe(cmd.Context(), name, cfg, probeTimeout())
	if result.Success {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is healthy (%d tools); nothing to repair\n", name, len(result.ToolNames))
		return store.SetVerified(name, true, time.Now().UTC())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Probe failed: %s\n", result.ErrorText)
	fmt.Fprintln(cmd.OutOrStdout(), "Attempting automatic repair...")

	outcome := newHealer().Heal(cmd.Context(), name, cfg, result.ErrorText)
	reportAttempts(cmd, outcome)

	if !outcome.Fixed {
		if err := store.SetVerified(name, false, time.Now().UTC()); err != nil {
			return err
		}
		return fmt.Errorf("could not repair %s: %s", name, outcome.HumanAction)
	}

	if err := host.Upsert(hostconfig.Server{
		Name:    name,
		Command: outcome.Config.Command,
		Args:    outcome.Config.Args,
		Env:     outcome.Config.Env,
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	entry.Config = lockfile.ServerConfig{
		Command: outcome.Config.Command,
		Args:    outcome.Config.Args,
		EnvKeys: outcome.Config.EnvKeys(),
	}
	entry.Tools = outcome.Tools
	entry.ToolsHash = lockfile.ToolsHash(outcome.Tools)
	entry.VerifiedAt = &now
	entry.VerifiedHealthy = true
	if err := store.Upsert(entry); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Repaired %s in %d attempt(s)\n", name, len(outcome.Attempts))
	return nil
}
