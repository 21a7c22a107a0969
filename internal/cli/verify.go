package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/drift"
	"github.com/anchor-mcp/anchor/internal/hostconfig"
	"github.com/anchor-mcp/anchor/internal/lockfile"
	"github.com/anchor-mcp/anchor/internal/probe"
)

var (
	verifyOutput string
	verifyLive   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Detect drift between the lockfile and the client configuration",
	Long: `Compare the lockfile against the client configuration and report every
divergence: servers missing from the client, servers present but not
locked, and changed launch configurations.

With --live, each locked server is additionally launched once so its
reported tool list can be compared against the locked one.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "o", "text", "Output format (text or yaml)")
	verifyCmd.Flags().BoolVar(&verifyLive, "live", false, "Probe each locked server and compare tool lists")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyOutput != "text" && verifyOutput != "yaml" {
		return fmt.Errorf("unsupported output format %q (want text or yaml)", verifyOutput)
	}

	store, err := newLockStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}

	locked := map[string]lockfile.Entry{}
	if doc != nil {
		locked = doc.Servers
	}

	servers, err := newHostFile().Read()
	if err != nil {
		return err
	}
	installed := make(map[string]drift.Installed, len(servers))
	for name, server := range servers {
		installed[name] = drift.Installed{Command: server.Command, Args: server.Args}
	}

	var health map[string]drift.Health
	if verifyLive {
		health = probeLocked(cmd, locked, servers)
	}

	report := drift.NewReport(drift.Detect(locked, installed, health))

	if verifyOutput == "yaml" {
		if err := report.WriteYAML(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		report.WriteText(cmd.OutOrStdout())
	}

	if report.Summary.Error > 0 {
		return fmt.Errorf("%d error-level drift finding(s)", report.Summary.Error)
	}
	return nil
}

// probeLocked launches each locked server once. Environment values come
// from the client configuration since the lockfile stores only key names.
func probeLocked(cmd *cobra.Command, locked map[string]lockfile.Entry, servers map[string]hostconfig.Server) map[string]drift.Health {
	p := newProbe()
	timeout := probeTimeout()
	health := make(map[string]drift.Health, len(locked))

	for name, entry := range locked {
		cfg := probe.ServerConfig{
			Command: entry.Config.Command,
			Args:    entry.Config.Args,
			Env:     servers[name].Env,
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "probing %s...\n", name)
		result := p.Probe(cmd.Context(), name, cfg, timeout)
		health[name] = drift.Health{Healthy: result.Success, Tools: result.ToolNames}
	}
	return health
}
