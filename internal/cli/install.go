package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/healing"
	"github.com/anchor-mcp/anchor/internal/hostconfig"
	"github.com/anchor-mcp/anchor/internal/installer"
	"github.com/anchor-mcp/anchor/internal/lockfile"
	"github.com/anchor-mcp/anchor/internal/probe"
	"github.com/anchor-mcp/anchor/internal/registry"
)

var (
	installYes bool
	installEnv []string
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install an MCP server and record it in the lockfile",
	Long: `Install an MCP server: resolve it in the catalogs, launch it once to
verify it answers the protocol handshake, then record it in both the
client configuration and the lockfile.

If the first launch fails, the self-healing engine diagnoses the error
and retries with an adjusted configuration before giving up.

Environment values passed with --env are used for the verification
launch and written to the client configuration; the lockfile records
only the key names, never the values.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	installCmd.Flags().StringArrayVar(&installEnv, "env", nil, "Environment variable for the server (KEY=VALUE, repeatable)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	rec, err := newAggregator().Get(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", name, err)
	}

	plan, err := installer.Resolve(*rec)
	if err != nil {
		return err
	}

	env, err := parseEnvFlags(installEnv)
	if err != nil {
		return err
	}
	cfg := plan.Config
	cfg.Env = env

	fmt.Fprintf(cmd.OutOrStdout(), "Installing %s (%s via %s)\n", rec.Name, plan.Package.Identifier, plan.Package.Registry)
	fmt.Fprintf(cmd.OutOrStdout(), "  launch: %s %s\n", cfg.Command, strings.Join(cfg.Args, " "))

	if !installYes && !confirm(cmd, "Proceed with installation?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Installation cancelled.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Verifying server responds...")
	result := newProbe().Probe(cmd.Context(), name, cfg, probeTimeout())

	tools := result.ToolNames
	if !result.Success {
		fmt.Fprintf(cmd.OutOrStdout(), "First launch failed: %s\n", result.ErrorText)
		fmt.Fprintln(cmd.OutOrStdout(), "Attempting automatic repair...")

		outcome := newHealer().Heal(cmd.Context(), name, cfg, result.ErrorText)
		reportAttempts(cmd, outcome)
		if !outcome.Fixed {
			return fmt.Errorf("could not install %s: %s", name, outcome.HumanAction)
		}
		cfg = outcome.Config
		tools = outcome.Tools
	}

	if err := persistInstall(name, *rec, plan, cfg, tools); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s (%d tools)\n", name, len(tools))
	return nil
}

// persistInstall records the verified server in the client configuration
// and the lockfile.
func persistInstall(name string, rec registry.Record, plan installer.Plan, cfg probe.ServerConfig, tools []string) error {
	host := newHostFile()
	if err := host.Upsert(hostconfig.Server{
		Name:    name,
		Command: cfg.Command,
		Args:    cfg.Args,
		Env:     cfg.Env,
	}); err != nil {
		return err
	}

	store, err := newLockStore()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return store.Upsert(lockfile.Entry{
		Name:              name,
		PackageIdentifier: plan.Package.Identifier,
		RegistryType:      plan.Package.Registry,
		Version:           plan.Package.Version,
		RepositoryURL:     rec.RepositoryURL,
		Config: lockfile.ServerConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			EnvKeys: cfg.EnvKeys(),
		},
		Tools:           tools,
		ToolsHash:       lockfile.ToolsHash(tools),
		VerifiedAt:      &now,
		VerifiedHealthy: true,
	})
}

func reportAttempts(cmd *cobra.Command, outcome healing.Outcome) {
	for i, attempt := range outcome.Attempts {
		status := "failed"
		if attempt.Succeeded {
			status = "fixed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  attempt %d: %s: %s (%s)\n",
			i+1, attempt.Diagnosis.Category, attempt.Fix.Description, status)
	}
}

func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "? %s (Y/n) ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}
