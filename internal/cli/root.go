package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anchor-mcp/anchor/internal/branding"
	"github.com/anchor-mcp/anchor/internal/config"
	"github.com/anchor-mcp/anchor/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers MCP servers across public catalogs, installs them into
your client configuration, records the desired state in a lockfile, and
reconciles the two: verify reports drift, repair heals broken servers,
restore reinstalls what the lockfile says should exist.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()

		// The version command manages its own release check.
		if cmd.Name() == "version" {
			return
		}

		// Non-blocking banner from the cached release check.
		u := updater.New(buildVersion)
		u.CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
