package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendwise/internal/buildinfo"
	"spendwise/internal/cli"
	"spendwise/internal/client"
	"spendwise/internal/config"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	server   string
	envFiles []string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "spendwise",
		Short:   "Personal expense and budget tracker",
		Long:    "Track expenses against monthly budgets: run the REST server or talk to one.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cli.LoadEnvFile(opts.envFiles...)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "server base URL (default $SPENDWISE_SERVER or http://localhost:8081)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(
		newServeCommand(),
		newExpensesCommand(opts),
		newBudgetsCommand(opts),
		newSummaryCommand(opts),
		newTrendCommand(opts),
		newEventsCommand(),
	)

	return rootCmd
}

// apiClient resolves the server URL from the flag, then configuration.
func (o *rootOptions) apiClient() (*client.Client, error) {
	server := o.server
	if server == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		server = cfg.ServerURL
	}
	return client.New(server)
}
