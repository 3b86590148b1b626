// Package commands defines all Cobra CLI commands for the bclegal binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/audit"
	"github.com/54b3r/bclegal-go/internal/config"
	"github.com/54b3r/bclegal-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bclegal",
		Short: "BC legal assistant: legislation retrieval, referrals and reports",
		Long: `bclegal helps people in British Columbia find the legislation, lawyers and
community resources relevant to their legal problem.

It indexes a small set of BC statutes for semantic retrieval, ranks lawyers
and resources against a user profile, and can stream an LLM-written legal
assistance report grounded in the retrieved legislation.

Embedding and chat backends are selected via EMBEDDING_PROVIDER and
MODEL_PROVIDER, or a YAML config file (~/.bclegal/config.yaml).
See 'bclegal --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.bclegal/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewRetrieveCmd(),
		NewRecommendCmd(),
		NewReportCmd(),
		NewWarmupCmd(),
		NewCatalogCmd(),
		NewVersionCmd(),
	)

	return root
}
