// Package commands defines all Cobra CLI commands for the policyrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/alphas/policyrag-go/internal/audit"
	"github.com/alphas/policyrag-go/internal/config"
	"github.com/alphas/policyrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "policyrag",
		Short: "ALPHAS RAG — HR policy question answering over internal documents",
		Long: `policyrag answers employee questions about internal HR policies.

It chunks and embeds policy documents and FAQs into a vector index, retrieves
the most relevant passages for each question, and composes an answer — using
a generative model when one is configured, or an extractive excerpt otherwise.

The embedding backend is selected via EMBEDDING_PROVIDER, the optional
generation backend via MODEL_PROVIDER, or a YAML config file
(~/.policyrag/config.yaml). See 'policyrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.policyrag/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewSearchCmd(),
		NewLoadCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
