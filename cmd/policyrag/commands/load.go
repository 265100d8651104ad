package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alphas/policyrag-go/internal/logging"
)

// NewLoadCmd constructs the `policyrag load` command, which ingests the
// built-in HR policy and FAQ corpus into the document store and vector index.
func NewLoadCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the built-in HR policy corpus into the index",
		Long: `Chunk, embed, and index the built-in HR policy documents and FAQs.

Loading is idempotent: documents already present are skipped. Use --force to
re-ingest everything, e.g. after changing CHUNK_SIZE or the embedding model.

Examples:
  policyrag load
  policyrag load --force
  EMBEDDING_PROVIDER=openai policyrag load`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			defer comps.close()

			report, err := comps.svc.Load(ctx, force)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}

			fmt.Printf("loaded %d documents (%d chunks indexed, %d skipped) in %.1fs\n",
				report.DocumentsLoaded, report.ChunksIndexed, report.Skipped, report.DurationSeconds)
			for _, e := range report.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("load: %d documents failed", len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-ingest documents that are already present")

	return cmd
}
