package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alphas/policyrag-go/internal/logging"
	"github.com/alphas/policyrag-go/internal/service"
)

// NewAskCmd constructs the `policyrag ask` command, which answers a single
// question against the indexed corpus and prints the result to stdout.
func NewAskCmd() *cobra.Command {
	var department string
	var category string
	var topK int
	var noAI bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the HR policy corpus",
		Long: `Ask a natural language question about the indexed HR policies and FAQs.

The answer is composed from the most relevant policy passages. When a
generation backend is configured (MODEL_PROVIDER) the answer is generated;
otherwise an extractive excerpt of the best-matching passage is returned.

Examples:
  policyrag ask "how many vacation days do I get per year?"
  policyrag ask --department rrhh "what does the health plan cover?"
  policyrag ask --category trabajo_remoto "can I work abroad?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer comps.close()

			useAI := !noAI
			answer, err := comps.svc.Ask(ctx, service.AskRequest{
				Question:   strings.Join(args, " "),
				TopK:       topK,
				Department: department,
				Category:   category,
				UseAI:      &useAI,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer.Text)
			fmt.Println()
			fmt.Printf("confidence: %.2f", answer.Confidence)
			if !answer.UsedGeneration {
				fmt.Print("  (extractive)")
			}
			if answer.Fallback {
				fmt.Print("  (filter matched nothing — unfiltered results)")
			}
			fmt.Println()
			for i, src := range answer.Sources {
				fmt.Printf("  [%d] %s (%s / %s) score=%.3f\n", i+1, src.Title, src.Department, src.Category, src.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&department, "department", "d", "", "Restrict retrieval to one department (e.g. rrhh)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict retrieval to one category (e.g. vacaciones)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (0 = default)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Skip the generation backend and return an extractive answer")

	return cmd
}
