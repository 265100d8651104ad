package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alphas/policyrag-go/internal/logging"
	"github.com/alphas/policyrag-go/internal/service"
)

// NewSearchCmd constructs the `policyrag search` command, which runs a
// similarity search over the corpus and prints one hit per document.
func NewSearchCmd() *cobra.Command {
	var department string
	var category string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the HR policy corpus by similarity",
		Long: `Run a similarity search over the indexed documents and print the
best-matching document for each hit, ordered by descending score.

Examples:
  policyrag search "remote work eligibility"
  policyrag search --department rrhh "parental leave"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer comps.close()

			result, err := comps.svc.SearchDocuments(ctx, service.SearchRequest{
				Query:      strings.Join(args, " "),
				TopK:       topK,
				Department: department,
				Category:   category,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(result.Hits) == 0 {
				fmt.Println("no matching documents")
				return nil
			}
			if result.Fallback {
				fmt.Println("(filter matched nothing — showing unfiltered results)")
			}
			for i, hit := range result.Hits {
				fmt.Printf("[%d] %s (%s / %s) score=%.3f\n", i+1, hit.Title, hit.Department, hit.Category, hit.Score)
				excerpt := hit.Excerpt
				if len(excerpt) > 200 {
					excerpt = excerpt[:200] + "…"
				}
				fmt.Printf("    %s\n", excerpt)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&department, "department", "d", "", "Restrict the search to one department")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict the search to one category")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of documents to return (0 = default)")

	return cmd
}
