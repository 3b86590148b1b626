package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/logging"
)

// NewRetrieveCmd constructs the `bclegal retrieve` command, which builds the
// legislation index and prints the fragments most similar to a query.
func NewRetrieveCmd() *cobra.Command {
	var k int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Find the legislation excerpts most relevant to a question",
		Long: `Fetch and index the configured BC statutes, then print the excerpts most
similar to the query.

If the statutes cannot be fetched or embedded, a small curated set is
indexed instead and the index state is reported as degraded.

Examples:
  bclegal retrieve "can my landlord enter without notice?"
  bclegal retrieve -k 3 --json "minimum wage"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("retrieve: query must not be empty")
			}

			orch, _, err := buildOrchestrator(ctx, log, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}

			fragments, err := orch.Retrieve(ctx, query, k)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Query     string `json:"query"`
					State     string `json:"state"`
					Fragments any    `json:"fragments"`
				}{query, orch.State().String(), fragments})
			}

			fmt.Printf("index: %s\n", orch.State())
			if len(fragments) == 0 {
				fmt.Println("no matching excerpts")
				return nil
			}
			for i, f := range fragments {
				fmt.Printf("\n[%d] %s (similarity %.3f)\n", i+1, f.Source, f.Similarity)
				if f.URL != "" {
					fmt.Println(f.URL)
				}
				fmt.Println(strings.TrimSpace(f.Text))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "top", "k", 0, "Number of excerpts to return (default: RAG_TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}
