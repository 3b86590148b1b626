package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/recommend"
)

// NewRecommendCmd constructs the `bclegal recommend` command, which ranks
// lawyers and community resources for a user profile.
func NewRecommendCmd() *cobra.Command {
	var flags profileFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend lawyers and legal resources for a situation",
		Long: `Rank the lawyer and resource catalog against a description of the user's
situation. Scores combine semantic similarity with specialty, location,
fee and demographic matches.

The catalog is read from the SQLite database written by 'bclegal catalog
import', then from the JSON exports (CATALOG_LAWYERS, CATALOG_RESOURCES),
and finally from a small built-in set.

Examples:
  bclegal recommend --type "Family Law" --location Vancouver "custody dispute"
  bclegal recommend -t "Tenancy" -m "eviction notice" --low-income --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			p := flags.profile(args)
			if p.Query == "" {
				return fmt.Errorf("recommend: provide a query or --matter/--type")
			}

			rec, err := buildRecommender(ctx, log, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}

			out := rec.Recommend(ctx, p)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printRecommendations(out)
			if out.Error != "" {
				return fmt.Errorf("recommend: %s", out.Error)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func printRecommendations(out recommend.Recommendations) {
	fmt.Println(out.Summary)

	if len(out.Lawyers) > 0 {
		fmt.Println("\nLawyers:")
		for i, l := range out.Lawyers {
			fmt.Printf("  %d. %s (%.0f%%)", i+1, l.Name, l.Score*100)
			if l.Specialty != "" {
				fmt.Printf(" - %s", l.Specialty)
			}
			if l.Location != "" {
				fmt.Printf(", %s", l.Location)
			}
			fmt.Println()
			if len(l.MatchReasons) > 0 {
				fmt.Printf("     %s\n", strings.Join(l.MatchReasons, "; "))
			}
			if l.Phone != "" || l.Email != "" {
				fmt.Printf("     %s\n", strings.TrimSpace(l.Phone+"  "+l.Email))
			}
		}
	}

	if len(out.Resources) > 0 {
		fmt.Println("\nResources:")
		for i, r := range out.Resources {
			fmt.Printf("  %d. %s [%s]\n", i+1, r.Source, r.Relevance)
			if len(r.MatchReasons) > 0 {
				fmt.Printf("     %s\n", strings.Join(r.MatchReasons, "; "))
			}
		}
	}
}
