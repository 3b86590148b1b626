package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/logging"
)

// NewWarmupCmd constructs the `bclegal warmup` command, which builds the
// legislation index once and reports what was indexed. It is a quick way to
// check source reachability and embedding configuration.
func NewWarmupCmd() *cobra.Command {
	var strict bool
	var listDocs bool

	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Build the legislation index and print its statistics",
		Long: `Fetch, chunk and embed the configured sources and print the resulting
index statistics as JSON.

Examples:
  bclegal warmup
  RAG_FETCH_WORKERS=4 bclegal warmup --strict --documents`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			orch, _, err := buildOrchestrator(ctx, log, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("warmup: %w", err)
			}
			if err := orch.Initialize(ctx); err != nil {
				return fmt.Errorf("warmup: %w", err)
			}

			st := orch.Stats()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(st); err != nil {
				return err
			}
			if listDocs {
				for _, d := range orch.Documents() {
					fmt.Fprintf(os.Stderr, "%s\t%s\t%d chars\n", d.Title, d.URL, utf8.RuneCountInString(d.RawText))
				}
			}
			if strict && st.State != "ready" {
				return fmt.Errorf("warmup: index is %s, live sources were not indexed", st.State)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listDocs, "documents", false, "Also list the indexed documents on stderr")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the curated fallback was indexed instead of live sources")

	return cmd
}
