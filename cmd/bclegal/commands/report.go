package commands

import (
	"fmt"
	"os"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/tracing"
)

// NewReportCmd constructs the `bclegal report` command, which streams an
// LLM-written legal assistance report to stdout.
func NewReportCmd() *cobra.Command {
	var flags profileFlags
	var prompt string

	cmd := &cobra.Command{
		Use:   "report [query]",
		Short: "Generate a legal assistance report grounded in BC legislation",
		Long: `Generate a structured legal assistance report for the user's situation.

Relevant legislation excerpts are retrieved and injected as context before
the chat model (MODEL_PROVIDER) writes the report. The report streams to
stdout; the cited sources are printed to stderr when it completes.

Examples:
  bclegal report -t "Employment Law" -m "unpaid overtime" -l Surrey
  bclegal report --prompt "Summarise tenant rights on rent increases"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			p := flags.profile(args)
			if p.Query == "" && prompt == "" {
				return fmt.Errorf("report: provide a query, --matter/--type, or --prompt")
			}

			handler, flush, ok := tracing.Setup(tracing.ConfigFromEnv())
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			orch, settings, err := buildOrchestrator(ctx, log, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			gen, _, err := buildReporter(ctx, orch, settings)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			res, err := gen.Generate(ctx, &p, prompt, os.Stdout)
			fmt.Println()
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			for _, src := range res.Sources {
				fmt.Fprintf(os.Stderr, "source: %s\n", src)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&prompt, "prompt", "", "Use this prompt instead of the generated report form")

	return cmd
}
