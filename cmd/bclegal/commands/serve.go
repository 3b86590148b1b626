package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/config"
	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/server"
	"github.com/54b3r/bclegal-go/internal/tracing"
)

// NewServeCmd constructs the `bclegal serve` command, which starts the HTTP
// API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var wait bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bclegal HTTP API",
		Long: `Start the bclegal HTTP server.

The server exposes retrieval, recommendation and report endpoints as a
JSON/SSE API. The legislation index is built in the background; until it is
ready /api/ready reports the retrieval check as failing and /api/retrieve
builds it on demand.

Report generation needs a chat model (MODEL_PROVIDER). If none is
configured the server still starts and /api/report is not registered.

Examples:
  bclegal serve
  bclegal serve --port 9090 --wait
  MODEL_PROVIDER=openai bclegal serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			settings := config.ServerFromEnv()
			if cmd.Flags().Changed("host") {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}

			log.Info("serve starting", slog.String("addr", fmt.Sprintf("%s:%d", settings.Host, settings.Port)))

			// Langfuse tracing is opt-in.
			handler, flush, ok := tracing.Setup(tracing.ConfigFromEnv())
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			reg := prometheus.DefaultRegisterer

			orch, ragSettings, err := buildOrchestrator(ctx, log, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			rec, err := buildRecommender(ctx, log, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{server.NewRetrievalPinger(orch)}

			deps := server.Deps{Retriever: orch, Recommender: rec}
			gen, providerCfg, err := buildReporter(ctx, orch, ragSettings)
			if err != nil {
				log.Warn("reports disabled", slog.Any("error", err))
			} else {
				deps.Reporter = gen
				log.Info("provider initialised",
					slog.String("provider", string(providerCfg.Backend)),
					slog.String("model", providerCfg.ModelName()),
				)
				if hc := providerCfg.HealthCheck(); hc != nil {
					pingers = append(pingers, server.NewHTTPPinger("llm:"+string(providerCfg.Backend), hc))
				}
			}

			initialize := func() {
				if err := orch.Initialize(ctx); err != nil {
					log.Error("retrieval initialisation failed", slog.Any("error", err))
					return
				}
				st := orch.Stats()
				log.Info("retrieval index ready",
					slog.String("state", st.State),
					slog.Int("documents", st.Documents),
					slog.Int("chunks", st.Chunks),
				)
			}
			if wait {
				initialize()
			} else {
				go initialize()
			}

			srv, err := server.New(deps, &server.Config{
				Host:      settings.Host,
				Port:      settings.Port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: settings.RateLimit,
				RateBurst: settings.RateBurst,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (overrides BCLEGAL_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (overrides BCLEGAL_PORT)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Build the legislation index before accepting requests")

	return cmd
}
