package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/54b3r/bclegal-go/internal/catalog"
	"github.com/54b3r/bclegal-go/internal/config"
	"github.com/54b3r/bclegal-go/internal/embedder"
	"github.com/54b3r/bclegal-go/internal/provider"
	"github.com/54b3r/bclegal-go/internal/rag"
	"github.com/54b3r/bclegal-go/internal/recommend"
	"github.com/54b3r/bclegal-go/internal/report"
	"github.com/54b3r/bclegal-go/internal/version"
)

// buildOrchestrator constructs the retrieval orchestrator from RAG_* and
// EMBEDDING_* settings. A broken embedding configuration is not fatal: the
// local hashing embedder takes over and retrieval runs on it.
func buildOrchestrator(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*rag.Orchestrator, config.RAGSettings, error) {
	settings := config.RAGFromEnv()
	fallback := embedder.NewHashing(embedder.DefaultHashingDimensions)

	var upstream rag.Embedder = fallback
	if err := embedder.Validate(log); err != nil {
		log.Warn("embedder: invalid configuration, using local hashing embedder", slog.Any("error", err))
	} else {
		e, err := embedder.NewFromEnv(ctx)
		if err != nil {
			log.Warn("embedder: init failed, using local hashing embedder", slog.Any("error", err))
		} else {
			upstream = e
			backend := embedder.ResolveBackend()
			log.Info("embedder initialised",
				slog.String("backend", backend),
				slog.Int("expected_dimensions", embedder.DefaultDimensions(backend)),
			)
		}
	}

	var limiter *rate.Limiter
	if settings.FetchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.FetchRate), 1)
	}

	orch, err := rag.New(&rag.Config{
		Sources: settings.Sources,
		Fetcher: rag.NewHTTPFetcher(&rag.FetcherConfig{
			UserAgent: "bclegal/" + version.Version,
		}),
		Embedder:         upstream,
		FallbackEmbedder: fallback,
		ChunkSize:        settings.ChunkSize,
		ChunkOverlap:     settings.ChunkOverlap,
		FetchWorkers:     settings.FetchWorkers,
		FetchLimiter:     limiter,
		DefaultTopK:      settings.TopK,
		Metrics:          rag.NewMetrics(reg),
		Logger:           log,
	})
	if err != nil {
		return nil, settings, fmt.Errorf("failed to initialise retrieval: %w", err)
	}
	return orch, settings, nil
}

// buildRecommender loads the candidate catalog (SQLite, then JSON, then the
// curated fallback) and wraps it in a Recommender.
func buildRecommender(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*recommend.Recommender, error) {
	defaultDB, err := catalog.DefaultDBPath()
	if err != nil {
		log.Warn("catalog: could not resolve default DB path", slog.Any("error", err))
		defaultDB = ""
	}
	settings := config.CatalogFromEnv(defaultDB)

	c, src, err := catalog.Load(ctx, &catalog.Config{
		SQLitePath:    settings.DBPath,
		LawyersPath:   settings.LawyersPath,
		ResourcesPath: settings.ResourcesPath,
		Metrics:       catalog.NewMetrics(reg),
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("catalog loaded",
		slog.String("source", string(src)),
		slog.Int("lawyers", len(c.Lawyers)),
		slog.Int("resources", len(c.Resources)),
	)

	return recommend.New(&recommend.Config{
		Lawyers:   c.Lawyers,
		Resources: c.Resources,
		Logger:    log,
	}), nil
}

// buildReporter constructs the report generator over r. It returns the
// provider config even on failure so callers can log the backend.
func buildReporter(ctx context.Context, r rag.Retriever, settings config.RAGSettings) (*report.Generator, *provider.Config, error) {
	chatModel, providerCfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, providerCfg, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	er, err := rag.NewEinoRetriever(r, settings.TopK)
	if err != nil {
		return nil, providerCfg, err
	}
	gen, err := report.New(&report.Config{
		ChatModel:        chatModel,
		Retriever:        er,
		TopK:             settings.TopK,
		MaxContextTokens: settings.MaxContextTokens,
	})
	if err != nil {
		return nil, providerCfg, err
	}
	return gen, providerCfg, nil
}

// profileFlags binds the user-profile form to command flags.
type profileFlags struct {
	legalType   string
	legalMatter string
	location    string
	userType    string
	email       string
	demo        recommend.DemographicFlags
}

func (f *profileFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.legalType, "type", "t", "", "Legal area, e.g. \"Family Law\"")
	fs.StringVarP(&f.legalMatter, "matter", "m", "", "Short description of the legal matter")
	fs.StringVarP(&f.location, "location", "l", "", "City or region in BC")
	fs.StringVar(&f.userType, "user-type", "individual", "Who is asking (individual, business, ...)")
	fs.StringVar(&f.email, "email", "", "Contact email to include in the report")
	fs.BoolVar(&f.demo.FirstNation, "first-nation", false, "Identifies as First Nations, Métis or Inuit")
	fs.BoolVar(&f.demo.LowIncome, "low-income", false, "Low income")
	fs.BoolVar(&f.demo.Disability, "disability", false, "Person with a disability")
	fs.BoolVar(&f.demo.LGBTQ, "lgbtq", false, "Identifies as LGBTQ2S+")
	fs.BoolVar(&f.demo.VisibleMinority, "visible-minority", false, "Member of a visible minority")
	fs.BoolVar(&f.demo.Senior, "senior", false, "Senior (65+)")
}

// profile builds a UserProfile. The query is the positional arguments, or
// the matter and type when none are given.
func (f *profileFlags) profile(args []string) recommend.UserProfile {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		query = strings.TrimSpace(strings.TrimSpace(f.legalMatter) + " " + strings.TrimSpace(f.legalType))
	}
	return recommend.UserProfile{
		Query:        query,
		LegalType:    strings.TrimSpace(f.legalType),
		LegalMatter:  strings.TrimSpace(f.legalMatter),
		Location:     strings.TrimSpace(f.location),
		UserType:     strings.TrimSpace(f.userType),
		Email:        strings.TrimSpace(f.email),
		Demographics: f.demo.Set(),
	}
}
