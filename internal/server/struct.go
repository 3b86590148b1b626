package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/bclegal-go/internal/rag"
	"github.com/54b3r/bclegal-go/internal/recommend"
	"github.com/54b3r/bclegal-go/internal/report"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ReportTimeout bounds a single /api/report stream. Defaults to 3 minutes.
	ReportTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency checks run by GET /api/ready.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the POST
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Deps are the request-serving components. Retriever and Recommender are
// required; Reporter is nil when no chat model is configured, which disables
// POST /api/report.
type Deps struct {
	Retriever   retriever
	Recommender recommender
	Reporter    reporter
}

// retriever answers /api/retrieve and reports index state for /api/status.
// *rag.Orchestrator satisfies it; tests inject a fake.
type retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Fragment, error)
	Stats() rag.Stats
}

// recommender answers /api/recommendations. *recommend.Recommender satisfies it.
type recommender interface {
	Recommend(ctx context.Context, p recommend.UserProfile) recommend.Recommendations
	Counts() (lawyers, resources int)
}

// reporter streams /api/report. *report.Generator satisfies it.
type reporter interface {
	Generate(ctx context.Context, p *recommend.UserProfile, prompt string, w io.Writer) (*report.Result, error)
}

// Server is the HTTP front end for retrieval, recommendations, and reports.
type Server struct {
	retriever   retriever
	recommender recommender
	reporter    reporter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency checks for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// retrieveRequest is the JSON body for POST /api/retrieve.
type retrieveRequest struct {
	Query string `json:"query"`
	// K is the number of fragments wanted. Zero means the server default.
	K int `json:"k"`
}

// retrieveResponse is the JSON response for POST /api/retrieve.
type retrieveResponse struct {
	Query     string           `json:"query"`
	State     string           `json:"state"`
	Fragments []fragmentResult `json:"fragments"`
}

// fragmentResult is the wire form of a rag.Fragment.
type fragmentResult struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	URL        string            `json:"url,omitempty"`
	Text       string            `json:"text"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// profileRequest is the user form shared by /api/recommendations and
// /api/report.
type profileRequest struct {
	Query        string                     `json:"query"`
	Email        string                     `json:"email"`
	Location     string                     `json:"location"`
	UserType     string                     `json:"userType"`
	LegalMatter  string                     `json:"legalMatter"`
	LegalType    string                     `json:"legalType"`
	Demographics recommend.DemographicFlags `json:"demographics"`
}

// reportRequest is the JSON body for POST /api/report. Prompt, when set,
// replaces the prompt built from FormData.
type reportRequest struct {
	FormData profileRequest `json:"formData"`
	Prompt   string         `json:"prompt"`
}

// statusResponse is the JSON response for GET /api/status.
type statusResponse struct {
	Version   string    `json:"version"`
	RAG       rag.Stats `json:"rag"`
	Lawyers   int       `json:"lawyers"`
	Resources int       `json:"resources"`
	Reports   bool      `json:"reports"`
}
