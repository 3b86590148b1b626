package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/54b3r/bclegal-go/internal/provider"
	"github.com/54b3r/bclegal-go/internal/rag"
)

// HTTPPinger checks a dependency with an authenticated GET that costs no
// tokens, such as a model listing endpoint.
type HTTPPinger struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPPinger constructs an HTTPPinger for hc. name labels the dependency
// in readiness responses (e.g. "llm:ollama").
func NewHTTPPinger(name string, hc *provider.HealthCheckConfig) *HTTPPinger {
	return &HTTPPinger{
		name:    name,
		url:     hc.URL,
		headers: hc.Headers,
		client:  &http.Client{Timeout: checkTimeout},
	}
}

// Name returns the dependency label.
func (p *HTTPPinger) Name() string { return p.name }

// Ping succeeds on any 2xx response.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// stateReporter is the subset of *rag.Orchestrator the readiness check needs.
type stateReporter interface {
	State() rag.State
}

// RetrievalPinger reports ready once the retrieval index has reached a
// terminal state. Degraded counts as ready: queries are answered from the
// curated set.
type RetrievalPinger struct {
	o stateReporter
}

// NewRetrievalPinger constructs a RetrievalPinger for o.
func NewRetrievalPinger(o stateReporter) *RetrievalPinger {
	return &RetrievalPinger{o: o}
}

// Name returns the dependency label.
func (p *RetrievalPinger) Name() string { return "retrieval" }

// Ping returns an error while the index is still being built.
func (p *RetrievalPinger) Ping(_ context.Context) error {
	if st := p.o.State(); !st.Terminal() {
		return fmt.Errorf("index %s", st)
	}
	return nil
}

// checkTimeout is the maximum time allowed for each individual dependency
// check during a readiness pass.
const checkTimeout = 5 * time.Second
