package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/rag"
)

// Pinger reports whether one dependency of the service can take traffic.
// Ping must be safe for concurrent use.
type Pinger interface {
	Ping(ctx context.Context) error
	// Name labels the check in /api/ready, e.g. "retrieval" or "llm:ollama".
	Name() string
}

type readyCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// readyResponse is the body of GET /api/ready. Index is the orchestrator
// state; Degraded is set while answers come from the curated fallback set.
type readyResponse struct {
	Ready    bool         `json:"ready"`
	Index    string       `json:"index"`
	Degraded bool         `json:"degraded"`
	Checks   []readyCheck `json:"checks"`
}

// handleReady runs every Pinger concurrently, each under checkTimeout, and
// answers 503 if any of them fails. Checks keep registration order.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	checks := make([]readyCheck, len(s.pingers))
	var wg sync.WaitGroup
	for i, p := range s.pingers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()

			start := time.Now()
			err := p.Ping(ctx)
			checks[i] = readyCheck{
				Name:      p.Name(),
				OK:        err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				checks[i].Error = err.Error()
			}
		})
	}
	wg.Wait()

	st := s.retriever.Stats()
	resp := readyResponse{
		Ready:    true,
		Index:    st.State,
		Degraded: st.State == rag.StateDegraded.String(),
		Checks:   checks,
	}
	for _, c := range checks {
		if c.OK {
			continue
		}
		resp.Ready = false
		log.Warn("server: not ready",
			slog.String("check", c.Name),
			slog.String("index", st.State),
			slog.String("error", c.Error),
		)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}
