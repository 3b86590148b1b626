package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/recommend"
	"github.com/54b3r/bclegal-go/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// maxTopK caps the k a caller may request from /api/retrieve.
const maxTopK = 50

// handleRetrieve handles POST /api/retrieve.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.K < 0 || req.K > maxTopK {
		http.Error(w, fmt.Sprintf("k must be between 0 and %d", maxTopK), http.StatusBadRequest)
		return
	}

	fragments, err := s.retriever.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		logging.FromContext(r.Context()).Error("retrieve failed", slog.Any("error", err))
		http.Error(w, "retrieval unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.retrieveFragments.Observe(float64(len(fragments)))

	resp := retrieveResponse{
		Query:     req.Query,
		State:     s.retriever.Stats().State,
		Fragments: make([]fragmentResult, 0, len(fragments)),
	}
	for _, f := range fragments {
		resp.Fragments = append(resp.Fragments, fragmentResult{
			ID:         f.ID,
			Source:     f.Source,
			URL:        f.URL,
			Text:       f.Text,
			Similarity: f.Similarity,
			Metadata:   f.Metadata,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleRecommendations handles POST /api/recommendations. Ranking failures
// are reported in the body's error field with a 200 status.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.profile()
	if p.Query == "" {
		http.Error(w, "legalMatter, legalType, or query is required", http.StatusBadRequest)
		return
	}

	recs := s.recommender.Recommend(r.Context(), p)
	result := "ok"
	if recs.Error != "" {
		result = "unavailable"
	}
	s.metrics.recommendationsTotal.WithLabelValues(result).Inc()
	writeJSON(w, r, http.StatusOK, recs)
}

// handleReport handles POST /api/report. The report is streamed as SSE data
// frames, followed by a "sources" event naming the legislation used and a
// "done" event. Failures after the stream starts arrive as an "error" event.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.FormData.profile()
	if req.Prompt == "" && p.Query == "" {
		http.Error(w, "formData.legalMatter or prompt is required", http.StatusBadRequest)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logging.FromContext(r.Context()).Error("streaming not supported", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ReportTimeout)
	defer cancel()

	s.metrics.reportActiveStreams.Inc()
	defer s.metrics.reportActiveStreams.Dec()
	start := time.Now()

	sw := &sseWriter{w: w, rc: rc}
	res, err := s.reporter.Generate(ctx, &p, req.Prompt, sw)

	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.metrics.reportRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.reportDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		logging.FromContext(r.Context()).Error("report failed", slog.String("outcome", outcome), slog.Any("error", err))
		sw.event("error", "report generation failed")
		return
	}

	sources, _ := json.Marshal(res.Sources)
	sw.event("sources", string(sources))
	sw.event("done", "[DONE]")
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lawyers, resources := s.recommender.Counts()
	writeJSON(w, r, http.StatusOK, statusResponse{
		Version:   version.Version,
		RAG:       s.retriever.Stats(),
		Lawyers:   lawyers,
		Resources: resources,
		Reports:   s.reporter != nil,
	})
}

// profile converts the form into a UserProfile. The query defaults to the
// matter followed by the type.
func (p profileRequest) profile() recommend.UserProfile {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		query = strings.TrimSpace(strings.TrimSpace(p.LegalMatter) + " " + strings.TrimSpace(p.LegalType))
	}
	return recommend.UserProfile{
		Query:        query,
		LegalType:    strings.TrimSpace(p.LegalType),
		LegalMatter:  strings.TrimSpace(p.LegalMatter),
		Location:     strings.TrimSpace(p.Location),
		UserType:     strings.TrimSpace(p.UserType),
		Email:        strings.TrimSpace(p.Email),
		Demographics: p.Demographics.Set(),
	}
}

// decodeJSON reads a bounded JSON body into v, writing 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event frames.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// Write formats p as one SSE data frame and flushes it. Each newline in p
// starts a new data line so multi-line chunks never break the frame.
func (s *sseWriter) Write(p []byte) (int, error) {
	if err := s.frame("", string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// event writes a named event. Errors are ignored; the client has gone.
func (s *sseWriter) event(name, data string) {
	_ = s.frame(name, data)
}

func (s *sseWriter) frame(name, data string) error {
	var buf strings.Builder
	if name != "" {
		buf.WriteString("event: ")
		buf.WriteString(name)
		buf.WriteString("\n")
	}
	for line := range strings.SplitSeq(strings.TrimRight(data, "\n"), "\n") {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err := fmt.Fprint(s.w, buf.String()); err != nil {
		return err
	}
	return s.rc.Flush()
}
