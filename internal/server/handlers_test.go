package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/rag"
	"github.com/54b3r/bclegal-go/internal/recommend"
	"github.com/54b3r/bclegal-go/internal/report"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeRetriever struct {
	fragments []rag.Fragment
	err       error
	state     rag.State

	mu    sync.Mutex
	gotK  int
	gotQ  string
	calls int
}

func (f *fakeRetriever) Retrieve(_ context.Context, q string, k int) ([]rag.Fragment, error) {
	f.mu.Lock()
	f.gotQ, f.gotK = q, k
	f.calls++
	f.mu.Unlock()
	return f.fragments, f.err
}

func (f *fakeRetriever) Stats() rag.Stats {
	return rag.Stats{State: f.state.String(), Documents: 1, Chunks: len(f.fragments), Dimension: 384}
}

func (f *fakeRetriever) State() rag.State { return f.state }

type fakeRecommender struct {
	recs recommend.Recommendations

	mu  sync.Mutex
	got recommend.UserProfile
}

func (f *fakeRecommender) Recommend(_ context.Context, p recommend.UserProfile) recommend.Recommendations {
	f.mu.Lock()
	f.got = p
	f.mu.Unlock()
	return f.recs
}

func (f *fakeRecommender) Counts() (int, int) { return 4, 4 }

// fakeReporter writes response to w in two chunks, or fails with err.
type fakeReporter struct {
	response string
	sources  []string
	err      error
}

func (f *fakeReporter) Generate(_ context.Context, _ *recommend.UserProfile, _ string, w io.Writer) (*report.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	half := len(f.response) / 2
	_, _ = io.WriteString(w, f.response[:half])
	_, _ = io.WriteString(w, f.response[half:])
	return &report.Result{Sources: f.sources, Bytes: len(f.response)}, nil
}

// newTestServer builds a Server over fakes with an isolated registry.
func newTestServer(t *testing.T, deps Deps) (*Server, *prometheus.Registry) {
	t.Helper()
	if deps.Retriever == nil {
		deps.Retriever = &fakeRetriever{state: rag.StateReady}
	}
	if deps.Recommender == nil {
		deps.Recommender = &fakeRecommender{}
	}
	reg := prometheus.NewRegistry()
	s, err := New(deps, &Config{
		Logger:          logging.Discard(),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
		RateLimit:       1000,
		RateBurst:       1000,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, reg
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{Recommender: &fakeRecommender{}}, nil); err == nil {
		t.Error("New() without retriever: expected error")
	}
	if _, err := New(Deps{Retriever: &fakeRetriever{}}, nil); err == nil {
		t.Error("New() without recommender: expected error")
	}
}

// ---------------------------------------------------------------------------
// POST /api/retrieve
// ---------------------------------------------------------------------------

func TestHandleRetrieve(t *testing.T) {
	t.Parallel()

	fr := &fakeRetriever{
		state: rag.StateDegraded,
		fragments: []rag.Fragment{
			{ID: "c1", Source: "Residential Tenancy Act", Text: "landlords must provide 24 hours written notice", Similarity: 0.91},
		},
	}
	s, reg := newTestServer(t, Deps{Retriever: fr})

	w := do(t, s, http.MethodPost, "/api/retrieve", `{"query":" landlord entry ","k":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp retrieveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "degraded" {
		t.Errorf("state = %q, want degraded", resp.State)
	}
	if len(resp.Fragments) != 1 || resp.Fragments[0].Source != "Residential Tenancy Act" {
		t.Errorf("fragments = %+v", resp.Fragments)
	}
	if fr.gotQ != "landlord entry" || fr.gotK != 3 {
		t.Errorf("retriever got (%q, %d), want (landlord entry, 3)", fr.gotQ, fr.gotK)
	}
	if n := testutil.CollectAndCount(reg, "bclegal_retrieve_fragments"); n != 1 {
		t.Errorf("bclegal_retrieve_fragments series = %d, want 1", n)
	}
}

func TestHandleRetrieve_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not-json`},
		{"missing query", `{"k":3}`},
		{"blank query", `{"query":"   "}`},
		{"negative k", `{"query":"wages","k":-1}`},
		{"k too large", `{"query":"wages","k":500}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fr := &fakeRetriever{state: rag.StateReady}
			s, _ := newTestServer(t, Deps{Retriever: fr})
			w := do(t, s, http.MethodPost, "/api/retrieve", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if fr.calls != 0 {
				t.Errorf("retriever called %d times on a bad request", fr.calls)
			}
		})
	}
}

func TestHandleRetrieve_Error(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{Retriever: &fakeRetriever{err: errors.New("fallback failed")}})
	w := do(t, s, http.MethodPost, "/api/retrieve", `{"query":"wages"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "fallback failed") {
		t.Errorf("internal error leaked to client: %q", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// POST /api/recommendations
// ---------------------------------------------------------------------------

func TestHandleRecommendations(t *testing.T) {
	t.Parallel()

	fr := &fakeRecommender{recs: recommend.Recommendations{
		Lawyers:   []recommend.LawyerResult{{Name: "Legal Aid BC", Score: 0.8}},
		Resources: []recommend.ResourceResult{},
		Summary:   "Found 1 lawyers",
	}}
	s, _ := newTestServer(t, Deps{Recommender: fr})

	body := `{"legalMatter":"unpaid overtime","legalType":"Employment Law","location":"Surrey",
		"demographics":{"lowIncome":true,"firstNation":true}}`
	w := do(t, s, http.MethodPost, "/api/recommendations", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got recommend.Recommendations
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Lawyers) != 1 || got.Lawyers[0].Name != "Legal Aid BC" {
		t.Errorf("lawyers = %+v", got.Lawyers)
	}

	p := fr.got
	if p.Query != "unpaid overtime Employment Law" {
		t.Errorf("query = %q, want matter then type", p.Query)
	}
	if !p.Demographics.Has(recommend.LowIncome|recommend.FirstNation) || p.Demographics.Has(recommend.Senior) {
		t.Errorf("demographics = %v", p.Demographics)
	}
	if v := testutil.ToFloat64(s.metrics.recommendationsTotal.WithLabelValues("ok")); v != 1 {
		t.Errorf("recommendations ok = %v, want 1", v)
	}
}

func TestHandleRecommendations_Unavailable(t *testing.T) {
	t.Parallel()

	fr := &fakeRecommender{recs: recommend.Recommendations{
		Lawyers:   []recommend.LawyerResult{},
		Resources: []recommend.ResourceResult{},
		Error:     "recommend: boom",
	}}
	s, _ := newTestServer(t, Deps{Recommender: fr})

	w := do(t, s, http.MethodPost, "/api/recommendations", `{"query":"eviction"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if v := testutil.ToFloat64(s.metrics.recommendationsTotal.WithLabelValues("unavailable")); v != 1 {
		t.Errorf("recommendations unavailable = %v, want 1", v)
	}
}

func TestHandleRecommendations_EmptyProfile(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{})
	w := do(t, s, http.MethodPost, "/api/recommendations", `{"location":"Victoria"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/report
// ---------------------------------------------------------------------------

func TestHandleReport_NotRegisteredWithoutReporter(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{})
	w := do(t, s, http.MethodPost, "/api/report", `{"formData":{"legalMatter":"x"}}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a chat model, got %d", w.Code)
	}
}

func TestHandleReport_Success(t *testing.T) {
	t.Parallel()

	rep := &fakeReporter{
		response: "<h2>Legal Analysis</h2>\n<p>Overtime is owed.</p>",
		sources:  []string{"Employment Standards Act"},
	}
	s, _ := newTestServer(t, Deps{Reporter: rep})

	w := do(t, s, http.MethodPost, "/api/report", `{"formData":{"legalMatter":"unpaid overtime","legalType":"Employment Law"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"data: <h2>Legal Analysis</h2>\n",
		"event: sources\ndata: [\"Employment Standards Act\"]\n\n",
		"event: done\ndata: [DONE]\n\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if v := testutil.ToFloat64(s.metrics.reportRequestsTotal.WithLabelValues("ok")); v != 1 {
		t.Errorf("report ok = %v, want 1", v)
	}
	if v := testutil.ToFloat64(s.metrics.reportActiveStreams); v != 0 {
		t.Errorf("active streams = %v, want 0 after completion", v)
	}
}

func TestHandleReport_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{"model failure", fmt.Errorf("report: stream failed: %w", errors.New("401 unauthorized")), "error"},
		{"timeout", fmt.Errorf("report: stream receive error: %w", context.DeadlineExceeded), "timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestServer(t, Deps{Reporter: &fakeReporter{err: tc.err}})
			w := do(t, s, http.MethodPost, "/api/report", `{"prompt":"custom"}`)

			body := w.Body.String()
			if !strings.Contains(body, "event: error") {
				t.Errorf("expected error event, got: %s", body)
			}
			if strings.Contains(body, "unauthorized") {
				t.Errorf("internal error leaked to client: %s", body)
			}
			if strings.Contains(body, "event: done") {
				t.Errorf("done event sent after failure: %s", body)
			}
			if v := testutil.ToFloat64(s.metrics.reportRequestsTotal.WithLabelValues(tc.outcome)); v != 1 {
				t.Errorf("report %s = %v, want 1", tc.outcome, v)
			}
		})
	}
}

func TestHandleReport_BadRequest(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{Reporter: &fakeReporter{}})
	for _, body := range []string{`not-json`, `{"formData":{}}`} {
		w := do(t, s, http.MethodPost, "/api/report", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// GET /api/status
// ---------------------------------------------------------------------------

func TestHandleStatus(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{Reporter: &fakeReporter{}})
	w := do(t, s, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RAG.State != "ready" || resp.RAG.Dimension != 384 {
		t.Errorf("rag = %+v", resp.RAG)
	}
	if resp.Lawyers != 4 || resp.Resources != 4 || !resp.Reports {
		t.Errorf("status = %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

// ---------------------------------------------------------------------------
// sseWriter
// ---------------------------------------------------------------------------

func TestSSEWriter_MultiLine(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	sw := &sseWriter{w: w, rc: http.NewResponseController(w)}
	n, err := sw.Write([]byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if n != len("line one\nline two\n") {
		t.Errorf("n = %d", n)
	}
	if got, want := w.Body.String(), "data: line one\ndata: line two\n\n"; got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}
