package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/bclegal-go/internal/provider"
	"github.com/54b3r/bclegal-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Fake Pinger for readiness tests
// ---------------------------------------------------------------------------

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	// name is returned by Name().
	name string
	// err is returned by Ping(); nil means healthy.
	err error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// newReadyTestServer builds a *Server with the given pingers wired in.
func newReadyTestServer(t *testing.T, pingers ...Pinger) *Server {
	t.Helper()
	s, _ := newTestServer(t, Deps{})
	s.pingers = pingers
	return s
}

// ---------------------------------------------------------------------------
// GET /api/health: liveness
// ---------------------------------------------------------------------------

// TestHandleHealth_OK verifies that GET /api/health returns 200 with a JSON
// body containing {"status":"ok"}.
func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d, body: %s", w.Code, w.Body.String())
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: expected %q, got %q", "ok", body["status"])
	}
}

// ---------------------------------------------------------------------------
// GET /api/ready: readiness
// ---------------------------------------------------------------------------

// TestHandleReady_NoPingers verifies that /api/ready returns 200 with
// ready:true and an empty checks array when no pingers are registered.
func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready {
		t.Errorf("expected ready:true with no pingers")
	}
	if len(resp.Checks) != 0 {
		t.Errorf("expected 0 checks, got %d", len(resp.Checks))
	}
}

// TestHandleReady_AllHealthy verifies that /api/ready returns 200 with
// ready:true when all pingers succeed.
func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t,
		&fakePinger{name: "llm:ollama", err: nil},
		&fakePinger{name: "retrieval", err: nil},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready {
		t.Errorf("expected ready:true")
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(resp.Checks))
	}
	for _, c := range resp.Checks {
		if !c.OK {
			t.Errorf("check %q: expected ok:true", c.Name)
		}
		if c.Error != "" {
			t.Errorf("check %q: expected no error, got %q", c.Name, c.Error)
		}
	}
}

// TestHandleReady_OneFailing verifies that /api/ready returns 503 with
// ready:false when one pinger fails, and the failing check has ok:false
// with a non-empty error field.
func TestHandleReady_OneFailing(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t,
		&fakePinger{name: "llm:ollama", err: nil},
		&fakePinger{name: "retrieval", err: errors.New("connection refused")},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Errorf("expected ready:false")
	}

	var retrievalCheck *readyCheck
	for i := range resp.Checks {
		if resp.Checks[i].Name == "retrieval" {
			retrievalCheck = &resp.Checks[i]
		}
	}
	if retrievalCheck == nil {
		t.Fatal("retrieval check missing from response")
	}
	if retrievalCheck.OK {
		t.Errorf("retrieval check: expected ok:false")
	}
	if retrievalCheck.Error == "" {
		t.Errorf("retrieval check: expected non-empty error")
	}
}

// TestHandleReady_AllFailing verifies that /api/ready returns 503 with
// ready:false and all checks showing ok:false when every pinger fails.
func TestHandleReady_AllFailing(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t,
		&fakePinger{name: "llm:ollama", err: errors.New("timeout")},
		&fakePinger{name: "retrieval", err: errors.New("connection refused")},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Errorf("expected ready:false")
	}
	for _, c := range resp.Checks {
		if c.OK {
			t.Errorf("check %q: expected ok:false", c.Name)
		}
	}
}

// TestHandleReady_ContentType verifies the response always has Content-Type
// application/json regardless of check outcome.
func TestHandleReady_ContentType(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t, &fakePinger{name: "llm:ollama", err: errors.New("down")})
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}
}

// ---------------------------------------------------------------------------
// Pingers
// ---------------------------------------------------------------------------

func TestRetrievalPinger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   rag.State
		wantErr bool
	}{
		{rag.StateUninitialized, true},
		{rag.StateInitializing, true},
		{rag.StateReady, false},
		{rag.StateDegraded, false},
	}
	for _, tc := range tests {
		err := NewRetrievalPinger(&fakeRetriever{state: tc.state}).Ping(context.Background())
		if (err != nil) != tc.wantErr {
			t.Errorf("state %s: Ping() error = %v, wantErr %v", tc.state, err, tc.wantErr)
		}
	}
}

func TestHTTPPinger(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ok := NewHTTPPinger("llm:azure", &provider.HealthCheckConfig{URL: srv.URL, Headers: map[string]string{"api-key": "secret"}})
	if err := ok.Ping(context.Background()); err != nil {
		t.Errorf("Ping() with valid key: %v", err)
	}
	if ok.Name() != "llm:azure" {
		t.Errorf("Name() = %q", ok.Name())
	}

	bad := NewHTTPPinger("llm:azure", &provider.HealthCheckConfig{URL: srv.URL})
	if err := bad.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Ping() without key: error = %v, want status 401", err)
	}
}

// TestHandleReady_ReportsIndexState verifies the retrieval state is echoed
// and that a degraded index still counts as ready.
func TestHandleReady_ReportsIndexState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state        rag.State
		wantStatus   int
		wantDegraded bool
	}{
		{rag.StateInitializing, http.StatusServiceUnavailable, false},
		{rag.StateReady, http.StatusOK, false},
		{rag.StateDegraded, http.StatusOK, true},
	}
	for _, tc := range tests {
		t.Run(tc.state.String(), func(t *testing.T) {
			t.Parallel()

			fr := &fakeRetriever{state: tc.state}
			s, _ := newTestServer(t, Deps{Retriever: fr})
			s.pingers = []Pinger{NewRetrievalPinger(fr)}

			w := do(t, s, http.MethodGet, "/api/ready", "")
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d, body: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			var resp readyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Index != tc.state.String() {
				t.Errorf("index: expected %q, got %q", tc.state, resp.Index)
			}
			if resp.Degraded != tc.wantDegraded {
				t.Errorf("degraded: expected %v, got %v", tc.wantDegraded, resp.Degraded)
			}
			if len(resp.Checks) != 1 || resp.Checks[0].Name != "retrieval" {
				t.Errorf("checks = %+v, want one retrieval check", resp.Checks)
			}
		})
	}
}

// TestReady_Routed verifies /api/ready is reachable through the full handler.
func TestReady_Routed(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, Deps{})
	s.pingers = []Pinger{NewRetrievalPinger(&fakeRetriever{state: rag.StateInitializing})}
	w := do(t, s, http.MethodGet, "/api/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while initializing, got %d", w.Code)
	}
}
