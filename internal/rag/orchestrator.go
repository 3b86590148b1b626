package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/54b3r/bclegal-go/internal/chunker"
	"github.com/54b3r/bclegal-go/internal/vectorindex"
)

// State is the lifecycle stage of an Orchestrator.
type State int32

const (
	// StateUninitialized means Initialize has not run yet.
	StateUninitialized State = iota
	// StateInitializing means an Initialize call is in flight.
	StateInitializing
	// StateReady means the live sources were indexed.
	StateReady
	// StateDegraded means the curated fallback set was indexed instead.
	StateDegraded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is Ready or Degraded. Terminal states are final
// for the life of the process.
func (s State) Terminal() bool {
	return s == StateReady || s == StateDegraded
}

const (
	// DefaultTopK is the fragment count returned when Retrieve gets k <= 0.
	DefaultTopK = 5

	// DefaultMinDocumentChars is the shortest document text kept for indexing.
	DefaultMinDocumentChars = 100
)

var errNoDocuments = errors.New("rag: no documents survived fetching")

// Config holds the dependencies and tuning for an Orchestrator.
type Config struct {
	// Sources is the bounded list of documents to fetch. Defaults to DefaultSources.
	Sources []Source

	// Fetcher retrieves each source. Defaults to an HTTPFetcher.
	Fetcher Fetcher

	// Embedder is the upstream embedding service. It is wrapped in a Gateway.
	Embedder Embedder

	// FallbackEmbedder is a local embedder used for the curated set when the
	// upstream service is unreachable. Required.
	FallbackEmbedder Embedder

	// ChunkSize and ChunkOverlap configure the chunker. Zero means the
	// chunker defaults.
	ChunkSize    int
	ChunkOverlap int

	// MinDocumentChars discards shorter documents. Defaults to 100.
	MinDocumentChars int

	// FetchWorkers bounds concurrent fetches. Defaults to 1 (sequential).
	FetchWorkers int

	// FetchLimiter optionally paces fetches. Nil disables pacing.
	FetchLimiter *rate.Limiter

	// DefaultTopK is used when Retrieve is called with k <= 0. Defaults to 5.
	DefaultTopK int

	// Metrics records orchestrator metrics. Nil disables them.
	Metrics *Metrics

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Stats summarises what the orchestrator has indexed.
type Stats struct {
	State     string `json:"state"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
}

// Orchestrator owns the document, chunk, and index state and answers
// retrieval queries. Initialization happens once; afterwards all state is
// read-only and shared by concurrent callers.
type Orchestrator struct {
	// cfg holds the resolved configuration.
	cfg *Config

	// gateway enforces the embedding contract on the upstream embedder.
	gateway *Gateway

	// chunker splits document text.
	chunker *chunker.Chunker

	// log is the structured logger.
	log *slog.Logger

	// initMu serialises Initialize so at most one build runs.
	initMu sync.Mutex

	// mu guards the fields below.
	mu        sync.RWMutex
	state     State
	documents []Document
	fragments []Fragment
	index     *vectorindex.FlatL2
	// queryEmbedder embeds queries with the same model that built the index.
	queryEmbedder Embedder
}

// New constructs an Orchestrator in the Uninitialized state.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rag: config must not be nil")
	}
	gw, err := NewGateway(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackEmbedder == nil {
		return nil, fmt.Errorf("rag: fallback embedder must not be nil")
	}

	var opts []chunker.Option
	if cfg.ChunkSize > 0 {
		opts = append(opts, chunker.WithSize(cfg.ChunkSize))
	}
	if cfg.ChunkOverlap > 0 {
		opts = append(opts, chunker.WithOverlap(cfg.ChunkOverlap))
	}
	ch, err := chunker.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("rag: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewHTTPFetcher(nil)
	}
	if cfg.MinDocumentChars <= 0 {
		cfg.MinDocumentChars = DefaultMinDocumentChars
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 1
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cfg.Metrics.setState(StateUninitialized)

	return &Orchestrator{
		cfg:     cfg,
		gateway: gw,
		chunker: ch,
		log:     cfg.Logger,
		state:   StateUninitialized,
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Stats returns a snapshot of the indexed content.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := Stats{
		State:     o.state.String(),
		Documents: len(o.documents),
	}
	if o.index != nil {
		st.Chunks = o.index.Len()
		st.Dimension = o.index.Dim()
	}
	return st
}

// Documents returns a copy of the indexed documents.
func (o *Orchestrator) Documents() []Document {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]Document(nil), o.documents...)
}

// Initialize fetches, chunks, embeds, and indexes the configured sources.
// Any failure along the way switches to the curated fallback set, so a nil
// return always means a terminal state was reached. If ctx ends first, its
// error is returned and the orchestrator stays Uninitialized. Concurrent
// callers wait for the in-flight build; calls after a terminal state are
// no-ops.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	if o.State().Terminal() {
		return nil
	}

	start := time.Now()
	o.setState(StateInitializing)
	o.log.Info("rag: initializing",
		slog.Int("sources", len(o.cfg.Sources)),
		slog.Int("chunk_size", o.chunker.Size()),
		slog.Int("chunk_overlap", o.chunker.Overlap()),
	)

	if err := o.build(ctx); err != nil {
		// Cancellation by the caller is not an upstream failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.setState(StateUninitialized)
			return fmt.Errorf("rag: initialize: %w", ctxErr)
		}
		if ferr := o.degrade(ctx, err); ferr != nil {
			o.setState(StateUninitialized)
			return ferr
		}
	}

	o.cfg.Metrics.observeInit(time.Since(start).Seconds())
	st := o.Stats()
	o.log.Info("rag: initialized",
		slog.String("state", st.State),
		slog.Int("documents", st.Documents),
		slog.Int("chunks", st.Chunks),
		slog.Int("dimension", st.Dimension),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// build runs the live path and publishes a Ready state on success.
func (o *Orchestrator) build(ctx context.Context) error {
	docs := o.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	kept := docs[:0]
	for _, d := range docs {
		if utf8.RuneCountInString(d.RawText) < o.cfg.MinDocumentChars {
			o.log.Warn("rag: discarding short document",
				slog.String("url", d.URL),
				slog.Int("chars", utf8.RuneCountInString(d.RawText)),
			)
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return errNoDocuments
	}

	fragments, err := o.chunkAll(kept)
	if err != nil {
		return err
	}

	idx, err := o.embedAndIndex(ctx, o.gateway, fragments)
	if err != nil {
		return err
	}

	o.publish(StateReady, kept, fragments, idx, o.gateway)
	return nil
}

// fetchAll fetches every source with bounded concurrency. The result keeps
// source order and omits sources that failed.
func (o *Orchestrator) fetchAll(ctx context.Context) []Document {
	results := make([]*Document, len(o.cfg.Sources))
	sem := make(chan struct{}, o.cfg.FetchWorkers)

	var wg sync.WaitGroup
	for i, src := range o.cfg.Sources {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			if o.cfg.FetchLimiter != nil {
				if err := o.cfg.FetchLimiter.Wait(ctx); err != nil {
					o.cfg.Metrics.fetchFailed()
					o.log.Warn("rag: fetch cancelled", slog.String("url", src.URL), slog.Any("error", err))
					return
				}
			}

			o.log.Info("rag: fetching", slog.String("url", src.URL))
			doc, err := o.cfg.Fetcher.Fetch(ctx, src)
			if err != nil {
				o.cfg.Metrics.fetchFailed()
				o.log.Warn("rag: fetch failed", slog.String("url", src.URL), slog.Any("error", err))
				return
			}
			o.log.Info("rag: fetched",
				slog.String("title", doc.Title),
				slog.Int("chars", utf8.RuneCountInString(doc.RawText)),
			)
			results[i] = doc
		})
	}
	wg.Wait()

	docs := make([]Document, 0, len(results))
	for _, d := range results {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	return docs
}

// chunkAll splits every document into fragments in document order.
func (o *Orchestrator) chunkAll(docs []Document) ([]Fragment, error) {
	var fragments []Fragment
	for _, d := range docs {
		chunks, err := o.chunker.Split(d.ID, d.RawText)
		if err != nil {
			return nil, fmt.Errorf("rag: chunking %q: %w", d.Title, err)
		}
		for i, c := range chunks {
			fragments = append(fragments, Fragment{
				ID:         chunkID(d.ID, i),
				Text:       c.Text,
				Source:     d.Title,
				URL:        d.URL,
				DocumentID: d.ID,
				Start:      c.Start,
				End:        c.End,
				Metadata:   documentMetadata(d),
			})
		}
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("rag: documents produced no chunks")
	}
	return fragments, nil
}

// embedAndIndex embeds fragment texts in one batch and builds an index sized
// to the returned dimensionality.
func (o *Orchestrator) embedAndIndex(ctx context.Context, e Embedder, fragments []Fragment) (*vectorindex.FlatL2, error) {
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrGatewayFailure, len(vectors), len(texts))
	}

	idx, err := vectorindex.New(len(vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("rag: building index: %w", err)
	}
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("rag: building index: %w", err)
	}
	return idx, nil
}

// publish installs a fully built snapshot and moves to a terminal state.
func (o *Orchestrator) publish(s State, docs []Document, fragments []Fragment, idx *vectorindex.FlatL2, queryEmbedder Embedder) {
	o.mu.Lock()
	o.documents = docs
	o.fragments = fragments
	o.index = idx
	o.queryEmbedder = queryEmbedder
	o.state = s
	o.mu.Unlock()
	o.cfg.Metrics.setState(s)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.cfg.Metrics.setState(s)
}

// Retrieve returns up to k fragments most similar to query, ordered by
// descending similarity. The orchestrator is initialized on first use.
// Upstream failures during the query yield an empty result, not an error.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, k int) ([]Fragment, error) {
	if k <= 0 {
		k = o.cfg.DefaultTopK
	}
	if !o.State().Terminal() {
		if err := o.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	o.mu.RLock()
	idx, fragments, emb := o.index, o.fragments, o.queryEmbedder
	o.mu.RUnlock()

	vectors, err := emb.Embed(WithQuery(ctx), []string{query})
	if err != nil || len(vectors) != 1 {
		o.cfg.Metrics.queryFailed("embed")
		o.log.Warn("rag: query embedding failed, returning no fragments", slog.Any("error", err))
		return []Fragment{}, nil
	}

	distances, labels, err := idx.Search(vectors[0], k)
	if err != nil {
		o.cfg.Metrics.queryFailed("search")
		o.log.Error("rag: index search failed, returning no fragments", slog.Any("error", err))
		return []Fragment{}, nil
	}

	out := make([]Fragment, 0, len(labels))
	for i, label := range labels {
		f := fragments[label]
		f.Metadata = maps.Clone(f.Metadata)
		f.Similarity = vectorindex.Similarity(distances[i])
		out = append(out, f)
	}
	return out, nil
}

func documentMetadata(d Document) map[string]string {
	md := map[string]string{"title": d.Title}
	if d.URL != "" {
		md["url"] = d.URL
	}
	if d.Section != "" {
		md["section"] = d.Section
	}
	if !d.FetchedAt.IsZero() {
		md["fetched_at"] = d.FetchedAt.Format(time.RFC3339)
	}
	return md
}
