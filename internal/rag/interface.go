// Package rag implements the retrieval side of the assistant: it fetches BC
// legal documents, chunks and embeds them into an exact in-memory vector
// index, and answers similarity queries over the resulting fragments.
// When the live sources or the embedding service are unavailable the
// orchestrator degrades to a small curated set of BC statutes so retrieval
// always has something to return.
package rag

import (
	"context"
	"time"
)

// Document is a fetched source text. It is immutable after creation.
type Document struct {
	// ID is a deterministic identifier derived from the URL (or title).
	ID string

	// Title is the human-readable name of the source (e.g. "Employment Standards Act").
	Title string

	// URL is the origin of the document. Empty for curated documents.
	URL string

	// Section optionally names the part of the statute the text covers.
	Section string

	// RawText is the whitespace-normalised document body.
	RawText string

	// FetchedAt is when the document was retrieved.
	FetchedAt time.Time
}

// Fragment is a chunk returned by retrieval, carrying its source attribution
// and similarity to the query.
type Fragment struct {
	// ID is a deterministic identifier for the chunk.
	ID string

	// Text is the chunk content.
	Text string

	// Source is the title of the document the chunk came from.
	Source string

	// URL is the document URL, if any.
	URL string

	// DocumentID links the fragment to its Document.
	DocumentID string

	// Start and End are byte offsets of the chunk within the document text.
	Start int
	End   int

	// Metadata holds descriptive attributes (title, url, section, fetched_at).
	Metadata map[string]string

	// Similarity is 1 - squared L2 distance. Higher is more similar; the
	// value is a ranking score and may be negative.
	Similarity float64
}

// Source is one configured document location.
type Source struct {
	// URL is the page to fetch.
	URL string

	// Title overrides the document title. Defaults to DefaultTitle.
	Title string
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type queryKey struct{}

// WithQuery marks ctx as embedding search queries rather than documents.
// Embedders whose models distinguish the two (Gemini task types) read it
// with IsQuery; the rest ignore it.
func WithQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryKey{}, true)
}

// IsQuery reports whether ctx was marked by WithQuery.
func IsQuery(ctx context.Context) bool {
	q, _ := ctx.Value(queryKey{}).(bool)
	return q
}

// Fetcher retrieves the text of a single source.
// Implementations must be safe to call from multiple goroutines.
type Fetcher interface {
	// Fetch returns the document for src or an error. A failure affects
	// only this source.
	Fetch(ctx context.Context, src Source) (*Document, error)
}

// Retriever is the high-level query interface used by prompt builders.
type Retriever interface {
	// Retrieve returns up to topK fragments ordered by descending similarity.
	Retrieve(ctx context.Context, query string, topK int) ([]Fragment, error)
}
