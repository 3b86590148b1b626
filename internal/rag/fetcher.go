package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultTitle is used when a source does not name its document.
	DefaultTitle = "BC Legal Document"

	// DefaultUserAgent identifies the fetcher to BC Laws.
	DefaultUserAgent = "BC Legal Assistant Bot 1.0"

	// DefaultMaxChars caps the normalised document text length.
	DefaultMaxChars = 50000

	// truncationMarker is appended to documents cut at MaxChars.
	truncationMarker = "... [Content truncated]"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// DefaultSources returns the source list used when none is configured.
func DefaultSources() []Source {
	return []Source{
		{
			URL:   "https://www.bclaws.gov.bc.ca/civix/document/id/complete/statreg/96165_01",
			Title: "Employment Standards Act",
		},
	}
}

// FetcherConfig holds the settings for an HTTPFetcher.
type FetcherConfig struct {
	// Timeout bounds each fetch request. Defaults to 10s if zero.
	Timeout time.Duration

	// UserAgent is sent with every request. Defaults to DefaultUserAgent.
	UserAgent string

	// MaxChars caps the document text length. Defaults to DefaultMaxChars.
	MaxChars int
}

// HTTPFetcher fetches sources over HTTP and normalises the body to plain
// whitespace-collapsed text. It does not parse HTML.
type HTTPFetcher struct {
	// cfg holds the resolved fetcher configuration.
	cfg *FetcherConfig

	// client is the HTTP client used for every fetch.
	client *http.Client

	// now is the clock used for FetchedAt.
	now func() time.Time
}

// NewHTTPFetcher constructs an HTTPFetcher, filling in defaults.
func NewHTTPFetcher(cfg *FetcherConfig) *HTTPFetcher {
	if cfg == nil {
		cfg = &FetcherConfig{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &HTTPFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Fetch retrieves src and returns it as a Document.
func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: creating request for %s: %w", src.URL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrGatewayFailure, src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d for %s", ErrGatewayFailure, resp.StatusCode, src.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %w", ErrGatewayFailure, src.URL, err)
	}

	title := src.Title
	if title == "" {
		title = DefaultTitle
	}

	return &Document{
		ID:        documentID(src.URL, title),
		Title:     title,
		URL:       src.URL,
		RawText:   normalise(string(body), f.cfg.MaxChars),
		FetchedAt: f.now().UTC(),
	}, nil
}

// normalise collapses whitespace runs to single spaces and truncates the
// result to maxChars runes, appending a marker when it does.
func normalise(s string, maxChars int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + truncationMarker
		}
		n++
	}
	return s
}

// documentID derives a stable UUIDv5 from the URL, or from the title when
// the document has no URL.
func documentID(url, title string) string {
	name := url
	if name == "" {
		name = "title:" + title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// chunkID generates a deterministic ID for a chunk from its document ID and
// position in that document.
func chunkID(documentID string, index int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s#%d", documentID, index))
	return fmt.Sprintf("%x", h[:16])
}
