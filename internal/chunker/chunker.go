// Package chunker splits document text into overlapping retrievable units.
// Chunks prefer to end on a sentence ('.') or paragraph ("\n\n") boundary
// when one exists in the second half of the window; otherwise the window is
// cut at its raw end.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the default maximum chunk length in bytes.
	DefaultSize = 500

	// DefaultOverlap is the default number of bytes shared by adjacent chunks.
	DefaultOverlap = 100
)

// ErrInvalidConfig is returned when size and overlap cannot produce progress.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Chunk is a contiguous slice of one document's text.
type Chunk struct {
	// DocumentID identifies the document this chunk was cut from.
	DocumentID string

	// Text is the chunk content with surrounding whitespace trimmed.
	Text string

	// Start is the byte offset in the source text where the chunk begins.
	Start int

	// End is the exclusive byte offset in the source text where the chunk ends.
	End int
}

// Chunker holds a size/overlap pair so callers can configure it once.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the maximum chunk length.
func WithSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets how many bytes adjacent chunks share.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New builds a Chunker starting from DefaultSize and DefaultOverlap.
// The configuration is validated here so misconfiguration fails at startup.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if err := validate(c.size, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text using the chunker's configuration.
func (c *Chunker) Split(documentID, text string) ([]Chunk, error) {
	return Split(documentID, text, c.size, c.overlap)
}

// Split cuts text into chunks of at most size bytes, with adjacent chunks
// sharing up to overlap bytes. Offsets always fall on UTF-8 rune boundaries.
// Whitespace-only windows produce no chunk.
func Split(documentID, text string, size, overlap int) ([]Chunk, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	n := len(text)
	if n == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, 0, n/(size-overlap)+1)
	start := 0

	for start < n {
		end := windowEnd(text, start, size)
		window := text[start:end]

		cut := end
		next := end - overlap

		bp := max(strings.LastIndex(window, "."), strings.LastIndex(window, "\n\n"))
		if bp >= 0 && float64(bp) > float64(size)*0.5 {
			cut = start + bp + 1
			next = cut - overlap
		}

		if trimmed := strings.TrimSpace(text[start:cut]); trimmed != "" {
			chunks = append(chunks, Chunk{
				DocumentID: documentID,
				Text:       trimmed,
				Start:      start,
				End:        cut,
			})
		}

		if cut >= n {
			break
		}

		next = runeStartAtOrAfter(text, next)
		if next <= start {
			// The overlap would rewind past the current window; continue
			// from the cut without overlap.
			next = cut
		}
		start = next
	}

	return chunks, nil
}

// validate rejects configurations where the scan could not move forward.
func validate(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	case overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, overlap)
	case size <= overlap:
		return fmt.Errorf("%w: size %d must exceed overlap %d", ErrInvalidConfig, size, overlap)
	}
	return nil
}

// windowEnd returns start+size clamped to the text and moved back to a rune
// boundary. A window always contains at least one rune.
func windowEnd(text string, start, size int) int {
	end := start + size
	if end >= len(text) {
		return len(text)
	}
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		_, w := utf8.DecodeRuneInString(text[start:])
		end = start + w
	}
	return end
}

// runeStartAtOrAfter moves i forward to the next rune boundary.
func runeStartAtOrAfter(text string, i int) int {
	if i < 0 {
		return 0
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
