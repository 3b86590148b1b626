package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

// covered reports whether every non-space byte of text lies inside a chunk.
func covered(t *testing.T, text string, chunks []Chunk) {
	t.Helper()
	mask := make([]bool, len(text))
	for _, c := range chunks {
		for i := c.Start; i < c.End; i++ {
			mask[i] = true
		}
	}
	for i, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !mask[i] {
			t.Fatalf("byte %d (%q) not covered by any chunk", i, r)
		}
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("doc", "some text", tc.size, tc.overlap)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Split(%d, %d) error = %v, want ErrInvalidConfig", tc.size, tc.overlap, err)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc", "", DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("want 0 chunks, got %d", len(chunks))
	}
}

func TestSplit_WhitespaceOnly(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc", "    \n\n\t   ", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("want 0 chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestSplit_ShortSentences(t *testing.T) {
	t.Parallel()

	text := "A. B. C."
	chunks, err := Split("doc", text, 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("want at least one chunk")
	}
	for i, c := range chunks {
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if c.Start >= c.End {
			t.Errorf("chunk %d: start %d >= end %d", i, c.Start, c.End)
		}
	}
	covered(t, text, chunks)

	// Reassemble by taking each chunk's leading edge over the previous tail.
	var sb strings.Builder
	pos := 0
	for _, c := range chunks {
		if c.End > pos {
			sb.WriteString(text[max(pos, c.Start):c.End])
			pos = c.End
		}
	}
	if got := sb.String(); got != text {
		t.Errorf("reassembled %q, want %q", got, text)
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	t.Parallel()

	text := "The tenant must pay rent. The landlord must give notice before entry"
	chunks, err := Split("doc", text, 40, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("want at least 2 chunks, got %d", len(chunks))
	}
	if want := "The tenant must pay rent."; chunks[0].Text != want {
		t.Errorf("first chunk = %q, want %q", chunks[0].Text, want)
	}
	if chunks[0].End != len("The tenant must pay rent.") {
		t.Errorf("first chunk end = %d, want %d", chunks[0].End, len("The tenant must pay rent."))
	}
	covered(t, text, chunks)
}

func TestSplit_IgnoresEarlyBoundary(t *testing.T) {
	t.Parallel()

	// The only '.' sits in the first half of the window, so the raw window end wins.
	text := "Hi. " + strings.Repeat("x", 40)
	chunks, err := Split("doc", text, 20, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].End != 20 {
		t.Errorf("first chunk end = %d, want 20", chunks[0].End)
	}
}

func TestSplit_ParagraphBoundary(t *testing.T) {
	t.Parallel()

	text := "first paragraph text\n\nsecond paragraph continues here"
	chunks, err := Split("doc", text, 30, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "first paragraph text"; chunks[0].Text != want {
		t.Errorf("first chunk = %q, want %q", chunks[0].Text, want)
	}
	covered(t, text, chunks)
}

func TestSplit_TerminationBound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, size, overlap int
	}{
		{1, 5, 0},
		{100, 10, 0},
		{100, 10, 3},
		{1000, 500, 100},
		{999, 7, 6},
		{12345, 64, 32},
	}
	for _, tc := range tests {
		text := strings.Repeat("a", tc.n)
		chunks, err := Split("doc", text, tc.size, tc.overlap)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		step := tc.size - tc.overlap
		bound := (tc.n + step - 1) / step
		if len(chunks) > bound {
			t.Errorf("n=%d size=%d overlap=%d: %d chunks exceeds bound %d",
				tc.n, tc.size, tc.overlap, len(chunks), bound)
		}
		covered(t, text, chunks)
	}
}

func TestSplit_OverlapBetweenChunks(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("abcdefghij", 10)
	chunks, err := Split("doc", text, 30, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		if got := chunks[i-1].End - chunks[i].Start; got != 10 {
			t.Errorf("overlap between chunk %d and %d = %d, want 10", i-1, i, got)
		}
	}
}

func TestSplit_LargeOverlapStillProgresses(t *testing.T) {
	t.Parallel()

	// Boundary at offset 6 gives cut=7; 7-6=1 would still advance, but a
	// boundary at the window midpoint with overlap near size must not rewind.
	text := strings.Repeat("abcdef. ", 50)
	chunks, err := Split("doc", text, 8, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start <= chunks[i-1].Start {
			t.Fatalf("chunk %d start %d did not advance past %d", i, chunks[i].Start, chunks[i-1].Start)
		}
	}
	covered(t, text, chunks)
}

func TestSplit_RuneBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 60) + ". " + strings.Repeat("ü", 40)
	chunks, err := Split("doc", text, 17, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c.Text)
		}
	}
	covered(t, text, chunks)
}

func TestSplit_DocumentID(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc-42", strings.Repeat("word ", 300), DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if c.DocumentID != "doc-42" {
			t.Errorf("chunk %d document id = %q", i, c.DocumentID)
		}
	}
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	c, err := New(WithSize(50), WithOverlap(5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Size() != 50 || c.Overlap() != 5 {
		t.Errorf("got size=%d overlap=%d, want 50/5", c.Size(), c.Overlap())
	}

	if _, err := New(WithSize(5), WithOverlap(5)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New with overlap == size: error = %v, want ErrInvalidConfig", err)
	}

	d, err := New()
	if err != nil {
		t.Fatalf("New defaults: %v", err)
	}
	if d.Size() != DefaultSize || d.Overlap() != DefaultOverlap {
		t.Errorf("defaults = %d/%d, want %d/%d", d.Size(), d.Overlap(), DefaultSize, DefaultOverlap)
	}
}
