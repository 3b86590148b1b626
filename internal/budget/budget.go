// Package budget estimates prompt token usage and trims retrieved context to
// fit a model's input window. Backends use different tokenizers, so a
// conservative character heuristic is used: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/bclegal-go/internal/rag"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input budget in tokens. It fits
	// 8k-context models while leaving room for a 3000-token report.
	DefaultMaxContextTokens = 5000

	// messageOverhead approximates per-message framing tokens.
	messageOverhead = 4
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for msgs,
// summing role and content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// EstimateFragment returns the token cost of f as rendered into a prompt
// context block.
func EstimateFragment(f rag.Fragment) int {
	// "Source: " + "\nContent: " + "\n\n"
	return Estimate(f.Source) + Estimate(f.Text) + 6
}

// FitFragments drops fragments from the end of the slice until the fixed
// messages plus the remaining fragments fit within maxTokens. Fragments are
// expected in descending similarity order, so the weakest go first.
//
// If even no fragments fit, an empty slice is returned; fixed messages are
// never trimmed here and callers should warn separately.
func FitFragments(fixed []*schema.Message, fragments []rag.Fragment, maxTokens int) []rag.Fragment {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}

	used := EstimateMessages(fixed)
	for i, f := range fragments {
		used += EstimateFragment(f)
		if used > maxTokens {
			return fragments[:i]
		}
	}
	return fragments
}
