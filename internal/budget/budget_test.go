package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/bclegal-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.SystemMessage("hello world"),
	}
	// user: 4 + 1 + 2 = 7; system: 4 + 1 + 2 = 7
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func fragment(source string, chars int) rag.Fragment {
	return rag.Fragment{Source: source, Text: strings.Repeat("x", chars)}
}

func Test_FitFragments(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("s", 400))} // 4 + 1 + 100 = 105
	frags := []rag.Fragment{
		fragment("ESA", 400),  // 1 + 100 + 6 = 107
		fragment("HRC", 400),  // 107
		fragment("RTA", 4000), // 1007
	}

	tests := []struct {
		name      string
		maxTokens int
		want      int
	}{
		{name: "everything fits", maxTokens: 2000, want: 3},
		{name: "drops weakest", maxTokens: 400, want: 2},
		{name: "exact boundary", maxTokens: 105 + 107, want: 1},
		{name: "fixed alone exceeds", maxTokens: 50, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FitFragments(fixed, frags, tc.maxTokens)
			if len(got) != tc.want {
				t.Errorf("kept %d fragments, want %d", len(got), tc.want)
			}
			for i := range got {
				if got[i].Source != frags[i].Source {
					t.Errorf("order changed at %d", i)
				}
			}
		})
	}
}

func Test_FitFragments_DefaultBudget(t *testing.T) {
	t.Parallel()

	frags := []rag.Fragment{fragment("ESA", DefaultMaxContextTokens*charsPerToken)}
	if got := FitFragments(nil, frags, 0); len(got) != 0 {
		t.Errorf("oversized fragment kept under default budget")
	}
}
