package embedder

import (
	"context"
	"testing"

	"github.com/54b3r/bclegal-go/internal/rag"
)

func TestGeminiTaskType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"documents by default", context.Background(), "RETRIEVAL_DOCUMENT"},
		{"marked query", rag.WithQuery(context.Background()), "RETRIEVAL_QUERY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := taskType(tc.ctx); got != tc.want {
				t.Errorf("taskType() = %q, want %q", got, tc.want)
			}
		})
	}
}
