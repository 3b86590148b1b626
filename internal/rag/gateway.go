package rag

import (
	"context"
	"errors"
	"fmt"
)

// ErrGatewayFailure marks a failure of an upstream collaborator (embedding
// service or document fetch). Callers recover from it by degrading.
var ErrGatewayFailure = errors.New("rag: gateway failure")

// Gateway wraps an Embedder and enforces the batch contract: exactly one
// vector per input text and a single dimensionality across the batch.
// Any violation fails the whole batch.
type Gateway struct {
	// embedder is the upstream embedding service client.
	embedder Embedder
}

// NewGateway wraps e with contract enforcement.
func NewGateway(e Embedder) (*Gateway, error) {
	if e == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	return &Gateway{embedder: e}, nil
}

// Embed calls the upstream embedder and validates its response. All errors
// wrap ErrGatewayFailure.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := g.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrGatewayFailure, len(texts), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embedding 0 is empty", ErrGatewayFailure)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrGatewayFailure, i, len(v), dim)
		}
	}
	return vectors, nil
}
