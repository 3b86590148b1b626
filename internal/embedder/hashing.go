package embedder

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultHashingDimensions matches the candidate dataset embeddings.
const DefaultHashingDimensions = 384

// Hashing is a deterministic in-process embedder based on signed feature
// hashing of lower-cased word tokens and adjacent word pairs. It needs no
// network, never fails, and always returns L2-normalised vectors of a fixed
// dimension. Retrieval quality is far below a trained model; it exists so the
// curated fallback corpus can always be indexed and queried.
type Hashing struct {
	dim int
}

// NewHashing returns a Hashing embedder producing dim-length vectors.
// dim <= 0 selects DefaultHashingDimensions.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimensions
	}
	return &Hashing{dim: dim}
}

// Dimensions returns the output vector length.
func (h *Hashing) Dimensions() int { return h.dim }

// Embed implements rag.Embedder. The error is always nil.
func (h *Hashing) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	v := make([]float32, h.dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		h.add(v, tok, 1)
		if i > 0 {
			h.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// add folds feature into v. The low bits pick the slot, the top bit the sign,
// so unrelated collisions tend to cancel rather than accumulate.
func (h *Hashing) add(v []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	slot := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	v[slot] += weight
}
