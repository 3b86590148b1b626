// Package vectorindex provides an exact in-memory nearest-neighbour index over
// fixed-dimension float32 vectors. Search is brute force over squared
// Euclidean distance, so results are identical to sorting every stored vector
// by distance.
//
// The index stores vectors only. Labels are 0-based insertion positions and
// callers map them back to their own payloads.
package vectorindex

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// index dimensionality. It indicates a caller bug and is never retried.
	ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")

	// ErrInvalidDimension is returned by New for a non-positive dimensionality.
	ErrInvalidDimension = errors.New("vectorindex: dimension must be positive")
)

// FlatL2 is an exact squared-L2 index. It is safe for concurrent use;
// searches run in parallel and Add serialises against them.
type FlatL2 struct {
	mu   sync.RWMutex
	dim  int
	data []float32
}

// New returns an empty index for vectors of length dim.
func New(dim int) (*FlatL2, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDimension, dim)
	}
	return &FlatL2{dim: dim}, nil
}

// Dim returns the fixed vector length of the index.
func (f *FlatL2) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *FlatL2) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dim
}

// Add appends vectors in order. Every vector is checked before any is stored,
// so a mismatch anywhere in the batch leaves the index unchanged.
func (f *FlatL2) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has length %d, index expects %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.data = slices.Grow(f.data, len(vectors)*f.dim)
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search returns the k stored vectors closest to query, ordered by ascending
// squared distance. Equal distances keep insertion order. Fewer than k results
// are returned when the index holds fewer vectors.
func (f *FlatL2) Search(query []float32, k int) (distances []float64, labels []int, err error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("%w: query has length %d, index expects %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return []float64{}, []int{}, nil
	}

	f.mu.RLock()
	n := len(f.data) / f.dim
	type hit struct {
		label int
		dist  float64
	}
	hits := make([]hit, n)
	for i := range n {
		hits[i] = hit{label: i, dist: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}
	f.mu.RUnlock()

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(a.dist, b.dist)
	})

	k = min(k, n)
	distances = make([]float64, k)
	labels = make([]int, k)
	for i := range k {
		distances[i] = hits[i].dist
		labels[i] = hits[i].label
	}
	return distances, labels, nil
}

// Similarity converts a squared-L2 distance into the ranking score used by
// retrieval: 1 - distance. The result is unbounded below and is only
// meaningful for ordering.
func Similarity(distance float64) float64 {
	return 1 - distance
}

// squaredL2 returns the squared Euclidean distance between equal-length vectors.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
