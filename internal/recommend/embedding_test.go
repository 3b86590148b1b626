package recommend

import (
	"math"
	"slices"
	"testing"
)

func TestKeywords(t *testing.T) {
	t.Parallel()

	p := &UserProfile{LegalMatter: "My landlord kept my deposit", LegalType: "Real Estate", Demographics: LowIncome | Senior}
	got := Keywords("tenant dispute", p)
	want := []string{"real", "estate", "landlord", "tenant", "senior", "elder", "low income", "poverty", "free legal aid"}
	if !slices.Equal(got, want) {
		t.Errorf("Keywords = %v, want %v", got, want)
	}
}

func TestKeywords_DeduplicatesDemographics(t *testing.T) {
	t.Parallel()

	p := &UserProfile{LegalType: "disability rights", Demographics: Disability}
	got := Keywords("", p)
	n := 0
	for _, k := range got {
		if k == "disability" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("disability appears %d times in %v", n, got)
	}
}

func TestHashKeyword(t *testing.T) {
	t.Parallel()

	tests := map[string]int64{
		"":   0,
		"a":  97,
		"ab": 97*31 + 98,
		// 31-multiplier recurrence wrapped to int32, then made non-negative.
		"family":         1281860764,
		"discrimination": 1593144943,
	}
	for s, want := range tests {
		if got := hashKeyword(s); got != want {
			t.Errorf("hashKeyword(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestQueryEmbedding(t *testing.T) {
	t.Parallel()

	p := &UserProfile{LegalType: "employment"}
	a := QueryEmbedding("", p, 0)
	b := QueryEmbedding("", p, 0)

	if len(a) != DefaultDimension {
		t.Fatalf("len = %d, want %d", len(a), DefaultDimension)
	}
	if !slices.Equal(a, b) {
		t.Error("query embedding is not reproducible")
	}

	slot := hashKeyword("employment") % DefaultDimension
	for i, x := range a {
		if int64(i) == slot {
			if x != keywordWeights["employment"] {
				t.Errorf("keyword slot %d = %v, want %v", i, x, keywordWeights["employment"])
			}
			continue
		}
		if x < -0.05 || x > 0.05 {
			t.Errorf("noise slot %d = %v outside [-0.05, 0.05]", i, x)
		}
	}

	if slices.Equal(QueryEmbedding("wrongful termination", p, 0), QueryEmbedding("unpaid overtime", p, 0)) {
		t.Error("different queries produced identical vectors")
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero norm = %v, want 0", got)
	}
	if got := Cosine([]float32{1, 2}, []float32{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel = %v, want 1", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite = %v, want -1", got)
	}
}
