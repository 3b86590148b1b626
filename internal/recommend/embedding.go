package recommend

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimension is the dimensionality of the precomputed candidate
// embeddings.
const DefaultDimension = 384

// keywordWeights scores recognised legal vocabulary. Unlisted keywords weigh
// defaultKeywordWeight.
var keywordWeights = map[string]float32{
	"family": 0.8, "divorce": 0.9, "custody": 0.85, "support": 0.8,
	"employment": 0.8, "workplace": 0.85, "discrimination": 0.9,
	"criminal": 0.9, "defense": 0.85, "charges": 0.8,
	"immigration": 0.9, "visa": 0.85, "citizenship": 0.8,
	"personal": 0.7, "injury": 0.8, "accident": 0.75,
	"business": 0.8, "contract": 0.85, "commercial": 0.8,
	"real": 0.7, "estate": 0.8, "property": 0.75,
	"wills": 0.8, "probate": 0.75,
	"human": 0.9, "rights": 0.9,
	"aboriginal": 0.8, "indigenous": 0.8, "first": 0.8,
	"lgbtq": 0.8, "lgbt": 0.8, "transgender": 0.8,
	"disability": 0.8, "accessibility": 0.8,
	"senior": 0.7, "elder": 0.7, "pension": 0.7,
	"low": 0.7, "income": 0.7, "poverty": 0.7,
	"free": 0.8, "legal": 0.9, "aid": 0.8,
}

const defaultKeywordWeight = 0.1

// legalTerms is the vocabulary searched for in the user's text, in the order
// keywords are emitted.
var legalTerms = []string{
	"family", "divorce", "custody", "support", "alimony", "separation",
	"employment", "workplace", "discrimination", "harassment", "termination",
	"criminal", "defense", "charges", "bail", "sentencing",
	"immigration", "visa", "citizenship", "deportation", "refugee",
	"personal", "injury", "accident", "negligence", "liability",
	"business", "contract", "commercial", "partnership", "corporation",
	"real", "estate", "property", "landlord", "tenant", "mortgage",
	"wills", "estate", "probate", "inheritance", "trust",
	"human", "rights", "discrimination", "equality", "freedom",
	"aboriginal", "indigenous", "first", "nations", "treaty",
	"lgbtq", "lgbt", "transgender", "sexual", "orientation",
	"disability", "accessibility", "accommodation",
	"senior", "elder", "pension", "retirement",
	"low", "income", "poverty", "welfare", "assistance",
	"free", "legal", "aid", "pro", "bono",
}

// demographicKeywords are appended for each demographic flag the user set.
var demographicKeywords = []struct {
	flag     Demographics
	keywords []string
}{
	{FirstNation, []string{"aboriginal", "indigenous", "first nations"}},
	{LGBTQ, []string{"lgbtq", "lgbt", "sexual orientation"}},
	{Disability, []string{"disability", "accessibility"}},
	{Senior, []string{"senior", "elder"}},
	{LowIncome, []string{"low income", "poverty", "free legal aid"}},
}

// Keywords extracts the legal vocabulary present in the query, legal matter
// and legal type (substring match on folded text), then the demographic
// keywords, de-duplicated in first-seen order.
func Keywords(query string, p *UserProfile) []string {
	text := fold(query + " " + p.LegalMatter + " " + p.LegalType)

	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, term := range legalTerms {
		if strings.Contains(text, term) {
			add(term)
		}
	}
	for _, dk := range demographicKeywords {
		if p.Demographics.Has(dk.flag) {
			for _, k := range dk.keywords {
				add(k)
			}
		}
	}
	return out
}

// QueryEmbedding builds the keyword-hash query vector used to compare a user
// against the candidate datasets. This is a low-fidelity stand-in for a
// trained embedding: each extracted keyword writes its weight into slot
// hashKeyword(k) mod dim (colliding keywords overwrite each other), and every
// other slot gets small noise in [-0.05, 0.05] from a PRNG seeded by the
// query so the vector is reproducible.
func QueryEmbedding(query string, p *UserProfile, dim int) []float32 {
	if dim <= 0 {
		dim = DefaultDimension
	}
	v := make([]float32, dim)
	touched := make([]bool, dim)

	for _, k := range Keywords(query, p) {
		w, ok := keywordWeights[k]
		if !ok {
			w = defaultKeywordWeight
		}
		slot := hashKeyword(k) % int64(dim)
		v[slot] = w
		touched[slot] = true
	}

	seed := xxhash.Sum64String(query)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range v {
		if !touched[i] {
			v[i] = float32((rng.Float64() - 0.5) * 0.1)
		}
	}
	return v
}

// hashKeyword is the 31-multiplier string hash with 32-bit wraparound,
// returned as a non-negative value.
func hashKeyword(s string) int64 {
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return n
}

// Cosine returns the cosine similarity of a and b, or 0 when either norm is
// zero. The vectors must have equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return dot / den
}
