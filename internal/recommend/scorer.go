package recommend

import (
	"cmp"
	"log/slog"
	"slices"
)

// Composite weights. Each variant's weights sum to 1.
const (
	lawyerSimilarityWeight  = 0.4
	lawyerSpecialtyWeight   = 0.3
	lawyerLocationWeight    = 0.1
	lawyerDemographicWeight = 0.1
	lawyerFeeWeight         = 0.1

	resourceSimilarityWeight  = 0.6
	resourceContentWeight     = 0.3
	resourceDemographicWeight = 0.1
)

// Sub-score names used as ScoreBreakdown.SubScores keys.
const (
	SubSpecialty   = "specialty"
	SubLocation    = "location"
	SubDemographic = "demographic"
	SubFee         = "fee"
	SubContent     = "content"
)

// ScoreBreakdown records how a candidate's composite score was reached.
type ScoreBreakdown struct {
	// Similarity is the raw cosine between query and candidate embeddings.
	Similarity float64 `json:"similarity"`
	// SubScores holds the heuristic signals by name, each in [0,1].
	SubScores map[string]float64 `json:"subScores"`
	// Composite is the weighted sum, in [0,1].
	Composite float64 `json:"composite"`
}

// Ranked is a scored candidate.
type Ranked struct {
	Candidate Candidate
	Breakdown ScoreBreakdown
	Reasons   []string
}

// Scorer ranks candidates against a user. It holds no per-request state and
// is safe for concurrent use.
type Scorer struct {
	dim int
	log *slog.Logger
}

// NewScorer returns a Scorer producing query embeddings of dim slots
// (DefaultDimension when dim <= 0).
func NewScorer(dim int, log *slog.Logger) *Scorer {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{dim: dim, log: log}
}

// Score ranks candidates for query and profile, highest composite first.
// Ties keep input order. Candidates whose embedding length differs from the
// query embedding are skipped. limit <= 0 returns every scored candidate.
func (s *Scorer) Score(query string, profile UserProfile, candidates []Candidate, limit int) []Ranked {
	q := QueryEmbedding(query, &profile, s.dim)

	ranked := make([]Ranked, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		vec := c.Vector()
		if len(vec) != len(q) {
			skipped++
			s.log.Warn("recommend: skipping candidate with mismatched embedding dimension",
				slog.String("kind", string(c.Kind())),
				slog.String("candidate", c.Label()),
				slog.Int("dimension", len(vec)),
				slog.Int("expected", len(q)),
			)
			continue
		}

		b := c.score(Cosine(q, vec), &profile)
		ranked = append(ranked, Ranked{Candidate: c, Breakdown: b, Reasons: c.reasons(b)})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Breakdown.Composite, a.Breakdown.Composite)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if skipped > 0 {
		s.log.Debug("recommend: scored candidates",
			slog.Int("scored", len(ranked)),
			slog.Int("skipped", skipped),
		)
	}
	return ranked
}

// clampUnit restricts v to [0,1] so negative cosines cannot pull a
// composite below zero.
func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}

func (l *Lawyer) score(similarity float64, p *UserProfile) ScoreBreakdown {
	sub := map[string]float64{
		SubSpecialty:   SpecialtyMatch(l.Specialty, p.LegalType),
		SubLocation:    LocationMatch(l.Location, p.Location),
		SubDemographic: LawyerDemographicMatch(l.Specialty, p.Demographics),
		SubFee:         FeeMatch(l.FeeStructure, p.Demographics.Has(LowIncome)),
	}
	return ScoreBreakdown{
		Similarity: similarity,
		SubScores:  sub,
		Composite: clampUnit(clampUnit(similarity)*lawyerSimilarityWeight +
			sub[SubSpecialty]*lawyerSpecialtyWeight +
			sub[SubLocation]*lawyerLocationWeight +
			sub[SubDemographic]*lawyerDemographicWeight +
			sub[SubFee]*lawyerFeeWeight),
	}
}

func (l *Lawyer) reasons(b ScoreBreakdown) []string {
	var out []string
	if b.Similarity > 0.7 {
		out = append(out, "High relevance to your legal matter")
	}
	if b.SubScores[SubSpecialty] > 0.8 {
		out = append(out, "Specializes in your area of law")
	}
	if b.SubScores[SubLocation] > 0.8 {
		out = append(out, "Located in your area")
	}
	if b.SubScores[SubDemographic] > 0.7 {
		out = append(out, "Experienced with your demographic")
	}
	if b.SubScores[SubFee] > 0.8 {
		out = append(out, "Offers appropriate fee structure")
	}
	if len(out) == 0 {
		return []string{"General legal assistance available"}
	}
	return out
}

func (r *Resource) score(similarity float64, p *UserProfile) ScoreBreakdown {
	sub := map[string]float64{
		SubContent:     ContentMatch(r.Text, p.LegalType),
		SubDemographic: ResourceDemographicMatch(r.Text, p.Demographics),
	}
	return ScoreBreakdown{
		Similarity: similarity,
		SubScores:  sub,
		Composite: clampUnit(clampUnit(similarity)*resourceSimilarityWeight +
			sub[SubContent]*resourceContentWeight +
			sub[SubDemographic]*resourceDemographicWeight),
	}
}

func (r *Resource) reasons(b ScoreBreakdown) []string {
	var out []string
	if b.Similarity > 0.7 {
		out = append(out, "High relevance to your legal matter")
	}
	if b.SubScores[SubContent] > 0.8 {
		out = append(out, "Covers your area of law")
	}
	if b.SubScores[SubDemographic] > 0.7 {
		out = append(out, "Addresses your circumstances")
	}
	if len(out) == 0 {
		return []string{"General legal information"}
	}
	return out
}
