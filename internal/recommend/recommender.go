package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultLimit is the number of lawyers and of resources returned.
	DefaultLimit = 5

	// previewChars is the resource text length shown in results.
	previewChars = 200

	unavailableSummary = "Unable to generate recommendations at this time. Please try again later."
)

// LawyerResult is a ranked lawyer as presented to the user.
type LawyerResult struct {
	Name         string         `json:"name"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Location     string         `json:"location,omitempty"`
	Specialty    string         `json:"specialty,omitempty"`
	FeeStructure string         `json:"feeStructure,omitempty"`
	Languages    string         `json:"languages,omitempty"`
	Website      string         `json:"website,omitempty"`
	Score        float64        `json:"score"`
	MatchReasons []string       `json:"matchReasons"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
}

// ResourceResult is a ranked resource as presented to the user.
type ResourceResult struct {
	Source       string         `json:"source"`
	Text         string         `json:"text"`
	Score        float64        `json:"score"`
	Relevance    string         `json:"relevance"`
	MatchReasons []string       `json:"matchReasons"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
}

// Recommendations is the result of Recommend. Error is set only when ranking
// failed, in which case both lists are empty.
type Recommendations struct {
	Lawyers   []LawyerResult   `json:"lawyers"`
	Resources []ResourceResult `json:"resources"`
	Summary   string           `json:"summary"`
	Error     string           `json:"error,omitempty"`
}

// Config holds the datasets and limits for a Recommender.
type Config struct {
	// Lawyers and Resources are the candidate datasets. They are read-only
	// after construction.
	Lawyers   []*Lawyer
	Resources []*Resource

	// LawyerLimit and ResourceLimit cap each list. Default DefaultLimit.
	LawyerLimit   int
	ResourceLimit int

	// Dimension is the query embedding length. Default DefaultDimension.
	Dimension int

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Recommender produces lawyer and resource recommendations from in-memory
// datasets. It is safe for concurrent use.
type Recommender struct {
	scorer        *Scorer
	lawyers       []Candidate
	resources     []Candidate
	lawyerLimit   int
	resourceLimit int
	log           *slog.Logger
}

// New constructs a Recommender over the configured datasets.
func New(cfg *Config) *Recommender {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Recommender{
		scorer:        NewScorer(cfg.Dimension, log),
		lawyerLimit:   cfg.LawyerLimit,
		resourceLimit: cfg.ResourceLimit,
		log:           log,
	}
	if r.lawyerLimit <= 0 {
		r.lawyerLimit = DefaultLimit
	}
	if r.resourceLimit <= 0 {
		r.resourceLimit = DefaultLimit
	}
	for _, l := range cfg.Lawyers {
		if l != nil {
			r.lawyers = append(r.lawyers, l)
		}
	}
	for _, res := range cfg.Resources {
		if res != nil {
			r.resources = append(r.resources, res)
		}
	}
	return r
}

// Counts returns the dataset sizes.
func (r *Recommender) Counts() (lawyers, resources int) {
	return len(r.lawyers), len(r.resources)
}

// Recommend ranks lawyers and resources for p. It never returns an error:
// any failure while ranking yields empty lists, an apology summary, and the
// failure text in Error.
func (r *Recommender) Recommend(ctx context.Context, p UserProfile) (out Recommendations) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("recommend: ranking panicked", slog.Any("panic", rec))
			out = unavailable(fmt.Errorf("recommend: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	lawyers := r.scorer.Score(p.Query, p, r.lawyers, r.lawyerLimit)
	resources := r.scorer.Score(p.Query, p, r.resources, r.resourceLimit)

	out = Recommendations{
		Lawyers:   make([]LawyerResult, 0, len(lawyers)),
		Resources: make([]ResourceResult, 0, len(resources)),
	}
	for _, rk := range lawyers {
		l := rk.Candidate.(*Lawyer)
		out.Lawyers = append(out.Lawyers, LawyerResult{
			Name:         l.Name,
			Email:        l.Email,
			Phone:        l.Phone,
			Location:     l.Location,
			Specialty:    l.Specialty,
			FeeStructure: l.FeeStructure,
			Languages:    l.Languages,
			Website:      l.Website,
			Score:        rk.Breakdown.Composite,
			MatchReasons: rk.Reasons,
			Breakdown:    rk.Breakdown,
		})
	}
	for _, rk := range resources {
		res := rk.Candidate.(*Resource)
		out.Resources = append(out.Resources, ResourceResult{
			Source:       res.Source,
			Text:         preview(res.Text, previewChars),
			Score:        rk.Breakdown.Composite,
			Relevance:    RelevanceDescription(rk.Breakdown.Composite),
			MatchReasons: rk.Reasons,
			Breakdown:    rk.Breakdown,
		})
	}
	out.Summary = Summary(out.Lawyers, out.Resources, &p)

	r.log.Info("recommend: ranked candidates",
		slog.String("legal_type", p.LegalType),
		slog.String("demographics", p.Demographics.String()),
		slog.Int("lawyers", len(out.Lawyers)),
		slog.Int("resources", len(out.Resources)),
	)
	return out
}

func unavailable(err error) Recommendations {
	return Recommendations{
		Lawyers:   []LawyerResult{},
		Resources: []ResourceResult{},
		Summary:   unavailableSummary,
		Error:     err.Error(),
	}
}

// RelevanceDescription turns a composite score into a short label.
func RelevanceDescription(score float64) string {
	switch {
	case score > 0.8:
		return "Highly relevant"
	case score > 0.6:
		return "Very relevant"
	case score > 0.4:
		return "Moderately relevant"
	default:
		return "Somewhat relevant"
	}
}

// Summary writes the one-paragraph overview shown above the result lists.
func Summary(lawyers []LawyerResult, resources []ResourceResult, p *UserProfile) string {
	var b strings.Builder

	matter := "legal matter"
	if p.LegalType != "" {
		matter = p.LegalType + " legal matter"
	}
	fmt.Fprintf(&b, "Based on your %s, I found %d qualified lawyers and %d relevant resources. ",
		matter, len(lawyers), len(resources))

	if len(lawyers) > 0 {
		top := lawyers[0]
		fmt.Fprintf(&b, "The top recommendation is %s in %s, specializing in %s. ",
			top.Name, top.Location, top.Specialty)
	}
	if p.Demographics.Has(LowIncome) {
		b.WriteString("Several free or low-cost options are available. ")
	}
	b.WriteString("Please review the detailed recommendations below and contact the lawyers directly for consultations.")
	return b.String()
}

// preview returns the first n runes of s followed by "...".
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s + "..."
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s + "..."
}
