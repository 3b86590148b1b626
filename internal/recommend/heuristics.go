package recommend

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold returns s case-folded for caseless containment checks. A Caser holds
// state, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// practiceAreas get a near match when both the specialty and the legal type
// mention them.
var practiceAreas = []string{"family", "employment", "criminal", "immigration"}

// relatedTerms are the per-area words that count as a content match.
var relatedTerms = map[string][]string{
	"family":      {"divorce", "custody", "support", "separation"},
	"employment":  {"workplace", "discrimination", "harassment", "termination"},
	"criminal":    {"defense", "charges", "bail", "sentencing"},
	"immigration": {"visa", "citizenship", "deportation", "refugee"},
}

// SpecialtyMatch scores how well a lawyer's specialty covers the legal type.
func SpecialtyMatch(specialty, legalType string) float64 {
	if specialty == "" || legalType == "" {
		return 0
	}
	s, t := fold(specialty), fold(legalType)
	if strings.Contains(s, t) {
		return 1.0
	}
	for _, area := range practiceAreas {
		if strings.Contains(s, area) && strings.Contains(t, area) {
			return 0.9
		}
	}
	return 0.3
}

// LocationMatch scores a lawyer's location against the user's. Province-wide
// practices score 0.8 before any city comparison.
func LocationMatch(lawyerLocation, userLocation string) float64 {
	if lawyerLocation == "" || userLocation == "" {
		return 0.5
	}
	l, u := fold(lawyerLocation), fold(userLocation)
	switch {
	case strings.Contains(l, "b.c.") || strings.Contains(l, "british columbia"):
		return 0.8
	case strings.Contains(l, u):
		return 1.0
	case strings.Contains(u, l):
		return 0.9
	default:
		return 0.5
	}
}

// lawyerDemographicTerms maps a demographic to the specialty word that
// signals experience with it.
var lawyerDemographicTerms = []struct {
	flag Demographics
	term string
}{
	{FirstNation, "aboriginal"},
	{LGBTQ, "lgbt"},
	{Disability, "disability"},
	{Senior, "elder"},
}

// LawyerDemographicMatch starts at 0.5 and adds 0.3 for each of the user's
// demographics the specialty mentions, capped at 1.
func LawyerDemographicMatch(specialty string, d Demographics) float64 {
	s := fold(specialty)
	score := 0.5
	for _, dt := range lawyerDemographicTerms {
		if d.Has(dt.flag) && strings.Contains(s, dt.term) {
			score += 0.3
		}
	}
	return min(score, 1.0)
}

// FeeMatch favours free and sliding-scale fee structures for low-income users.
func FeeMatch(feeStructure string, lowIncome bool) float64 {
	if feeStructure == "" {
		return 0.5
	}
	if lowIncome {
		f := fold(feeStructure)
		switch {
		case strings.Contains(f, "free") || strings.Contains(f, "pro bono"):
			return 1.0
		case strings.Contains(f, "low-cost") || strings.Contains(f, "sliding"):
			return 0.8
		case strings.Contains(f, "n/a"):
			return 0.6
		}
	}
	return 0.5
}

// ContentMatch scores how directly a resource's text addresses the legal type.
func ContentMatch(text, legalType string) float64 {
	if text == "" || legalType == "" {
		return 0
	}
	body, t := fold(text), fold(legalType)
	if strings.Contains(body, t) {
		return 1.0
	}
	for _, term := range relatedTerms[t] {
		if strings.Contains(body, term) {
			return 0.8
		}
	}
	return 0.3
}

var resourceDemographicTerms = []struct {
	flag Demographics
	term string
}{
	{FirstNation, "aboriginal"},
	{LGBTQ, "lgbt"},
	{Disability, "disability"},
	{Senior, "senior"},
	{LowIncome, "free"},
}

// ResourceDemographicMatch starts at 0.5 and adds 0.2 for each of the user's
// demographics the text mentions, capped at 1.
func ResourceDemographicMatch(text string, d Demographics) float64 {
	if text == "" {
		return 0
	}
	body := fold(text)
	score := 0.5
	for _, dt := range resourceDemographicTerms {
		if d.Has(dt.flag) && strings.Contains(body, dt.term) {
			score += 0.2
		}
	}
	return min(score, 1.0)
}
