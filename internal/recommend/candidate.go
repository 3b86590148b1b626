// Package recommend ranks lawyers and legal resources for a user by combining
// embedding similarity with weighted keyword heuristics.
package recommend

import (
	"strings"
)

// Kind names a candidate variant.
type Kind string

const (
	KindLawyer   Kind = "lawyer"
	KindResource Kind = "resource"
)

// Candidate is a rankable item: a *Lawyer or a *Resource. The interface is
// sealed; each variant owns its scoring weights.
type Candidate interface {
	// Kind reports the variant.
	Kind() Kind
	// Vector returns the precomputed embedding. Empty means unscorable.
	Vector() []float32
	// Label is a human-readable name for logs.
	Label() string

	score(similarity float64, p *UserProfile) ScoreBreakdown
	reasons(b ScoreBreakdown) []string
}

// Lawyer is a practitioner record as stored in the lawyer dataset.
type Lawyer struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"Name"`
	Email        string    `json:"Email,omitempty"`
	Phone        string    `json:"Phone,omitempty"`
	Location     string    `json:"Location,omitempty"`
	Specialty    string    `json:"Specialty,omitempty"`
	FeeStructure string    `json:"FeeStructure,omitempty"`
	Languages    string    `json:"Languages,omitempty"`
	Website      string    `json:"Website,omitempty"`
	Embedding    []float32 `json:"embedding"`
}

func (l *Lawyer) Kind() Kind        { return KindLawyer }
func (l *Lawyer) Vector() []float32 { return l.Embedding }
func (l *Lawyer) Label() string     { return l.Name }

// Resource is a passage from a legal information publication.
type Resource struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

func (r *Resource) Kind() Kind        { return KindResource }
func (r *Resource) Vector() []float32 { return r.Embedding }

// Label returns the source, or the start of the text when the source is unset.
func (r *Resource) Label() string {
	if r.Source != "" {
		return r.Source
	}
	return preview(r.Text, 40)
}

// Demographics is a set of self-identified user attributes.
type Demographics uint8

const (
	FirstNation Demographics = 1 << iota
	LGBTQ
	Disability
	Senior
	LowIncome
	// VisibleMinority is carried into report prompts; it has no scoring weight.
	VisibleMinority
)

var demographicNames = []struct {
	flag Demographics
	name string
}{
	{FirstNation, "first_nation"},
	{LGBTQ, "lgbtq"},
	{Disability, "disability"},
	{Senior, "senior"},
	{LowIncome, "low_income"},
	{VisibleMinority, "visible_minority"},
}

// Has reports whether every flag in f is set.
func (d Demographics) Has(f Demographics) bool { return d&f == f }

// String lists the set flags, comma-separated, for logging.
func (d Demographics) String() string {
	var parts []string
	for _, n := range demographicNames {
		if d.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// DemographicFlags is the wire form of Demographics.
type DemographicFlags struct {
	FirstNation     bool `json:"firstNation"`
	LowIncome       bool `json:"lowIncome"`
	Disability      bool `json:"disability"`
	LGBTQ           bool `json:"lgbtq"`
	VisibleMinority bool `json:"visibleMinority"`
	Senior          bool `json:"senior"`
}

// Set converts the flags to a Demographics set.
func (f DemographicFlags) Set() Demographics {
	var d Demographics
	for _, b := range []struct {
		on   bool
		flag Demographics
	}{
		{f.FirstNation, FirstNation},
		{f.LGBTQ, LGBTQ},
		{f.Disability, Disability},
		{f.Senior, Senior},
		{f.LowIncome, LowIncome},
		{f.VisibleMinority, VisibleMinority},
	} {
		if b.on {
			d |= b.flag
		}
	}
	return d
}

// UserProfile describes the person asking for recommendations. It is built
// per request and never stored.
type UserProfile struct {
	Query        string
	LegalType    string
	LegalMatter  string
	Location     string
	UserType     string
	Email        string
	Demographics Demographics
}
