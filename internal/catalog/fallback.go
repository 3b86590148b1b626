package catalog

import (
	"strings"

	"github.com/54b3r/bclegal-go/internal/recommend"
)

// fallbackLawyers are province-wide services that accept most matters.
var fallbackLawyers = []recommend.Lawyer{
	{
		ID:           "fallback-legal-aid-bc",
		Name:         "Legal Aid BC",
		Location:     "British Columbia",
		Specialty:    "Family Law, Criminal Law, Immigration Law",
		FeeStructure: "Free for eligible low income applicants",
		Languages:    "English, French, interpreters available",
		Website:      "https://legalaid.bc.ca",
	},
	{
		ID:           "fallback-access-pro-bono",
		Name:         "Access Pro Bono",
		Location:     "Vancouver, B.C.",
		Specialty:    "Civil Law, Employment Law, Wills and Estates, Elder Law",
		FeeStructure: "Pro bono",
		Languages:    "English",
		Website:      "https://accessprobono.ca",
	},
	{
		ID:           "fallback-indigenous-community-legal-clinic",
		Name:         "Indigenous Community Legal Clinic",
		Location:     "Vancouver",
		Specialty:    "Aboriginal Law, Family Law, Criminal Law",
		FeeStructure: "Free",
		Languages:    "English",
		Website:      "https://allard.ubc.ca/community-clinics",
	},
	{
		ID:           "fallback-lawyer-referral-service",
		Name:         "Lawyer Referral Service",
		Location:     "British Columbia",
		Specialty:    "General Practice Referrals",
		FeeStructure: "Low-cost initial consultation",
		Languages:    "English",
		Website:      "https://www.accessprobono.ca/lawyer-referral-service",
	},
}

var fallbackResources = []recommend.Resource{
	{
		ID:     "fallback-family-law-bc",
		Source: "Family Law in BC",
		Text:   "Family law covers separation, divorce, custody and parenting time, child support and spousal support. Free legal aid is available to eligible low income families in British Columbia.",
	},
	{
		ID:     "fallback-employment-standards",
		Source: "Employment Standards Branch",
		Text:   "Employment standards protect workers in the workplace: minimum wage, overtime, vacation pay, and notice of termination. Complaints about unpaid wages can be filed with the Employment Standards Branch at no cost.",
	},
	{
		ID:     "fallback-human-rights",
		Source: "BC Human Rights Clinic",
		Text:   "The Human Rights Code protects people from discrimination because of disability, sexual orientation, gender identity, age, race, and Indigenous identity. The clinic offers free legal help to people filing human rights complaints.",
	},
	{
		ID:     "fallback-tenancy",
		Source: "Residential Tenancy Branch",
		Text:   "Tenants and landlords in BC resolve disputes about deposits, repairs, rent increases, and evictions through the Residential Tenancy Branch. Seniors and people on low income can get free advocacy from tenant support organizations.",
	},
}

// Fallback returns the curated candidate set used when no dataset can be
// loaded. Embeddings are derived from each record's text with
// recommend.QueryEmbedding, so they share the query vector space.
func Fallback() *Catalog {
	c := &Catalog{
		Lawyers:   make([]*recommend.Lawyer, len(fallbackLawyers)),
		Resources: make([]*recommend.Resource, len(fallbackResources)),
	}
	for i, l := range fallbackLawyers {
		text := strings.Join([]string{l.Specialty, l.Location, l.FeeStructure}, " ")
		l.Embedding = recommend.QueryEmbedding(text, &recommend.UserProfile{}, recommend.DefaultDimension)
		c.Lawyers[i] = &l
	}
	for i, r := range fallbackResources {
		r.Embedding = recommend.QueryEmbedding(r.Text, &recommend.UserProfile{}, recommend.DefaultDimension)
		c.Resources[i] = &r
	}
	return c
}
