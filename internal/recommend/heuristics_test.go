package recommend

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSpecialtyMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		specialty string
		legalType string
		want      float64
	}{
		{"Employment Law", "employment", 1.0},
		{"Employment Law", "family", 0.3},
		{"Family and Employment Law", "Family Mediation", 0.9},
		{"", "employment", 0},
		{"Employment Law", "", 0},
		{"CRIMINAL DEFENCE", "criminal", 1.0},
	}
	for _, tc := range tests {
		if got := SpecialtyMatch(tc.specialty, tc.legalType); !approx(got, tc.want) {
			t.Errorf("SpecialtyMatch(%q, %q) = %v, want %v", tc.specialty, tc.legalType, got, tc.want)
		}
	}
}

func TestLocationMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lawyer, user string
		want         float64
	}{
		{"", "Vancouver", 0.5},
		{"Vancouver", "", 0.5},
		{"Vancouver, B.C.", "Vancouver", 0.8},
		{"Anywhere in British Columbia", "Kelowna", 0.8},
		{"Downtown Vancouver", "vancouver", 1.0},
		{"Surrey", "Surrey Central", 0.9},
		{"Victoria", "Prince George", 0.5},
	}
	for _, tc := range tests {
		if got := LocationMatch(tc.lawyer, tc.user); !approx(got, tc.want) {
			t.Errorf("LocationMatch(%q, %q) = %v, want %v", tc.lawyer, tc.user, got, tc.want)
		}
	}
}

func TestLawyerDemographicMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		specialty string
		d         Demographics
		want      float64
	}{
		{"no flags", "Aboriginal Law", 0, 0.5},
		{"one match", "Aboriginal Law", FirstNation, 0.8},
		{"senior maps to elder", "Elder Law", Senior, 0.8},
		{"capped", "Aboriginal, LGBT and Disability Law", FirstNation | LGBTQ | Disability, 1.0},
		{"flag without specialty", "Tax Law", Disability, 0.5},
	}
	for _, tc := range tests {
		if got := LawyerDemographicMatch(tc.specialty, tc.d); !approx(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFeeMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fee       string
		lowIncome bool
		want      float64
	}{
		{"", true, 0.5},
		{"Free consultation", true, 1.0},
		{"Pro Bono", true, 1.0},
		{"Sliding scale", true, 0.8},
		{"Low-cost", true, 0.8},
		{"N/A", true, 0.6},
		{"Hourly", true, 0.5},
		{"Free consultation", false, 0.5},
	}
	for _, tc := range tests {
		if got := FeeMatch(tc.fee, tc.lowIncome); !approx(got, tc.want) {
			t.Errorf("FeeMatch(%q, %v) = %v, want %v", tc.fee, tc.lowIncome, got, tc.want)
		}
	}
}

func TestContentMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text, legalType string
		want            float64
	}{
		{"", "family", 0},
		{"A guide to Family Law in BC", "family", 1.0},
		{"Applying for custody of your children", "family", 0.8},
		{"Workplace harassment complaints", "employment", 0.8},
		{"Small claims court", "family", 0.3},
		{"Small claims court", "tax", 0.3},
	}
	for _, tc := range tests {
		if got := ContentMatch(tc.text, tc.legalType); !approx(got, tc.want) {
			t.Errorf("ContentMatch(%q, %q) = %v, want %v", tc.text, tc.legalType, got, tc.want)
		}
	}
}

func TestResourceDemographicMatch(t *testing.T) {
	t.Parallel()

	text := "Free legal clinics for seniors and people with a disability"
	if got := ResourceDemographicMatch("", LowIncome); got != 0 {
		t.Errorf("empty text = %v, want 0", got)
	}
	if got := ResourceDemographicMatch(text, 0); !approx(got, 0.5) {
		t.Errorf("no flags = %v, want 0.5", got)
	}
	if got := ResourceDemographicMatch(text, LowIncome|Senior|Disability); !approx(got, 1.0) {
		t.Errorf("three matches = %v, want 1.0 (capped)", got)
	}
	if got := ResourceDemographicMatch(text, LowIncome); !approx(got, 0.7) {
		t.Errorf("low income = %v, want 0.7", got)
	}
}

func TestDemographicFlags(t *testing.T) {
	t.Parallel()

	d := DemographicFlags{FirstNation: true, LowIncome: true, VisibleMinority: true}.Set()
	if !d.Has(FirstNation) || !d.Has(LowIncome) || !d.Has(VisibleMinority) || d.Has(Senior) {
		t.Errorf("Set() = %v", d)
	}
	if got := d.String(); got != "first_nation,low_income,visible_minority" {
		t.Errorf("String() = %q", got)
	}
}
