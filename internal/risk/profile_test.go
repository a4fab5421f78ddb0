package risk

import (
	"testing"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

func TestNormalizeSurveyShape(t *testing.T) {
	rec := map[string]any{
		"source": "patient_intake_app",
		"familyAndHousing": map[string]any{
			"housingSituation":    "Staying with friends temporarily",
			"worriedAboutHousing": "Yes",
			"familyMembers":       "Me, my partner and children",
		},
		"moneyAndResources": map[string]any{
			"annualIncome":   "$10,000-$15,000",
			"workSituation":  "part-time",
			"educationLevel": "Less than high school",
		},
		"safetyQuestions": map[string]any{
			"experiencingViolence": "No",
			"safePlace":            "No",
			"needsImmediateHelp":   true,
		},
		"basicNeeds": map[string]any{
			"stressLevel":   "Very High",
			"socialContact": "Rarely",
			"unableToGet":   map[string]any{"medicine": true},
		},
		"family_status": "married",
		"needs":         []any{"food"},
	}

	p, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if p.HousingStatus != "Staying with friends temporarily" {
		t.Errorf("housing = %q", p.HousingStatus)
	}
	if !p.WorriedAboutHousing {
		t.Error("expected worried about housing")
	}
	if p.Income.Band != "$10,000-$15,000" || p.Income.HasAmount {
		t.Errorf("income = %+v", p.Income)
	}
	if p.WorkStatus != "part-time" {
		t.Errorf("work = %q", p.WorkStatus)
	}
	if p.ExperiencingViolence {
		t.Error("violence should be false for answer No")
	}
	if !p.NoSafePlace {
		t.Error("expected no safe place")
	}
	if !p.NeedsImmediateHelp {
		t.Error("expected needs immediate help")
	}
	if !p.UnableToGetMedicine {
		t.Error("expected unable to get medicine")
	}
	if p.StressLevel != "Very High" || p.SocialContact != "Rarely" {
		t.Errorf("basic needs = %q / %q", p.StressLevel, p.SocialContact)
	}
	if p.FamilyStatus != "married" {
		t.Errorf("family status = %q", p.FamilyStatus)
	}
	if len(p.Needs) != 1 || p.Needs[0] != "food" {
		t.Errorf("needs = %v", p.Needs)
	}
}

func TestNormalizeFlatShape(t *testing.T) {
	rec := map[string]any{
		"housing_status":    "evicted",
		"income_level":      float64(9000),
		"employment_status": "unemployed",
		"education_level":   "No formal education",
		"needs":             []string{"housing", "food"},
	}

	p, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HousingStatus != "evicted" {
		t.Errorf("housing = %q", p.HousingStatus)
	}
	if !p.Income.HasAmount || p.Income.Amount != 9000 {
		t.Errorf("income = %+v", p.Income)
	}
	if p.WorkStatus != "unemployed" || p.Education != "No formal education" {
		t.Errorf("work = %q, education = %q", p.WorkStatus, p.Education)
	}
	if len(p.Needs) != 2 {
		t.Errorf("needs = %v", p.Needs)
	}
}

func TestNormalizeFlatFallsBackToFamilyStatusForHousing(t *testing.T) {
	p, err := Normalize(map[string]any{"family_status": "homeless"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HousingStatus != "homeless" {
		t.Errorf("housing = %q, want fallback from family_status", p.HousingStatus)
	}
}

func TestNormalizeSurveyFallsBackToFlatHousing(t *testing.T) {
	rec := map[string]any{
		"source": "patient_intake_app",
		"familyAndHousing": map[string]any{
			"familyMembers": "Me and my partner",
		},
		"housing_status": "behind on rent",
	}
	p, err := Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HousingStatus != "behind on rent" {
		t.Errorf("housing = %q, want fallback from housing_status", p.HousingStatus)
	}

	rec["housing_status"] = ""
	rec["family_status"] = "homeless"
	p, err = Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HousingStatus != "homeless" {
		t.Errorf("housing = %q, want fallback from family_status", p.HousingStatus)
	}
}

func TestNormalizeNilRecord(t *testing.T) {
	p, err := Normalize(nil)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HousingStatus != "" || len(p.Needs) != 0 {
		t.Errorf("expected zero profile, got %+v", p)
	}
}

func TestNormalizeRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
	}{
		{"income as list", map[string]any{"income_level": []any{1000}}},
		{"negative income", map[string]any{"income_level": float64(-5)}},
		{"needs not a list", map[string]any{"needs": "food"}},
		{"needs with non-string element", map[string]any{"needs": []any{"food", 7}}},
		{"section as string", map[string]any{
			"source":           "patient_intake_app",
			"familyAndHousing": "homeless",
		}},
		{"housing status as number", map[string]any{"housing_status": float64(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rec)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
