package risk

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func fixedEngine() *Engine {
	return &Engine{now: func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		percentage float64
		want       Tier
	}{
		{100, TierCritical},
		{80.0, TierCritical},
		{79.9, TierHigh},
		{60.0, TierHigh},
		{59.9, TierMedium},
		{40.0, TierMedium},
		{39.9, TierLow},
		{0, TierLow},
	}
	for _, tt := range tests {
		if got := TierFor(tt.percentage); got != tt.want {
			t.Errorf("TierFor(%v) = %v, want %v", tt.percentage, got, tt.want)
		}
	}
}

func TestAssessEmptyRecord(t *testing.T) {
	a, err := fixedEngine().Assess(1, map[string]any{})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if a.TotalScore != 0 {
		t.Errorf("total score = %d, want 0", a.TotalScore)
	}
	if a.RiskPercentage != 0 {
		t.Errorf("percentage = %v, want 0", a.RiskPercentage)
	}
	if a.RiskLevel != TierLow {
		t.Errorf("tier = %v, want LOW", a.RiskLevel)
	}
	if len(a.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want none", a.Recommendations)
	}
	if a.MaxPossible != 100 {
		t.Errorf("max possible = %d, want 100", a.MaxPossible)
	}
}

func TestAssessCriticalSurveyRecord(t *testing.T) {
	rec := map[string]any{
		"source":        "patient_intake_app",
		"family_status": "single parent",
		"familyAndHousing": map[string]any{
			"housingSituation": "Homeless, sleeping outside",
			"familyMembers":    "2 children, single parent",
		},
		"moneyAndResources": map[string]any{
			"annualIncome":  "$0",
			"workSituation": "unemployed",
		},
		"safetyQuestions": map[string]any{
			"experiencingViolence": "Yes",
		},
		"basicNeeds": map[string]any{
			"socialContact": "Never",
		},
		"needs": []any{"childcare"},
	}

	a, err := fixedEngine().Assess(42, rec)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	wantScores := map[string]int{
		"housing":        25,
		"financial":      20,
		"health_safety":  10,
		"social_support": 12,
		"family":         8,
		"employment":     6,
	}
	gotScores := map[string]int{
		"housing":        a.Factors.Housing.Score,
		"financial":      a.Factors.Financial.Score,
		"health_safety":  a.Factors.HealthSafety.Score,
		"social_support": a.Factors.SocialSupport.Score,
		"family":         a.Factors.Family.Score,
		"employment":     a.Factors.Employment.Score,
	}
	for factor, want := range wantScores {
		if gotScores[factor] != want {
			t.Errorf("%s score = %d, want %d", factor, gotScores[factor], want)
		}
	}
	if a.TotalScore != 81 {
		t.Errorf("total = %d, want 81", a.TotalScore)
	}
	if a.RiskPercentage != 81.0 {
		t.Errorf("percentage = %v, want 81.0", a.RiskPercentage)
	}
	if a.RiskLevel != TierCritical {
		t.Errorf("tier = %v, want CRITICAL", a.RiskLevel)
	}
}

func TestAssessLegacyFlatRecord(t *testing.T) {
	rec := map[string]any{
		"housing_status":    "behind on rent",
		"income_level":      float64(12000),
		"employment_status": "part-time retail",
		"family_status":     "single",
		"needs":             []any{"food", "mental health support"},
	}

	a, err := fixedEngine().Assess(7, rec)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got := a.Factors.Housing.Score; got != 15 {
		t.Errorf("housing = %d, want 15", got)
	}
	// 12 for the income bracket plus 3 for part-time work.
	if got := a.Factors.Financial.Score; got != 15 {
		t.Errorf("financial = %d, want 15", got)
	}
	if got := a.Factors.HealthSafety.Score; got != 4 {
		t.Errorf("health = %d, want 4", got)
	}
	if got := a.Factors.SocialSupport.Score; got != 2 {
		t.Errorf("social = %d, want 2", got)
	}
}

func TestHousingLadderFirstMatchWins(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{"Homeless, sleeping outside", 25},
		{"homeless, staying in a shelter", 20},
		{"recently evicted", 18},
		{"behind on rent for two months", 15},
		{"staying with friends", 12},
		{"living temporarily with relatives", 12},
		{"overcrowded apartment", 10},
		{"transitional housing program", 8},
		{"subsidized apartment", 5},
		{"own my home", 0},
		{"", 0},
	}
	for _, tt := range tests {
		sub := scoreHousing(Profile{HousingStatus: tt.status})
		if sub.Score != tt.want {
			t.Errorf("housing %q = %d, want %d", tt.status, sub.Score, tt.want)
		}
	}
}

func TestHousingCap(t *testing.T) {
	sub := scoreHousing(Profile{
		HousingStatus:       "homeless, sleeping outside",
		WorriedAboutHousing: true,
	})
	if sub.Score != maxHousing {
		t.Errorf("score = %d, want capped at %d", sub.Score, maxHousing)
	}
	if len(sub.Details) != 2 {
		t.Errorf("details = %v, want both rules recorded", sub.Details)
	}
}

func TestFinancialNumericIncome(t *testing.T) {
	tests := []struct {
		amount float64
		want   int
	}{
		{0, 15},
		{9999, 15},
		{10000, 12},
		{14999, 12},
		{20000, 8},
		{30000, 5},
		{34999, 5},
		{35000, 0},
		{90000, 0},
	}
	for _, tt := range tests {
		sub := scoreFinancial(Profile{Income: Income{Amount: tt.amount, HasAmount: true}})
		if sub.Score != tt.want {
			t.Errorf("income %v = %d, want %d", tt.amount, sub.Score, tt.want)
		}
	}
}

func TestFinancialIncomeBands(t *testing.T) {
	tests := []struct {
		band string
		want int
	}{
		{"$0", 15},
		{"Under $10,000", 15},
		{"$10,000-$15,000", 12},
		{"$15,000-$25,000", 8},
		{"$25,000-$35,000", 5},
		{"Over $50,000", 0},
		{"", 0},
	}
	for _, tt := range tests {
		sub := scoreFinancial(Profile{Income: Income{Band: tt.band}})
		if sub.Score != tt.want {
			t.Errorf("band %q = %d, want %d", tt.band, sub.Score, tt.want)
		}
	}
}

func TestHealthSafetyCap(t *testing.T) {
	sub := scoreHealthSafety(Profile{
		ExperiencingViolence: true,
		NoSafePlace:          true,
		NeedsImmediateHelp:   true,
		UnableToGetMedicine:  true,
		StressLevel:          "Very High",
		Needs:                []string{"domestic violence support"},
	})
	if sub.Score != maxHealthSafety {
		t.Errorf("score = %d, want capped at %d", sub.Score, maxHealthSafety)
	}
}

func TestHealthSafetyNeedTags(t *testing.T) {
	sub := scoreHealthSafety(Profile{
		Needs: []string{"Mental Health counseling", "substance abuse treatment"},
	})
	// One tag per need: 4 + 4.
	if sub.Score != 8 {
		t.Errorf("score = %d, want 8", sub.Score)
	}
}

func TestFamilySingleParentRequiresChildren(t *testing.T) {
	singleParent := scoreFamily(Profile{FamilyMembers: "2 children, single parent"})
	if singleParent.Score != 5 {
		t.Errorf("single parent with children = %d, want 5", singleParent.Score)
	}

	childrenOnly := scoreFamily(Profile{FamilyMembers: "me, my partner and children"})
	if childrenOnly.Score != 3 {
		t.Errorf("children without single parent = %d, want 3", childrenOnly.Score)
	}

	// The bonus only applies alongside children in the household.
	noChildren := scoreFamily(Profile{FamilyMembers: "single parent"})
	if noChildren.Score != 0 {
		t.Errorf("without children = %d, want 0", noChildren.Score)
	}
}

func TestFamilySingleParentFromSurveyMembers(t *testing.T) {
	rec := map[string]any{
		"source": "patient_intake_app",
		"familyAndHousing": map[string]any{
			"familyMembers": "2 children, single parent",
		},
	}
	a, err := fixedEngine().Assess(5, rec)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got := a.Factors.Family.Score; got != 5 {
		t.Errorf("family score = %d, want 5", got)
	}
}

func TestFamilyChildNeedCountedOnce(t *testing.T) {
	sub := scoreFamily(Profile{Needs: []string{"childcare", "child school supplies"}})
	if sub.Score != 3 {
		t.Errorf("score = %d, want 3", sub.Score)
	}
}

func TestEmploymentLadder(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{"unemployed", 6},
		{"looking for work", 4},
		{"seasonal farm work", 3},
		{"full-time", 0},
	}
	for _, tt := range tests {
		sub := scoreEmployment(Profile{WorkStatus: tt.status})
		if sub.Score != tt.want {
			t.Errorf("status %q = %d, want %d", tt.status, sub.Score, tt.want)
		}
	}
}

func TestEmploymentLowEducation(t *testing.T) {
	sub := scoreEmployment(Profile{WorkStatus: "unemployed", Education: "less than High School"})
	if sub.Score != 8 {
		t.Errorf("score = %d, want 8", sub.Score)
	}
}

func TestRecommendationOrdering(t *testing.T) {
	f := Factors{
		Housing:      SubScore{Score: 20},
		Financial:    SubScore{Score: 15},
		HealthSafety: SubScore{Score: 12},
	}
	got := recommend(f, 85)
	want := []string{
		"URGENT: Housing intervention required",
		"Emergency financial assistance needed",
		"URGENT: Safety assessment and intervention required",
		"CRITICAL: Immediate comprehensive intervention required",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recommendations = %v, want %v", got, want)
	}
}

func TestRecommendationLowerThresholds(t *testing.T) {
	f := Factors{
		Housing:      SubScore{Score: 12},
		Financial:    SubScore{Score: 9},
		HealthSafety: SubScore{Score: 6},
	}
	got := recommend(f, 62)
	want := []string{
		"Housing assistance should be prioritized",
		"Financial counseling and support recommended",
		"Health and safety support recommended",
		"High priority case - weekly check-ins recommended",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recommendations = %v, want %v", got, want)
	}
}

func TestAssessDeterministic(t *testing.T) {
	rec := map[string]any{
		"housing_status":    "evicted",
		"income_level":      "Under $10,000",
		"employment_status": "unemployed",
		"needs":             []any{"food", "housing"},
	}
	engine := fixedEngine()
	first, err := engine.Assess(3, rec)
	if err != nil {
		t.Fatalf("first Assess failed: %v", err)
	}
	second, err := engine.Assess(3, rec)
	if err != nil {
		t.Fatalf("second Assess failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("assessments differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAssessmentSurvivesJSONRoundTrip(t *testing.T) {
	rec := map[string]any{
		"housing_status":    "behind on rent",
		"income_level":      "Under $10,000",
		"employment_status": "unemployed",
		"needs":             []any{"food", "mental health support"},
	}
	engine := fixedEngine()
	first, err := engine.Assess(11, rec)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var stored Assessment
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	recomputed, err := engine.Assess(11, rec)
	if err != nil {
		t.Fatalf("second Assess failed: %v", err)
	}
	if stored.RiskPercentage != recomputed.RiskPercentage {
		t.Errorf("stored percentage = %v, recomputed = %v",
			stored.RiskPercentage, recomputed.RiskPercentage)
	}
	if !reflect.DeepEqual(&stored, recomputed) {
		t.Errorf("round-tripped assessment differs:\nstored:     %+v\nrecomputed: %+v",
			stored, *recomputed)
	}
}

func TestPercentageRounding(t *testing.T) {
	// 18 of 100 points stays exact; a third-decimal case rounds to one place.
	if got := round1(18.0); got != 18.0 {
		t.Errorf("round1(18.0) = %v", got)
	}
	if got := round1(33.333); got != 33.3 {
		t.Errorf("round1(33.333) = %v, want 33.3", got)
	}
	if got := round1(66.666); got != 66.7 {
		t.Errorf("round1(66.666) = %v, want 66.7", got)
	}
}
