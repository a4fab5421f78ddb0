package analytics

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/nextstep-care/platform/internal/client"
	"github.com/nextstep-care/platform/internal/resource"
	"github.com/nextstep-care/platform/internal/risk"
)

// trendCategories is the fixed category breakdown reported for every
// trend point, whether or not the day had any activity in it.
var trendCategories = []string{
	"housing", "food", "transportation", "mental_health_substance_abuse",
	"immigration_legal", "goods_clothing", "utilities", "other",
}

// factorNames lists the risk factors in report order.
var factorNames = []string{
	"housing", "financial", "health_safety", "social_support", "family", "employment",
}

// Service computes aggregate views over the client roster: fleet-wide
// risk assessments, resource usage trends, and the comprehensive
// statistics that back the reporting dashboard.
type Service struct {
	clients   client.Store
	resources resource.Store
	engine    *risk.Engine

	now func() time.Time
}

func NewService(clients client.Store, resources resource.Store, engine *risk.Engine) *Service {
	return &Service{
		clients:   clients,
		resources: resources,
		engine:    engine,
		now:       time.Now,
	}
}

// ClientAssessment scores a single stored client.
func (s *Service) ClientAssessment(ctx context.Context, clientID int) (*risk.Assessment, error) {
	rec, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.engine.Assess(clientID, rec)
}

// AssessmentReport holds assessments for the whole roster, highest
// risk first.
type AssessmentReport struct {
	Assessments    []*risk.Assessment `json:"risk_assessments"`
	TotalCount     int                `json:"total_count"`
	LastCalculated time.Time          `json:"last_calculated"`
}

// AllAssessments scores every client. Records that fail to normalize
// are skipped rather than failing the whole report.
func (s *Service) AllAssessments(ctx context.Context) (*AssessmentReport, error) {
	records, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}

	assessments := s.assessAll(records)
	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].RiskPercentage > assessments[j].RiskPercentage
	})

	return &AssessmentReport{
		Assessments:    assessments,
		TotalCount:     len(assessments),
		LastCalculated: s.now().UTC(),
	}, nil
}

func (s *Service) assessAll(records []client.Record) []*risk.Assessment {
	assessments := make([]*risk.Assessment, 0, len(records))
	for _, rec := range records {
		a, err := s.engine.Assess(rec.ID(), rec)
		if err != nil {
			log.Printf("analytics: skipping client %d: %v", rec.ID(), err)
			continue
		}
		assessments = append(assessments, a)
	}
	return assessments
}

// TrendPoint is one day's resource activity.
type TrendPoint struct {
	Date       string         `json:"date"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
}

// TrendReport covers resource usage over a rolling window of days.
type TrendReport struct {
	PeriodDays             int            `json:"period_days"`
	StartDate              time.Time      `json:"start_date"`
	EndDate                time.Time      `json:"end_date"`
	TrendData              []TrendPoint   `json:"trend_data"`
	CategoriesUsed         []string       `json:"categories_used"`
	StatusDistribution     map[string]int `json:"status_distribution"`
	TotalResourcesAccessed int            `json:"total_resources_accessed"`
}

// ResourceTrends buckets every assigned resource by the day it was
// added, over the trailing window. Resources with unparseable dates
// are ignored.
func (s *Service) ResourceTrends(ctx context.Context, days int) (*TrendReport, error) {
	if days <= 0 {
		days = 30
	}
	records, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)

	daily := map[string]map[string]int{}
	statusDist := map[string]int{}
	total := 0

	for _, rec := range records {
		for _, res := range rec.Resources() {
			added, ok := parseResourceDate(stringValue(res, "added_date"))
			if !ok || added.Before(start) || added.After(end) {
				continue
			}
			day := added.Format("2006-01-02")
			if daily[day] == nil {
				daily[day] = map[string]int{}
			}
			category := stringOr(res, "category", "other")
			daily[day][category]++
			total++

			statusDist[stringOr(res, "status", "pending")]++
		}
	}

	used := map[string]bool{}
	points := make([]TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		point := TrendPoint{Date: day, Categories: map[string]int{}}
		for _, category := range trendCategories {
			count := daily[day][category]
			point.Categories[category] = count
			point.Total += count
			if count > 0 {
				used[category] = true
			}
		}
		points = append(points, point)
	}

	return &TrendReport{
		PeriodDays:             days,
		StartDate:              start.UTC(),
		EndDate:                end.UTC(),
		TrendData:              points,
		CategoriesUsed:         sortedKeys(used),
		StatusDistribution:     statusDist,
		TotalResourcesAccessed: total,
	}, nil
}

// Overview is the headline roster count block.
type Overview struct {
	TotalClients            int `json:"total_clients"`
	IntakeSubmissions       int `json:"intake_submissions"`
	ActiveClients           int `json:"active_clients"`
	TotalResourcesAvailable int `json:"total_resources_available"`
	TotalResourcesAssigned  int `json:"total_resources_assigned"`
}

// Demographics counts clients along each reported dimension. Language
// and race are only collected on survey intake submissions.
type Demographics struct {
	Gender           map[string]int `json:"gender"`
	AgeGroups        map[string]int `json:"age_groups"`
	FamilyStatus     map[string]int `json:"family_status"`
	EmploymentStatus map[string]int `json:"employment_status"`
	VeteranStatus    map[string]int `json:"veteran_status"`
	Language         map[string]int `json:"language"`
	RaceEthnicity    map[string]int `json:"race_ethnicity"`
}

// FactorStats summarizes one risk factor across the roster.
type FactorStats struct {
	AverageScore  float64 `json:"average_score"`
	MaxScore      int     `json:"max_score"`
	HighRiskCount int     `json:"high_risk_count"`
}

// RiskAnalysis is the fleet-wide risk distribution.
type RiskAnalysis struct {
	LevelDistribution map[string]int         `json:"risk_level_distribution"`
	AveragePercentage float64                `json:"average_risk_percentage"`
	MedianPercentage  float64                `json:"median_risk_percentage"`
	HighestPercentage float64                `json:"highest_risk_percentage"`
	LowestPercentage  float64                `json:"lowest_risk_percentage"`
	FactorAnalysis    map[string]FactorStats `json:"factor_analysis"`
}

// ResourceAnalysis summarizes assigned-resource usage.
type ResourceAnalysis struct {
	TotalAssigned        int            `json:"total_resources_assigned"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	StatusDistribution   map[string]int `json:"status_distribution"`
	MonthlyTrends        map[string]int `json:"monthly_trends"`
	AveragePerClient     float64        `json:"average_resources_per_client"`
}

// NeedCount pairs a need with how many clients reported it.
type NeedCount struct {
	Need  string `json:"need"`
	Count int    `json:"count"`
}

// NeedsAnalysis aggregates reported needs. Survey intake flags are
// folded in under unable_to_get_* keys.
type NeedsAnalysis struct {
	Frequency   map[string]int `json:"needs_frequency"`
	UrgentNeeds map[string]int `json:"urgent_needs"`
	MostCommon  []NeedCount    `json:"most_common_needs"`
}

// GeographicAnalysis counts clients by city and zip code.
type GeographicAnalysis struct {
	Cities   map[string]int `json:"city_distribution"`
	ZipCodes map[string]int `json:"zip_code_distribution"`
}

// OutcomeDistribution buckets each client with assigned resources by
// their best resource status.
type OutcomeDistribution struct {
	Successful     int `json:"successful"`
	InProgress     int `json:"in_progress"`
	NeedsAttention int `json:"needs_attention"`
}

// OutcomeAnalysis tracks client outcomes and per-category success
// rates.
type OutcomeAnalysis struct {
	Outcomes           OutcomeDistribution `json:"outcome_distribution"`
	EffectivenessRates map[string]float64  `json:"resource_effectiveness_rates"`
}

// Stats is the full statistical breakdown for the reporting screens.
type Stats struct {
	LastUpdated         time.Time          `json:"last_updated"`
	Overview            Overview           `json:"overview"`
	Demographics        Demographics       `json:"demographics"`
	RiskAnalysis        RiskAnalysis       `json:"risk_analysis"`
	ResourceAnalysis    ResourceAnalysis   `json:"resource_analysis"`
	NeedsAnalysis       NeedsAnalysis      `json:"needs_analysis"`
	GeographicAnalysis  GeographicAnalysis `json:"geographic_analysis"`
	OutcomeAnalysis     OutcomeAnalysis    `json:"outcome_analysis"`
	DetailedAssessments []*risk.Assessment `json:"detailed_risk_assessments"`
}

// ComprehensiveStats builds the complete breakdown in one pass over
// the roster and resource directory.
func (s *Service) ComprehensiveStats(ctx context.Context) (*Stats, error) {
	records, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}

	available := 0
	if s.resources != nil {
		catalog, err := s.resources.List(ctx)
		if err != nil {
			return nil, err
		}
		available = len(catalog)
	}

	assessments := s.assessAll(records)

	intake := 0
	assigned := 0
	for _, rec := range records {
		if rec.IsSurvey() {
			intake++
		}
		assigned += len(rec.Resources())
	}

	return &Stats{
		LastUpdated: s.now().UTC(),
		Overview: Overview{
			TotalClients:            len(records),
			IntakeSubmissions:       intake,
			ActiveClients:           len(records) - intake,
			TotalResourcesAvailable: available,
			TotalResourcesAssigned:  assigned,
		},
		Demographics:        analyzeDemographics(records, s.now()),
		RiskAnalysis:        analyzeRiskDistribution(assessments),
		ResourceAnalysis:    analyzeResourceUsage(records),
		NeedsAnalysis:       analyzeNeeds(records),
		GeographicAnalysis:  analyzeGeography(records),
		OutcomeAnalysis:     analyzeOutcomes(records),
		DetailedAssessments: assessments,
	}, nil
}

func analyzeDemographics(records []client.Record, now time.Time) Demographics {
	d := Demographics{
		Gender:           map[string]int{},
		AgeGroups:        map[string]int{},
		FamilyStatus:     map[string]int{},
		EmploymentStatus: map[string]int{},
		VeteranStatus:    map[string]int{},
		Language:         map[string]int{},
		RaceEthnicity:    map[string]int{},
	}

	for _, rec := range records {
		d.Gender[stringOr(rec, "gender", "Unknown")]++

		if age, ok := ageFromDOB(stringValue(rec, "dateOfBirth"), now); ok {
			d.AgeGroups[ageBucket(age)]++
		}

		if status := stringValue(rec, "family_status"); status != "" {
			d.FamilyStatus[status]++
		}

		employment := stringValue(rec, "employment_status")
		if employment == "" {
			employment = stringValue(section(rec, "moneyAndResources"), "workSituation")
		}
		if employment == "" {
			employment = "Unknown"
		}
		d.EmploymentStatus[employment]++

		veteran := stringValue(rec, "is_veteran")
		if veteran == "" {
			veteran = stringOr(section(rec, "personalCharacteristics"), "veteran", "No")
		}
		d.VeteranStatus[veteran]++

		if rec.IsSurvey() {
			personal := section(rec, "personalCharacteristics")
			d.Language[stringOr(personal, "language", "Unknown")]++

			if stringValue(personal, "hispanicLatino") == "Yes" {
				d.RaceEthnicity["Hispanic/Latino"]++
			} else {
				for _, race := range stringSlice(personal, "race") {
					d.RaceEthnicity[race]++
				}
			}
		}
	}
	return d
}

func analyzeRiskDistribution(assessments []*risk.Assessment) RiskAnalysis {
	analysis := RiskAnalysis{
		LevelDistribution: map[string]int{},
		FactorAnalysis:    map[string]FactorStats{},
	}

	percentages := make([]float64, 0, len(assessments))
	factorScores := map[string][]int{}
	for _, a := range assessments {
		analysis.LevelDistribution[string(a.RiskLevel)]++
		percentages = append(percentages, a.RiskPercentage)
		for name, sub := range factorSubScores(a.Factors) {
			factorScores[name] = append(factorScores[name], sub.Score)
		}
	}

	if len(percentages) > 0 {
		analysis.AveragePercentage = round1(mean(percentages))
		analysis.MedianPercentage = round1(median(percentages))
		analysis.HighestPercentage = maxFloat(percentages)
		analysis.LowestPercentage = minFloat(percentages)
	}

	for _, name := range factorNames {
		scores := factorScores[name]
		if len(scores) == 0 {
			continue
		}
		avg := meanInt(scores)
		stats := FactorStats{AverageScore: round1(avg)}
		for _, score := range scores {
			if score > stats.MaxScore {
				stats.MaxScore = score
			}
			if float64(score) > avg {
				stats.HighRiskCount++
			}
		}
		analysis.FactorAnalysis[name] = stats
	}
	return analysis
}

func analyzeResourceUsage(records []client.Record) ResourceAnalysis {
	analysis := ResourceAnalysis{
		CategoryDistribution: map[string]int{},
		StatusDistribution:   map[string]int{},
		MonthlyTrends:        map[string]int{},
	}

	for _, rec := range records {
		resources := rec.Resources()
		analysis.TotalAssigned += len(resources)

		for _, res := range resources {
			analysis.CategoryDistribution[stringOr(res, "category", "other")]++
			analysis.StatusDistribution[stringOr(res, "status", "pending")]++

			if added, ok := parseResourceDate(stringValue(res, "added_date")); ok {
				analysis.MonthlyTrends[added.Format("2006-01")]++
			}
		}
	}

	if len(records) > 0 {
		analysis.AveragePerClient = round2(float64(analysis.TotalAssigned) / float64(len(records)))
	}
	return analysis
}

func analyzeNeeds(records []client.Record) NeedsAnalysis {
	analysis := NeedsAnalysis{
		Frequency:   map[string]int{},
		UrgentNeeds: map[string]int{},
	}

	for _, rec := range records {
		for _, need := range stringSlice(rec, "needs") {
			analysis.Frequency[need]++
		}

		if !rec.IsSurvey() {
			continue
		}
		basicNeeds := section(rec, "basicNeeds")
		stress := stringValue(basicNeeds, "stressLevel")
		urgent := stress == "High" || stress == "Very High"
		for need, flagged := range mapSection(basicNeeds, "unableToGet") {
			if !truthy(flagged) {
				continue
			}
			key := "unable_to_get_" + need
			analysis.Frequency[key]++
			if urgent {
				analysis.UrgentNeeds[key]++
			}
		}
	}

	analysis.MostCommon = topNeeds(analysis.Frequency, 10)
	return analysis
}

func analyzeGeography(records []client.Record) GeographicAnalysis {
	analysis := GeographicAnalysis{
		Cities:   map[string]int{},
		ZipCodes: map[string]int{},
	}

	for _, rec := range records {
		if address := stringValue(rec, "address"); address != "" {
			if tail := lastCommaPart(address); tail != "" && containsTexas(tail) {
				analysis.Cities["Houston area"]++
			}
		}

		if !rec.IsSurvey() {
			continue
		}
		addressInfo := mapSection(section(rec, "familyAndHousing"), "address")
		if city := stringValue(addressInfo, "city"); city != "" {
			analysis.Cities[city]++
		}
		if zip := stringValue(addressInfo, "zipCode"); zip != "" {
			analysis.ZipCodes[zip]++
		}
	}
	return analysis
}

func analyzeOutcomes(records []client.Record) OutcomeAnalysis {
	analysis := OutcomeAnalysis{EffectivenessRates: map[string]float64{}}

	type tally struct{ total, successful int }
	effectiveness := map[string]*tally{}

	for _, rec := range records {
		resources := rec.Resources()
		if len(resources) == 0 {
			continue
		}

		hasSuccess := false
		hasProgress := false
		for _, res := range resources {
			category := stringOr(res, "category", "other")
			status := stringOr(res, "status", "pending")

			t := effectiveness[category]
			if t == nil {
				t = &tally{}
				effectiveness[category] = t
			}
			t.total++

			switch status {
			case "completed", "successful":
				t.successful++
				hasSuccess = true
			case "in_progress", "active":
				hasProgress = true
			}
		}

		switch {
		case hasSuccess:
			analysis.Outcomes.Successful++
		case hasProgress:
			analysis.Outcomes.InProgress++
		default:
			analysis.Outcomes.NeedsAttention++
		}
	}

	for category, t := range effectiveness {
		if t.total > 0 {
			analysis.EffectivenessRates[category] = round1(float64(t.successful) / float64(t.total) * 100)
		}
	}
	return analysis
}

func factorSubScores(f risk.Factors) map[string]risk.SubScore {
	return map[string]risk.SubScore{
		"housing":        f.Housing,
		"financial":      f.Financial,
		"health_safety":  f.HealthSafety,
		"social_support": f.SocialSupport,
		"family":         f.Family,
		"employment":     f.Employment,
	}
}

func topNeeds(frequency map[string]int, limit int) []NeedCount {
	counts := make([]NeedCount, 0, len(frequency))
	for need, count := range frequency {
		counts = append(counts, NeedCount{Need: need, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Need < counts[j].Need
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func ageBucket(age int) string {
	switch {
	case age < 18:
		return "Under 18"
	case age < 25:
		return "18-24"
	case age < 35:
		return "25-34"
	case age < 50:
		return "35-49"
	case age < 65:
		return "50-64"
	default:
		return "65+"
	}
}
