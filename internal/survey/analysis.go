package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nextstep-care/platform/internal/llm"
)

// Analyzer turns raw survey answers into a structured situation
// analysis. The language model produces the primary analysis; a
// deterministic heuristic stands in whenever the model is missing or
// returns something unparseable, so Analyze always yields a result.
type Analyzer struct {
	generator llm.TextGenerator
}

func NewAnalyzer(generator llm.TextGenerator) *Analyzer {
	return &Analyzer{generator: generator}
}

// Analyze never fails; degraded paths fall back to the heuristic.
func (a *Analyzer) Analyze(ctx context.Context, surveyData, userProfile map[string]any) map[string]any {
	if a.generator == nil {
		return fallbackAnalysis(surveyData)
	}

	text, err := a.generator.Generate(ctx, analysisPrompt(surveyData, userProfile))
	if err != nil {
		log.Printf("survey: analysis generation failed: %v", err)
		return fallbackAnalysis(surveyData)
	}

	var analysis map[string]any
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(text)), &analysis); err != nil {
		log.Printf("survey: analysis response was not valid JSON: %v", err)
		return fallbackAnalysis(surveyData)
	}
	return analysis
}

func analysisPrompt(surveyData, userProfile map[string]any) string {
	address, _ := surveyData["address"].(map[string]any)
	unable, _ := surveyData["unableToGet"].(map[string]any)

	return fmt.Sprintf(`You are a professional social worker analyzing a patient intake survey. Provide a comprehensive analysis in JSON format.

PATIENT PROFILE:
Name: %s
Email: %s
Phone: %s

SURVEY RESPONSES:
Housing Status: %s
Worried about Housing: %s
Address: %s, %s, %s %s
Family Members: %s
Work Status: %s
Combined Income: %s
Insurance: %s

Unable to Get (Basic Needs):
- Food: %v
- Clothing: %v
- Transportation: %v
- Utilities: %v
- Medicine: %v
- Childcare: %v
- Other: %s

Provide analysis in this exact JSON format:
{
    "summary": "A professional 2-3 sentence summary of the patient's situation and primary concerns",
    "riskLevel": "CRITICAL|HIGH|MEDIUM|LOW",
    "priorityScore": integer from 1-100,
    "housingStability": "STABLE|AT_RISK|UNSTABLE",
    "financialSituation": "STABLE|STRUGGLING|CRITICAL",
    "healthConcerns": "NONE|MODERATE|SIGNIFICANT",
    "socialSupport": "ADEQUATE|LIMITED|ISOLATED",
    "urgentNeeds": ["list", "of", "urgent", "needs"],
    "resources": ["recommended", "resource", "types"],
    "insights": ["key", "professional", "insights"],
    "immediateActions": ["specific", "actions", "needed"]
}`,
		orNotProvided(userProfile, "name"),
		orNotProvided(userProfile, "email"),
		orNotProvided(userProfile, "phone"),
		orNotProvided(surveyData, "housingStatus"),
		orNotProvided(surveyData, "worriedAboutHousing"),
		orNotProvided(address, "street"),
		orNotProvided(address, "city"),
		orNotProvided(address, "state"),
		orNotProvided(address, "zipCode"),
		orNotProvided(surveyData, "familyMembers"),
		orNotProvided(surveyData, "workStatus"),
		orNotProvided(surveyData, "combinedIncome"),
		orNotProvided(surveyData, "insurance"),
		flag(unable, "food"),
		flag(unable, "clothing"),
		flag(unable, "transportation"),
		flag(unable, "utilities"),
		flag(unable, "medicine"),
		flag(unable, "childcare"),
		textOr(unable, "otherText", "None"))
}

// fallbackAnalysis produces the heuristic analysis used when the model
// is unavailable. Scoring weights mirror the survey's own framing: lost
// housing dominates, then critical material needs, then income.
func fallbackAnalysis(surveyData map[string]any) map[string]any {
	unable, _ := surveyData["unableToGet"].(map[string]any)

	var urgentNeeds []string
	for _, need := range []string{"food", "medicine", "utilities"} {
		if flag(unable, need) {
			urgentNeeds = append(urgentNeeds, strings.ToUpper(need[:1])+need[1:])
		}
	}

	housingStatus := strings.ToLower(textOr(surveyData, "housingStatus", ""))
	worriedHousing := strings.ToLower(textOr(surveyData, "worriedAboutHousing", ""))

	riskScore := 0
	switch {
	case strings.Contains(housingStatus, "homeless"), strings.Contains(housingStatus, "shelter"):
		riskScore += 40
	case strings.Contains(housingStatus, "temporary"), strings.Contains(housingStatus, "couch"):
		riskScore += 30
	case strings.Contains(worriedHousing, "yes"), strings.Contains(worriedHousing, "very"):
		riskScore += 20
	}
	riskScore += len(urgentNeeds) * 15

	income := strings.ToLower(textOr(surveyData, "combinedIncome", ""))
	switch {
	case strings.Contains(income, "none"), strings.Contains(income, "$0"):
		riskScore += 25
	case strings.Contains(income, "$1,000"), strings.Contains(income, "$500"):
		riskScore += 15
	}

	var riskLevel string
	switch {
	case riskScore >= 70:
		riskLevel = "CRITICAL"
	case riskScore >= 50:
		riskLevel = "HIGH"
	case riskScore >= 30:
		riskLevel = "MEDIUM"
	default:
		riskLevel = "LOW"
	}

	var concerns []string
	if len(urgentNeeds) > 0 {
		concerns = append(concerns, "immediate needs for "+strings.ToLower(strings.Join(urgentNeeds, ", ")))
	}
	if strings.Contains(housingStatus, "homeless") {
		concerns = append(concerns, "housing instability")
	}
	if strings.Contains(income, "none") {
		concerns = append(concerns, "lack of income")
	}

	summary := "Patient has completed intake assessment. Basic needs appear to be met with some areas requiring follow-up."
	if len(concerns) > 0 {
		summary = "Patient presents with " + strings.Join(concerns, " and ") +
			". Requires immediate social work intervention and resource coordination."
	}

	housingStability := "STABLE"
	if strings.Contains(housingStatus, "homeless") {
		housingStability = "UNSTABLE"
	} else if worriedHousing != "" {
		housingStability = "AT_RISK"
	}

	financialSituation := "STABLE"
	if strings.Contains(income, "none") {
		financialSituation = "CRITICAL"
	} else if strings.Contains(income, "$1,000") {
		financialSituation = "STRUGGLING"
	}

	healthConcerns := "MODERATE"
	if flag(unable, "medicine") {
		healthConcerns = "SIGNIFICANT"
	}

	priorityScore := riskScore
	if priorityScore > 100 {
		priorityScore = 100
	}

	if urgentNeeds == nil {
		urgentNeeds = []string{}
	}

	return map[string]any{
		"summary":            summary,
		"riskLevel":          riskLevel,
		"priorityScore":      priorityScore,
		"housingStability":   housingStability,
		"financialSituation": financialSituation,
		"healthConcerns":     healthConcerns,
		"socialSupport":      "LIMITED",
		"urgentNeeds":        urgentNeeds,
		"resources":          []string{"Housing Assistance", "Food Security", "Healthcare Access"},
		"insights": []string{
			"Risk assessment indicates " + strings.ToLower(riskLevel) + " priority level",
			"Comprehensive needs assessment recommended",
			"Follow-up within 24-48 hours advised",
		},
		"immediateActions": []string{
			"Contact patient within 24 hours",
			"Assess immediate safety and housing needs",
			"Connect with emergency resources if needed",
		},
	}
}

func orNotProvided(m map[string]any, key string) string {
	return textOr(m, key, "Not provided")
}

func textOr(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func flag(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "Yes" || v == "yes"
	}
	return false
}
