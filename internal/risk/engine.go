package risk

import (
	"math"
	"strings"
	"time"
)

// Tier buckets an overall risk percentage for triage.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
)

// TierFor maps a percentage onto its tier. Boundaries are inclusive at
// the bottom of each band.
func TierFor(percentage float64) Tier {
	switch {
	case percentage >= 80:
		return TierCritical
	case percentage >= 60:
		return TierHigh
	case percentage >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

// SubScore is one factor's contribution: capped points, the cap itself,
// and a human-readable line per rule that fired.
type SubScore struct {
	Score    int      `json:"score"`
	MaxScore int      `json:"max_score"`
	Details  []string `json:"details"`
}

// Factors holds the six scored dimensions of a client's situation.
type Factors struct {
	Housing       SubScore `json:"housing"`
	Financial     SubScore `json:"financial"`
	HealthSafety  SubScore `json:"health_safety"`
	SocialSupport SubScore `json:"social_support"`
	Family        SubScore `json:"family"`
	Employment    SubScore `json:"employment"`
}

// Assessment is the full scoring result for one client record.
type Assessment struct {
	ClientID        int       `json:"client_id"`
	RiskPercentage  float64   `json:"risk_percentage"`
	RiskLevel       Tier      `json:"risk_level"`
	TotalScore      int       `json:"total_score"`
	MaxPossible     int       `json:"max_possible_score"`
	Factors         Factors   `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

// Engine scores client records against the fixed rubric. The same
// record always produces the same assessment; the clock is injectable
// so tests can pin CalculatedAt.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Assess normalizes the record and runs every factor's rules. It fails
// only on malformed input, never on missing fields.
func (e *Engine) Assess(clientID int, rec map[string]any) (*Assessment, error) {
	profile, err := Normalize(rec)
	if err != nil {
		return nil, err
	}

	factors := Factors{
		Housing:       scoreHousing(profile),
		Financial:     scoreFinancial(profile),
		HealthSafety:  scoreHealthSafety(profile),
		SocialSupport: scoreSocialSupport(profile),
		Family:        scoreFamily(profile),
		Employment:    scoreEmployment(profile),
	}

	total := factors.Housing.Score + factors.Financial.Score +
		factors.HealthSafety.Score + factors.SocialSupport.Score +
		factors.Family.Score + factors.Employment.Score
	maxPossible := maxHousing + maxFinancial + maxHealthSafety +
		maxSocialSupport + maxFamily + maxEmployment

	percentage := round1(float64(total) / float64(maxPossible) * 100)

	return &Assessment{
		ClientID:        clientID,
		RiskPercentage:  percentage,
		RiskLevel:       TierFor(percentage),
		TotalScore:      total,
		MaxPossible:     maxPossible,
		Factors:         factors,
		Recommendations: recommend(factors, percentage),
		CalculatedAt:    e.now().UTC(),
	}, nil
}

func scoreHousing(p Profile) SubScore {
	sub := newSubScore(maxHousing)
	status := strings.ToLower(p.HousingStatus)
	if status != "" {
		for _, tier := range housingLadder {
			if tier.matches(status) {
				sub.add(tier.points, tier.detail)
				break
			}
		}
	}
	if p.WorriedAboutHousing {
		sub.add(5, "Worried about losing housing")
	}
	return sub.capped()
}

func scoreFinancial(p Profile) SubScore {
	sub := newSubScore(maxFinancial)
	for _, tier := range incomeLadder {
		if tier.matches(p.Income) {
			sub.add(tier.points, tier.detail)
			break
		}
	}
	work := strings.ToLower(p.WorkStatus)
	for _, tier := range financialWorkLadder {
		if tier.matches(work) {
			sub.add(tier.points, tier.detail)
			break
		}
	}
	return sub.capped()
}

func scoreHealthSafety(p Profile) SubScore {
	sub := newSubScore(maxHealthSafety)
	if p.ExperiencingViolence {
		sub.add(10, "Experiencing violence")
	}
	if p.NoSafePlace {
		sub.add(8, "No safe place to stay")
	}
	if p.NeedsImmediateHelp {
		sub.add(6, "Needs immediate help")
	}
	if p.UnableToGetMedicine {
		sub.add(5, "Unable to obtain medicine")
	}
	if rung, ok := stressLadder[p.StressLevel]; ok {
		sub.add(rung.points, rung.detail)
	}
	for _, need := range p.Needs {
		lower := strings.ToLower(need)
		for _, tag := range safetyNeedTags {
			if strings.Contains(lower, tag.tag) {
				sub.add(tag.points, tag.detail)
				break
			}
		}
	}
	return sub.capped()
}

func scoreSocialSupport(p Profile) SubScore {
	sub := newSubScore(maxSocialSupport)
	if rung, ok := socialContactLadder[p.SocialContact]; ok {
		sub.add(rung.points, rung.detail)
	}
	if strings.Contains(strings.ToLower(p.FamilyStatus), "single") {
		sub.add(2, "Single, limited family support")
	}
	return sub.capped()
}

func scoreFamily(p Profile) SubScore {
	sub := newSubScore(maxFamily)
	members := strings.ToLower(p.FamilyMembers)
	if strings.Contains(members, "children") {
		sub.add(3, "Children in household")
		if strings.Contains(members, "single parent") {
			sub.add(2, "Single parent household")
		}
	}
	for _, need := range p.Needs {
		lower := strings.ToLower(need)
		if strings.Contains(lower, "childcare") || strings.Contains(lower, "child") {
			sub.add(3, "Child-related need identified")
			break
		}
	}
	return sub.capped()
}

func scoreEmployment(p Profile) SubScore {
	sub := newSubScore(maxEmployment)
	work := strings.ToLower(p.WorkStatus)
	for _, tier := range employmentLadder {
		if tier.matches(work) {
			sub.add(tier.points, tier.detail)
			break
		}
	}
	if isLowEducation(p.Education) {
		sub.add(2, "Limited formal education")
	}
	return sub.capped()
}

// recommend derives action items from the capped factor scores and the
// overall percentage, most urgent first.
func recommend(f Factors, percentage float64) []string {
	recs := []string{}
	switch {
	case f.Housing.Score > 15:
		recs = append(recs, "URGENT: Housing intervention required")
	case f.Housing.Score > 10:
		recs = append(recs, "Housing assistance should be prioritized")
	}
	switch {
	case f.Financial.Score > 12:
		recs = append(recs, "Emergency financial assistance needed")
	case f.Financial.Score > 8:
		recs = append(recs, "Financial counseling and support recommended")
	}
	switch {
	case f.HealthSafety.Score > 10:
		recs = append(recs, "URGENT: Safety assessment and intervention required")
	case f.HealthSafety.Score > 5:
		recs = append(recs, "Health and safety support recommended")
	}
	switch {
	case percentage >= 80:
		recs = append(recs, "CRITICAL: Immediate comprehensive intervention required")
	case percentage >= 60:
		recs = append(recs, "High priority case - weekly check-ins recommended")
	}
	return recs
}

type subScoreBuilder struct {
	score   int
	max     int
	details []string
}

func newSubScore(max int) subScoreBuilder {
	return subScoreBuilder{max: max, details: []string{}}
}

func (b *subScoreBuilder) add(points int, detail string) {
	b.score += points
	b.details = append(b.details, detail)
}

func (b subScoreBuilder) capped() SubScore {
	score := b.score
	if score > b.max {
		score = b.max
	}
	return SubScore{Score: score, MaxScore: b.max, Details: b.details}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
