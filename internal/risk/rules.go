package risk

import "strings"

// Maximum points each factor can contribute. Scores are capped before
// they enter the overall percentage, so a single overloaded answer
// cannot push a factor past its weight.
const (
	maxHousing       = 25
	maxFinancial     = 20
	maxHealthSafety  = 20
	maxSocialSupport = 15
	maxFamily        = 10
	maxEmployment    = 10
)

// housingTier is one rung of the housing severity ladder. Rungs are
// checked top down and the first match wins; allOf terms must all be
// present, otherwise any anyOf term is enough.
type housingTier struct {
	allOf  []string
	anyOf  []string
	points int
	detail string
}

var housingLadder = []housingTier{
	{allOf: []string{"homeless", "sleeping outside"}, points: 25, detail: "Currently homeless (sleeping outside)"},
	{anyOf: []string{"homeless"}, points: 20, detail: "Currently homeless (in shelter)"},
	{anyOf: []string{"evicted"}, points: 18, detail: "Recently evicted"},
	{anyOf: []string{"behind on rent"}, points: 15, detail: "Behind on rent or mortgage"},
	{anyOf: []string{"staying with friends", "temporar"}, points: 12, detail: "Temporary housing arrangement"},
	{anyOf: []string{"overcrowded"}, points: 10, detail: "Overcrowded housing"},
	{anyOf: []string{"transitional"}, points: 8, detail: "In transitional housing"},
	{anyOf: []string{"subsidized"}, points: 5, detail: "In subsidized housing"},
}

func (t housingTier) matches(status string) bool {
	if len(t.allOf) > 0 {
		for _, term := range t.allOf {
			if !strings.Contains(status, term) {
				return false
			}
		}
		return true
	}
	for _, term := range t.anyOf {
		if strings.Contains(status, term) {
			return true
		}
	}
	return false
}

// incomeTier covers one income bracket. Survey answers match a band
// string exactly; numeric legacy amounts match the upper bound.
type incomeTier struct {
	bands  []string
	below  float64
	points int
	detail string
}

var incomeLadder = []incomeTier{
	{bands: []string{"$0", "Under $10,000"}, below: 10000, points: 15, detail: "Extremely low income (under $10,000)"},
	{bands: []string{"$10,000-$15,000"}, below: 15000, points: 12, detail: "Very low income ($10,000-$15,000)"},
	{bands: []string{"$15,000-$25,000"}, below: 25000, points: 8, detail: "Low income ($15,000-$25,000)"},
	{bands: []string{"$25,000-$35,000"}, below: 35000, points: 5, detail: "Below median income"},
}

func (t incomeTier) matches(income Income) bool {
	if income.HasAmount {
		return income.Amount < t.below
	}
	for _, band := range t.bands {
		if income.Band == band {
			return true
		}
	}
	return false
}

// workTier scores employment-related answers. Separate ladders read the
// same field: one for financial strain, one for the employment factor.
type workTier struct {
	exact    string
	contains string
	points   int
	detail   string
}

func (t workTier) matches(status string) bool {
	if t.exact != "" {
		return status == t.exact
	}
	return strings.Contains(status, t.contains)
}

var financialWorkLadder = []workTier{
	{exact: "unemployed", points: 5, detail: "Currently unemployed"},
	{contains: "part-time", points: 3, detail: "Part-time employment only"},
	{contains: "disabled", points: 4, detail: "Unable to work due to disability"},
}

var employmentLadder = []workTier{
	{exact: "unemployed", points: 6, detail: "Unemployed"},
	{contains: "looking for work", points: 4, detail: "Seeking employment"},
	{contains: "seasonal", points: 3, detail: "Seasonal work only"},
}

// needTag adds points when a stated need mentions the tag. Each need
// contributes through at most one tag.
type needTag struct {
	tag    string
	points int
	detail string
}

var safetyNeedTags = []needTag{
	{tag: "domestic violence", points: 8, detail: "Domestic violence need identified"},
	{tag: "mental health", points: 4, detail: "Mental health need identified"},
	{tag: "substance abuse", points: 4, detail: "Substance abuse need identified"},
}

var socialContactLadder = map[string]struct {
	points int
	detail string
}{
	"Never":     {10, "Socially isolated (no regular contact)"},
	"Rarely":    {7, "Very limited social contact"},
	"Sometimes": {3, "Some social contact"},
}

var stressLadder = map[string]struct {
	points int
	detail string
}{
	"Very High": {4, "Very high stress level"},
	"High":      {2, "High stress level"},
}

// Education answers that add financial vulnerability, compared
// case-insensitively since the legacy field was free text.
var lowEducationLevels = []string{
	"no formal education",
	"less than high school",
}

func isLowEducation(level string) bool {
	for _, l := range lowEducationLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}
