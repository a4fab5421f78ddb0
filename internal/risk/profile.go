package risk

import (
	"fmt"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Profile is the normalized view of a client record that the scoring
// rules read. Both stored shapes (legacy flat and nested intake survey)
// map into this one representation before any rule runs, so the rule
// tables never branch on shape. Absent fields stay at their zero value
// and contribute nothing to any sub-score.
type Profile struct {
	HousingStatus       string
	WorriedAboutHousing bool

	Income     Income
	WorkStatus string
	Education  string

	ExperiencingViolence bool
	NoSafePlace          bool
	NeedsImmediateHelp   bool
	UnableToGetMedicine  bool
	StressLevel          string

	SocialContact string
	FamilyStatus  string
	FamilyMembers string

	Needs []string
}

// Income is either a banded string (intake survey) or a numeric annual
// amount (legacy records). At most one of the two is set.
type Income struct {
	Band      string
	Amount    float64
	HasAmount bool
}

const sourceIntakeApp = "patient_intake_app"

// Normalize maps a raw client record into a Profile. Missing fields are
// treated as unknown; a field carrying the wrong type is a validation
// error naming the field, never a silent zero.
func Normalize(rec map[string]any) (Profile, error) {
	var p Profile
	if rec == nil {
		return p, nil
	}

	source, err := optString(rec, "source")
	if err != nil {
		return p, err
	}

	if source == sourceIntakeApp {
		if err := normalizeSurvey(rec, &p); err != nil {
			return Profile{}, err
		}
	} else {
		if err := normalizeFlat(rec, &p); err != nil {
			return Profile{}, err
		}
	}

	// Fields shared by both shapes. Survey records that leave the
	// housing section blank still fall back to the flat fields; early
	// legacy records kept the housing situation in family_status.
	if p.HousingStatus == "" {
		if p.HousingStatus, err = optString(rec, "housing_status"); err != nil {
			return Profile{}, err
		}
	}
	if p.HousingStatus == "" {
		if p.HousingStatus, err = optString(rec, "family_status"); err != nil {
			return Profile{}, err
		}
	}
	if p.FamilyStatus == "" {
		p.FamilyStatus, err = optString(rec, "family_status")
		if err != nil {
			return Profile{}, err
		}
	}
	if p.Needs, err = optStringSlice(rec, "needs"); err != nil {
		return Profile{}, err
	}

	return p, nil
}

func normalizeFlat(rec map[string]any, p *Profile) error {
	var err error
	if p.WorkStatus, err = optString(rec, "employment_status"); err != nil {
		return err
	}
	if p.Education, err = optString(rec, "education_level"); err != nil {
		return err
	}
	if err = normalizeIncome(rec["income_level"], "income_level", &p.Income); err != nil {
		return err
	}
	return nil
}

func normalizeSurvey(rec map[string]any, p *Profile) error {
	familyHousing, err := optSection(rec, "familyAndHousing")
	if err != nil {
		return err
	}
	if familyHousing != nil {
		if p.HousingStatus, err = optString(familyHousing, "housingSituation"); err != nil {
			return err
		}
		worried, err := optString(familyHousing, "worriedAboutHousing")
		if err != nil {
			return err
		}
		p.WorriedAboutHousing = equalsYes(worried)
		if p.FamilyMembers, err = optString(familyHousing, "familyMembers"); err != nil {
			return err
		}
	}

	money, err := optSection(rec, "moneyAndResources")
	if err != nil {
		return err
	}
	if money != nil {
		if err = normalizeIncome(money["annualIncome"], "annualIncome", &p.Income); err != nil {
			return err
		}
		if p.WorkStatus, err = optString(money, "workSituation"); err != nil {
			return err
		}
		if p.Education, err = optString(money, "educationLevel"); err != nil {
			return err
		}
	}

	safety, err := optSection(rec, "safetyQuestions")
	if err != nil {
		return err
	}
	if safety != nil {
		violence, err := optString(safety, "experiencingViolence")
		if err != nil {
			return err
		}
		p.ExperiencingViolence = equalsYes(violence)

		safePlace, err := optString(safety, "safePlace")
		if err != nil {
			return err
		}
		p.NoSafePlace = equalsNo(safePlace)

		p.NeedsImmediateHelp = isTruthy(safety["needsImmediateHelp"])
	}

	basic, err := optSection(rec, "basicNeeds")
	if err != nil {
		return err
	}
	if basic != nil {
		if p.StressLevel, err = optString(basic, "stressLevel"); err != nil {
			return err
		}
		if p.SocialContact, err = optString(basic, "socialContact"); err != nil {
			return err
		}
		unable, err := optSection(basic, "unableToGet")
		if err != nil {
			return err
		}
		if unable != nil {
			p.UnableToGetMedicine = isTruthy(unable["medicine"])
		}
	}

	return nil
}

func normalizeIncome(raw any, field string, income *Income) error {
	switch v := raw.(type) {
	case nil:
	case string:
		income.Band = v
	case float64:
		if v < 0 {
			return errors.ValidationField(field, "income must be non-negative")
		}
		income.Amount = v
		income.HasAmount = true
	case int:
		if v < 0 {
			return errors.ValidationField(field, "income must be non-negative")
		}
		income.Amount = float64(v)
		income.HasAmount = true
	default:
		return errors.ValidationField(field, fmt.Sprintf("expected string or number, got %T", raw))
	}
	return nil
}

// --- typed field lookups ---

func optString(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", errors.ValidationField(key, fmt.Sprintf("expected string, got %T", v))
	}
}

func optSection(m map[string]any, key string) (map[string]any, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, errors.ValidationField(key, fmt.Sprintf("expected object, got %T", v))
	}
}

func optStringSlice(m map[string]any, key string) ([]string, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.ValidationField(key,
					fmt.Sprintf("element %d: expected string, got %T", i, item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.ValidationField(key, fmt.Sprintf("expected list, got %T", v))
	}
}

func equalsYes(s string) bool { return s == "Yes" || s == "yes" }
func equalsNo(s string) bool  { return s == "No" || s == "no" }

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return equalsYes(t) || t == "true"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}
