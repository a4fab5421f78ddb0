package matching

import (
	"fmt"
	"strings"
	"time"
)

// Need phrases appended per category so the retrieval query carries the
// category's vocabulary even when the client record is sparse.
var categoryNeedPhrases = map[string]string{
	"food":           "Looking for food assistance, meals, pantries, or nutrition programs.",
	"housing":        "Looking for housing assistance, shelter, or accommodation.",
	"transportation": "Looking for transportation assistance, rides, or mobility services.",
}

// BuildQuery renders a client record into the retrieval query. The same
// record, category, and clock always produce the same string.
func BuildQuery(clientData map[string]any, category string, now time.Time) string {
	parts := []string{fmt.Sprintf("Find %s resources for a client.", category)}

	if dob, ok := clientData["dateOfBirth"].(string); ok && dob != "" {
		if age := ageAt(dob, now); age > 0 {
			parts = append(parts, fmt.Sprintf("The client's age is %d.", age))
		}
	}
	if v := stringField(clientData, "gender"); v != "" {
		parts = append(parts, fmt.Sprintf("Gender: %s.", v))
	}
	if v := stringField(clientData, "family_status"); v != "" {
		parts = append(parts, fmt.Sprintf("Family status: %s.", v))
	}
	if v := stringField(clientData, "employment_status"); v != "" {
		parts = append(parts, fmt.Sprintf("Employment: %s.", v))
	}
	if v, ok := clientData["income_level"]; ok && v != nil && v != "" {
		parts = append(parts, fmt.Sprintf("Income level: $%v.", v))
	}
	if truthy(clientData["is_veteran"]) {
		parts = append(parts, "Veteran status: Yes.")
	}
	if truthy(clientData["has_disability"]) {
		parts = append(parts, "Has disability: Yes.")
	}

	if phrase, ok := categoryNeedPhrases[category]; ok {
		parts = append(parts, phrase)
	}

	if v := stringField(clientData, "notes"); v != "" {
		parts = append(parts, "Client background and needs: "+v)
	}
	if needs := needsField(clientData); len(needs) > 0 {
		parts = append(parts, "Specific needs: "+strings.Join(needs, ", "))
	}

	return strings.Join(parts, " ")
}

// ageAt computes whole years from a YYYY-MM-DD birth date. A malformed
// date contributes nothing to the query.
func ageAt(dob string, now time.Time) int {
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return 0
	}
	return int(now.Sub(birth).Hours() / 24 / 365)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func needsField(m map[string]any) []string {
	switch v := m["needs"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "Yes" || t == "yes"
	case float64:
		return t != 0
	}
	return false
}
