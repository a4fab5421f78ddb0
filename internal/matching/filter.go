package matching

import (
	"strings"

	"github.com/nextstep-care/platform/internal/search"
)

// Keyword fallbacks for candidates indexed without a category tag.
var categoryKeywords = map[string][]string{
	"food":           {"food", "meal", "pantry", "nutrition", "grocery", "hunger", "feeding", "csfp", "snap", "tefap"},
	"housing":        {"housing", "shelter", "bed", "room", "apartment", "home", "residence", "accommodation", "lodging"},
	"transportation": {"transportation", "transport", "ride", "bus", "taxi", "medical transport", "mobility", "travel", "transit"},
}

// filterByCategory drops candidates from other categories. Only food,
// housing, and transportation are filtered; every other category trusts
// the similarity ranking as-is. A tagged candidate must match the tag
// exactly; untagged candidates fall back to keyword scanning so older
// directory entries are not silently excluded.
func filterByCategory(hits []search.Hit, category string) []search.Hit {
	keywords, filtered := categoryKeywords[category]
	if !filtered {
		return hits
	}

	out := make([]search.Hit, 0, len(hits))
	for _, hit := range hits {
		if tag, tagged := hit.Metadata["category"]; tagged {
			if tag == category {
				out = append(out, hit)
			}
			continue
		}
		content := strings.ToLower(hit.Content)
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				out = append(out, hit)
				break
			}
		}
	}
	return out
}
