// Package survey runs the needs-assessment loop: mail the form to a
// client, poll the response sheet, fold completed responses back into
// the client record, and analyze raw survey answers on demand.
package survey

import (
	"strings"
	"time"
)

// NeedDetail is one assessed need category from a form response.
type NeedDetail struct {
	Needed   bool   `json:"needed"`
	Priority string `json:"priority"`
	Details  string `json:"details"`
}

// FormResponse is one parsed row from the response sheet.
type FormResponse struct {
	Timestamp       time.Time             `json:"-"`
	RawTimestamp    string                `json:"timestamp"`
	ClientEmail     string                `json:"client_email"`
	ClientName      string                `json:"client_name"`
	PhoneNumber     string                `json:"phone_number"`
	Needs           map[string]NeedDetail `json:"needs_assessment"`
	TopPriority     string                `json:"top_priority"`
	AdditionalNotes string                `json:"additional_notes"`
}

// mapPriority folds form answer phrasing into the three priority levels
// used across the platform.
func mapPriority(text string) string {
	if text == "" {
		return "low"
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "emergency"), strings.Contains(lower, "today"),
		strings.Contains(lower, "urgent"), strings.Contains(lower, "week"):
		return "high"
	case strings.Contains(lower, "soon"), strings.Contains(lower, "month"):
		return "medium"
	}
	return "low"
}

// parseSheetTimestamp accepts the timestamp formats Google Forms writes.
func parseSheetTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{
		"1/2/2006 15:04:05",
		"2006-01-02 15:04:05",
		"1/2/2006 3:04:05 PM",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
