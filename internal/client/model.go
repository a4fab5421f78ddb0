package client

import (
	"strings"
	"time"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Record is one client profile as stored in the system of record. Two
// shapes of the same entity coexist: the legacy flat shape created by the
// social-worker app, and the nested survey shape submitted by the patient
// intake app (source == "patient_intake_app"). The record keeps the raw
// document intact so neither shape requires migration.
type Record map[string]any

// SourceIntakeApp marks records created from a patient intake survey.
const SourceIntakeApp = "patient_intake_app"

// ResourceStatus tracks a client's progress with an attached resource.
type ResourceStatus string

const (
	StatusPending     ResourceStatus = "pending"
	StatusContacted   ResourceStatus = "contacted"
	StatusInProgress  ResourceStatus = "in_progress"
	StatusCompleted   ResourceStatus = "completed"
	StatusDeclined    ResourceStatus = "declined"
	StatusNotEligible ResourceStatus = "not_eligible"
)

// ValidStatuses lists the accepted resource status transitions.
var ValidStatuses = []ResourceStatus{
	StatusPending, StatusContacted, StatusInProgress,
	StatusCompleted, StatusDeclined, StatusNotEligible,
}

// IsValidStatus reports whether s is a recognized resource status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if string(v) == s {
			return true
		}
	}
	return false
}

// AttachedResource is a resource in a client's portfolio with status tracking.
type AttachedResource struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	Organization string `json:"organization"`
	ProgramType  string `json:"program_type,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Services     string `json:"services,omitempty"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	AddedDate    string `json:"added_date"`
	LastUpdated  string `json:"last_updated"`
	Notes        string `json:"notes,omitempty"`
	AIReasoning  string `json:"ai_reasoning,omitempty"`
}

// ID returns the client's integer identifier, or 0 when unset.
func (r Record) ID() int {
	switch v := r["id"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// encoding/json decodes numbers into float64
		return int(v)
	}
	return 0
}

// SetID assigns the client identifier. Identifiers are immutable once
// assigned; the store enforces that.
func (r Record) SetID(id int) {
	r["id"] = id
}

func (r Record) str(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Email returns the client's email address.
func (r Record) Email() string { return r.str("email") }

// FirstName returns the client's first name.
func (r Record) FirstName() string { return r.str("firstName") }

// LastName returns the client's last name.
func (r Record) LastName() string { return r.str("lastName") }

// FullName returns "First Last" with whatever parts are present.
func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName() + " " + r.LastName())
}

// PhoneNumber returns the client's phone number.
func (r Record) PhoneNumber() string { return r.str("phoneNumber") }

// CreatedAt returns the creation timestamp string.
func (r Record) CreatedAt() string { return r.str("createdAt") }

// IsSurvey reports whether the record carries the nested intake-survey shape.
func (r Record) IsSurvey() bool {
	return r.str("source") == SourceIntakeApp
}

// Resources returns the client's attached resources as raw documents.
func (r Record) Resources() []map[string]any {
	raw, ok := r["resources"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Touch updates the record's lastUpdated timestamp.
func (r Record) Touch(now time.Time) {
	r["lastUpdated"] = now.Format(time.RFC3339)
}

// requiredFields must be present on a legacy-shape record at creation.
var requiredFields = []string{"firstName", "lastName", "dateOfBirth", "phoneNumber"}

// Validate checks required fields and seeds the base structure a new
// record needs (needs-assessment tracking, presenting-concern flags).
func Validate(r Record, now time.Time) error {
	for _, field := range requiredFields {
		if s, _ := r[field].(string); s == "" {
			return errors.ValidationField(field, "required field is missing")
		}
	}

	ensureSection(r, "presentingConcerns")
	ensureSection(r, "consent")
	social := ensureSection(r, "socialHistory")
	ensureSection(social, "incomeSources")
	ensureSection(social, "healthInsurance")

	na := ensureSection(r, "needsAssessment")
	if _, ok := na["status"]; !ok {
		na["status"] = "pending"
	}
	if _, ok := na["currentNeeds"]; !ok {
		na["currentNeeds"] = map[string]any{
			"housing":        map[string]any{"needed": false, "priority": "low", "details": ""},
			"food":           map[string]any{"needed": false, "priority": "low", "details": ""},
			"transportation": map[string]any{"needed": false, "priority": "low", "details": ""},
		}
	}

	coerceBools(r)

	ts := now.Format(time.RFC3339)
	if r.str("createdAt") == "" {
		r["createdAt"] = ts
	}
	r["lastUpdated"] = ts

	return nil
}

// ensureSection makes sure a nested object exists and returns it.
func ensureSection(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	parent[key] = m
	return m
}

// boolFields are intake flags normalized to booleans at creation.
var boolFields = map[string][]string{
	"": {"interpreterNeeded"},
	"presentingConcerns": {
		"housingInstability", "foodInsecurity", "unemployment",
		"domesticViolence", "mentalHealth", "substanceUse", "childWelfare",
		"legalIssues", "immigrationSupport", "medicalNeeds",
		"transportationNeeds", "other",
	},
	"socialHistory.incomeSources":   {"employment", "ssiSsdi", "tanf", "none"},
	"socialHistory.healthInsurance": {"medicaid", "medicare", "private", "none"},
	"consent":                       {"understoodConfidentiality", "consentToServices"},
}

func coerceBools(r Record) {
	for path, fields := range boolFields {
		section := map[string]any(r)
		if path != "" {
			for _, part := range strings.Split(path, ".") {
				section = ensureSection(section, part)
			}
		}
		for _, field := range fields {
			section[field] = truthy(section[field])
		}
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "yes" || t == "Yes"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}
