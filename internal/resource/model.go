package resource

import (
	"fmt"
	"strings"

	"github.com/nextstep-care/platform/internal/shared/types"
)

// Category tags a community resource with the kind of assistance it offers.
type Category string

const (
	CategoryHousing        Category = "housing"
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryLegal          Category = "legal"
	CategoryHealthcare     Category = "healthcare"
	CategoryEmployment     Category = "employment"
	CategoryEducation      Category = "education"
	CategoryFinancial      Category = "financial"
	CategoryChildcare      Category = "childcare"
	CategoryImmigration    Category = "immigration"
	CategoryMentalHealth   Category = "mental_health"
	CategoryUtilities      Category = "utilities"
	CategoryClothing       Category = "clothing"
	CategoryOther          Category = "other"
)

// Categories lists the recognized category tags.
var Categories = []Category{
	CategoryHousing, CategoryFood, CategoryTransportation, CategoryLegal,
	CategoryHealthcare, CategoryEmployment, CategoryEducation,
	CategoryFinancial, CategoryChildcare, CategoryImmigration,
	CategoryMentalHealth, CategoryUtilities, CategoryClothing, CategoryOther,
}

// IsKnown reports whether c is one of the recognized category tags. The
// matcher deliberately does not reject unknown categories; the corpus may
// grow categories faster than this list.
func (c Category) IsKnown() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Record represents one community-assistance program in the directory.
// Populated by an offline import; read-only from the running system's
// perspective.
type Record struct {
	ID               types.ID `json:"id,omitempty"`
	ResourceName     string   `json:"resource_name"`
	Organization     string   `json:"organization"`
	Category         Category `json:"category"`
	ProgramType      string   `json:"program_type,omitempty"`
	TargetPopulation string   `json:"target_population,omitempty"`
	Services         string   `json:"services,omitempty"`
	Eligibility      string   `json:"eligibility,omitempty"`
	Location         string   `json:"location,omitempty"`
	Hours            string   `json:"hours,omitempty"`
	Contact          string   `json:"contact,omitempty"`
	KeyFeatures      string   `json:"key_features,omitempty"`
	AgeGroup         string   `json:"age_group,omitempty"`
	ImmigrationStatus string  `json:"immigration_status,omitempty"`
	AcceptsWithoutID string   `json:"accepts_clients_without_id,omitempty"`
	AdvanceBooking   string   `json:"advance_booking_required,omitempty"`
	ADAAccessible    string   `json:"ada_accessible,omitempty"`
}

// Name returns the display name, falling back to the program type for
// records imported before resource_name existed.
func (r Record) Name() string {
	if r.ResourceName != "" {
		return r.ResourceName
	}
	if r.ProgramType != "" {
		return r.ProgramType
	}
	return "Unknown Program"
}

// EnsureID assigns a deterministic identifier derived from organization
// and name when the imported record carries none. Stable across restarts
// so client portfolios keep pointing at the same resource.
func (r *Record) EnsureID() {
	if r.ID.IsZero() {
		r.ID = types.NewDeterministicID("resource", r.Organization+"/"+r.Name())
	}
}

// Document serializes the record into the text indexed for similarity
// search. Field ordering is fixed so index contents are reproducible.
func (r Record) Document() string {
	var b strings.Builder
	write := func(label, value string) {
		if value == "" {
			value = "Unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	write("Resource", r.Name())
	write("Organization", r.Organization)
	write("Category", string(r.Category))
	write("Target Population", r.TargetPopulation)
	write("Services", r.Services)
	write("Eligibility", r.Eligibility)
	write("Location", r.Location)
	write("Hours", r.Hours)
	write("Contact", r.Contact)
	write("Key Features", r.KeyFeatures)
	write("Age Group", r.AgeGroup)
	write("Immigration Status", r.ImmigrationStatus)
	write("Accepts Clients Without ID", r.AcceptsWithoutID)
	write("Advance Booking Required", r.AdvanceBooking)
	write("ADA Accessible", r.ADAAccessible)

	return strings.TrimSpace(b.String())
}
