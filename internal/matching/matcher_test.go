package matching

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nextstep-care/platform/internal/resource"
	"github.com/nextstep-care/platform/internal/search"
	"github.com/nextstep-care/platform/internal/shared/config"
	"github.com/nextstep-care/platform/internal/shared/types"
)

type fakeIndex struct {
	hits     []search.Hit
	err      error
	gotQuery string
	gotK     int
}

func (f *fakeIndex) Query(ctx context.Context, text string, k int) ([]search.Hit, error) {
	f.gotQuery = text
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.hits) {
		k = len(f.hits)
	}
	return f.hits[:k], nil
}

func (f *fakeIndex) Size() int { return len(f.hits) }

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

func testConfig() config.MatchingConfig {
	return config.MatchingConfig{RetrievalWidth: 25, ShortlistWidth: 5}
}

func makeResources(category string, n int) []resource.Record {
	recs := make([]resource.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, resource.Record{
			ID:           types.ID(fmt.Sprintf("res-%s-%d", category, i)),
			ResourceName: fmt.Sprintf("%s program %d", category, i),
			Organization: "Community Org",
			Category:     resource.Category(category),
		})
	}
	return recs
}

func makeHits(recs []resource.Record) []search.Hit {
	hits := make([]search.Hit, 0, len(recs))
	for _, rec := range recs {
		hits = append(hits, search.Hit{
			ID:       rec.ID.String(),
			Content:  rec.Document(),
			Metadata: map[string]string{"category": string(rec.Category)},
		})
	}
	return hits
}

func TestBuildQueryNeedPhrases(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		category string
		phrase   string
	}{
		{"food", "Looking for food assistance, meals, pantries, or nutrition programs."},
		{"housing", "Looking for housing assistance, shelter, or accommodation."},
		{"transportation", "Looking for transportation assistance, rides, or mobility services."},
	}
	for _, tt := range tests {
		query := BuildQuery(map[string]any{}, tt.category, now)
		if !strings.Contains(query, tt.phrase) {
			t.Errorf("query for %s missing need phrase: %q", tt.category, query)
		}
	}

	other := BuildQuery(map[string]any{}, "legal", now)
	if strings.Contains(other, "Looking for") {
		t.Errorf("unexpected need phrase for legal: %q", other)
	}
}

func TestBuildQueryFullProfile(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	clientData := map[string]any{
		"dateOfBirth":       "1986-06-15",
		"gender":            "female",
		"family_status":     "single parent",
		"employment_status": "part-time",
		"income_level":      "12,000",
		"is_veteran":        true,
		"has_disability":    false,
		"notes":             "Recently relocated.",
		"needs":             []any{"food", "childcare"},
	}

	query := BuildQuery(clientData, "food", now)

	for _, want := range []string{
		"Find food resources for a client.",
		"The client's age is 40.",
		"Gender: female.",
		"Family status: single parent.",
		"Employment: part-time.",
		"Income level: $12,000.",
		"Veteran status: Yes.",
		"Client background and needs: Recently relocated.",
		"Specific needs: food, childcare",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
	if strings.Contains(query, "Has disability") {
		t.Errorf("false disability flag should not appear: %q", query)
	}
}

func TestBuildQueryDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clientData := map[string]any{"gender": "male", "needs": []any{"housing"}}
	first := BuildQuery(clientData, "housing", now)
	second := BuildQuery(clientData, "housing", now)
	if first != second {
		t.Errorf("queries differ:\n%s\n%s", first, second)
	}
}

func TestBuildQueryIgnoresMalformedBirthDate(t *testing.T) {
	query := BuildQuery(map[string]any{"dateOfBirth": "not-a-date"}, "food", time.Now())
	if strings.Contains(query, "age") {
		t.Errorf("malformed date produced an age: %q", query)
	}
}

func TestMatchTruncatesShortlist(t *testing.T) {
	recs := makeResources("housing", 10)
	index := &fakeIndex{hits: makeHits(recs)}
	m := NewMatcher(index, &fakeGenerator{text: "These fit."}, recs, testConfig())

	result := m.Match(context.Background(), map[string]any{"gender": "male"}, "housing")

	if len(result.Shortlist) != 5 {
		t.Errorf("shortlist size = %d, want 5", len(result.Shortlist))
	}
	if index.gotK != 25 {
		t.Errorf("retrieval width = %d, want 25", index.gotK)
	}
	if result.Degraded {
		t.Error("healthy run should not be degraded")
	}
	if result.Justification != "These fit." {
		t.Errorf("justification = %q", result.Justification)
	}
}

func TestMatchFiltersForeignCategories(t *testing.T) {
	housing := makeResources("housing", 2)
	food := makeResources("food", 3)
	all := append(append([]resource.Record{}, housing...), food...)

	hits := append(makeHits(food[:1]), makeHits(housing)...)
	hits = append(hits, makeHits(food[1:])...)

	m := NewMatcher(&fakeIndex{hits: hits}, &fakeGenerator{text: "ok"}, all, testConfig())
	result := m.Match(context.Background(), map[string]any{}, "housing")

	if len(result.Shortlist) != 2 {
		t.Fatalf("shortlist = %d records, want 2", len(result.Shortlist))
	}
	for _, rec := range result.Shortlist {
		if rec.Category != "housing" {
			t.Errorf("foreign category in shortlist: %s", rec.Category)
		}
	}
}

func TestMatchKeywordFallbackForUntaggedHits(t *testing.T) {
	rec := resource.Record{
		ID:           types.ID("res-legacy"),
		ResourceName: "Community Pantry",
		Services:     "weekly grocery boxes and hot meals",
	}
	hit := search.Hit{ID: rec.ID.String(), Content: rec.Document(), Metadata: map[string]string{}}

	m := NewMatcher(&fakeIndex{hits: []search.Hit{hit}}, &fakeGenerator{text: "ok"}, []resource.Record{rec}, testConfig())
	result := m.Match(context.Background(), map[string]any{}, "food")

	if len(result.Shortlist) != 1 {
		t.Errorf("untagged pantry resource should pass the food filter, got %d", len(result.Shortlist))
	}
}

func TestMatchBypassesFilterForOtherCategories(t *testing.T) {
	recs := makeResources("housing", 3)
	m := NewMatcher(&fakeIndex{hits: makeHits(recs)}, &fakeGenerator{text: "ok"}, recs, testConfig())

	result := m.Match(context.Background(), map[string]any{}, "legal")
	if len(result.Shortlist) != 3 {
		t.Errorf("legal category should bypass filtering, got %d of 3", len(result.Shortlist))
	}
}

func TestMatchSearchFailureDegrades(t *testing.T) {
	recs := makeResources("housing", 3)
	index := &fakeIndex{err: fmt.Errorf("connection reset")}
	m := NewMatcher(index, &fakeGenerator{text: "ok"}, recs, testConfig())

	result := m.Match(context.Background(), map[string]any{}, "housing")

	if len(result.Shortlist) != 0 {
		t.Errorf("degraded run should return empty shortlist, got %d", len(result.Shortlist))
	}
	if result.Justification == "" {
		t.Error("degraded run must still explain itself")
	}
	if !result.Degraded {
		t.Error("expected degraded flag")
	}
}

func TestMatchNilIndexDegrades(t *testing.T) {
	m := NewMatcher(nil, &fakeGenerator{text: "ok"}, nil, testConfig())
	result := m.Match(context.Background(), map[string]any{}, "food")

	if result.Justification != unavailableMessage {
		t.Errorf("justification = %q", result.Justification)
	}
	if result.Shortlist == nil || len(result.Shortlist) != 0 {
		t.Errorf("shortlist = %v, want empty non-nil", result.Shortlist)
	}
}

func TestMatchLLMFailureKeepsShortlist(t *testing.T) {
	recs := makeResources("food", 4)
	m := NewMatcher(&fakeIndex{hits: makeHits(recs)}, &fakeGenerator{err: fmt.Errorf("quota exceeded")}, recs, testConfig())

	result := m.Match(context.Background(), map[string]any{}, "food")

	if len(result.Shortlist) != 4 {
		t.Errorf("shortlist = %d, want 4", len(result.Shortlist))
	}
	if result.Justification == "" {
		t.Error("fallback justification must not be empty")
	}
	if !result.Degraded {
		t.Error("expected degraded flag after generator failure")
	}
}

func TestMatchEmptyShortlistJustification(t *testing.T) {
	m := NewMatcher(&fakeIndex{}, &fakeGenerator{text: "ok"}, nil, testConfig())
	result := m.Match(context.Background(), map[string]any{}, "food")

	want := "No matching food resources were found for this client."
	if result.Justification != want {
		t.Errorf("justification = %q, want %q", result.Justification, want)
	}
}
