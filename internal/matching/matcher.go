package matching

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nextstep-care/platform/internal/llm"
	"github.com/nextstep-care/platform/internal/resource"
	"github.com/nextstep-care/platform/internal/search"
	"github.com/nextstep-care/platform/internal/shared/config"
	"github.com/nextstep-care/platform/internal/shared/metrics"
)

const unavailableMessage = "Error: The resource matching system is not available."

// Result is one matching run: a ranked shortlist, the sentence
// explaining it, and the query that retrieved it.
type Result struct {
	Justification string            `json:"recommendation_reason"`
	Shortlist     []resource.Record `json:"retrieved_recommendations"`
	Query         string            `json:"client_question"`
	Degraded      bool              `json:"degraded,omitempty"`
}

// Matcher runs the retrieval pipeline: build query, over-fetch from the
// index, filter by category, truncate, then ask the language model for
// a one-sentence justification. Collaborator failures degrade the
// result; Match never returns an error.
type Matcher struct {
	index     search.Index
	generator llm.TextGenerator
	byID      map[string]resource.Record

	retrievalWidth int
	shortlistWidth int
	now            func() time.Time
}

// NewMatcher wires the pipeline over an already-built index.
func NewMatcher(index search.Index, generator llm.TextGenerator, resources []resource.Record, cfg config.MatchingConfig) *Matcher {
	byID := make(map[string]resource.Record, len(resources))
	for _, rec := range resources {
		byID[rec.ID.String()] = rec
	}
	return &Matcher{
		index:          index,
		generator:      generator,
		byID:           byID,
		retrievalWidth: cfg.RetrievalWidth,
		shortlistWidth: cfg.ShortlistWidth,
		now:            time.Now,
	}
}

// Documents renders the resource directory into indexable documents.
// The category tag rides along as metadata so the filter can trust it.
func Documents(resources []resource.Record) []search.Document {
	docs := make([]search.Document, 0, len(resources))
	for _, rec := range resources {
		docs = append(docs, search.Document{
			ID:      rec.ID.String(),
			Content: rec.Document(),
			Metadata: map[string]string{
				"category":          string(rec.Category),
				"resource_name":     rec.Name(),
				"organization":      rec.Organization,
				"contact":           rec.Contact,
				"target_population": rec.TargetPopulation,
			},
		})
	}
	return docs
}

// Match produces recommendations for one client and category.
func (m *Matcher) Match(ctx context.Context, clientData map[string]any, category string) Result {
	start := m.now()

	if m.index == nil {
		metrics.RecordMatch(category, true, m.now().Sub(start))
		return Result{Justification: unavailableMessage, Shortlist: []resource.Record{}, Degraded: true}
	}

	query := BuildQuery(clientData, category, m.now())

	hits, err := m.index.Query(ctx, query, m.retrievalWidth)
	if err != nil {
		log.Printf("matching: retrieval failed for category %s: %v", category, err)
		metrics.RecordMatch(category, true, m.now().Sub(start))
		return Result{
			Justification: unavailableMessage,
			Shortlist:     []resource.Record{},
			Query:         query,
			Degraded:      true,
		}
	}

	hits = filterByCategory(hits, category)
	if len(hits) > m.shortlistWidth {
		hits = hits[:m.shortlistWidth]
	}

	shortlist := make([]resource.Record, 0, len(hits))
	for _, hit := range hits {
		if rec, ok := m.byID[hit.ID]; ok {
			shortlist = append(shortlist, rec)
		}
	}

	justification, degraded := m.justify(ctx, query, shortlist, category)

	metrics.RecordMatch(category, degraded, m.now().Sub(start))
	return Result{
		Justification: justification,
		Shortlist:     shortlist,
		Query:         query,
		Degraded:      degraded,
	}
}

// justify asks the model for a single case-manager-facing sentence.
// When the model is missing or fails, a deterministic sentence stands
// in so the shortlist still ships.
func (m *Matcher) justify(ctx context.Context, query string, shortlist []resource.Record, category string) (string, bool) {
	if len(shortlist) == 0 {
		return fmt.Sprintf("No matching %s resources were found for this client.", category), false
	}
	if m.generator == nil {
		return fallbackJustification(shortlist, category), true
	}

	text, err := m.generator.Generate(ctx, justificationPrompt(query, shortlist, category))
	if err != nil {
		log.Printf("matching: justification failed for category %s: %v", category, err)
		return fallbackJustification(shortlist, category), true
	}
	return strings.TrimSpace(text), false
}

func fallbackJustification(shortlist []resource.Record, category string) string {
	return fmt.Sprintf("Recommended %d %s resources based on the client's profile.", len(shortlist), category)
}

var categoryDescriptions = map[string]string{
	"food":           "food assistance, meals, pantries, or nutrition programs",
	"housing":        "housing assistance, shelter, or accommodation services",
	"transportation": "transportation assistance, rides, or mobility services",
}

func justificationPrompt(query string, shortlist []resource.Record, category string) string {
	blocks := make([]string, 0, len(shortlist))
	for _, rec := range shortlist {
		blocks = append(blocks, fmt.Sprintf(
			"Resource: %s\nOrganization: %s\nContact: %s\nTarget Population: %s\nDetails: %s",
			rec.Name(), rec.Organization, rec.Contact, rec.TargetPopulation, rec.Document()))
	}

	description, ok := categoryDescriptions[category]
	if !ok {
		description = category + " services"
	}

	return fmt.Sprintf(
		"You are a helpful case manager assistant. Based on the client's need for %s "+
			"and the provided resources, write a single, personalized sentence explaining why these resources "+
			"are being recommended for this client. Address the social worker/case manager, not the client directly. "+
			"Focus on how these resources match the client's specific situation and needs.\n\n"+
			"Client's Need: %s\n\n"+
			"Available %s Resources:\n%s\n\n"+
			"Recommendation for Social Worker:",
		description, query, category, strings.Join(blocks, "\n\n---\n\n"))
}
