package survey

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type cannedGenerator struct {
	text string
	err  error
}

func (c *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return c.text, c.err
}

func TestAnalyzeParsesModelJSON(t *testing.T) {
	gen := &cannedGenerator{text: "```json\n{\"riskLevel\": \"HIGH\", \"priorityScore\": 72}\n```"}
	analyzer := NewAnalyzer(gen)

	analysis := analyzer.Analyze(context.Background(), map[string]any{}, map[string]any{})
	if analysis["riskLevel"] != "HIGH" {
		t.Errorf("riskLevel = %v", analysis["riskLevel"])
	}
}

func TestAnalyzeFallsBackOnModelFailure(t *testing.T) {
	gen := &cannedGenerator{err: fmt.Errorf("quota exceeded")}
	analyzer := NewAnalyzer(gen)

	analysis := analyzer.Analyze(context.Background(), map[string]any{
		"housingStatus": "currently homeless",
	}, nil)

	if analysis["riskLevel"] == nil {
		t.Fatal("fallback analysis missing risk level")
	}
	if analysis["housingStability"] != "UNSTABLE" {
		t.Errorf("housingStability = %v", analysis["housingStability"])
	}
}

func TestAnalyzeFallsBackOnBadJSON(t *testing.T) {
	gen := &cannedGenerator{text: "I cannot help with that."}
	analyzer := NewAnalyzer(gen)

	analysis := analyzer.Analyze(context.Background(), map[string]any{}, nil)
	if analysis["summary"] == nil {
		t.Error("fallback analysis missing summary")
	}
}

func TestFallbackAnalysisCriticalProfile(t *testing.T) {
	analysis := fallbackAnalysis(map[string]any{
		"housingStatus":  "homeless, staying in shelter",
		"combinedIncome": "None",
		"unableToGet": map[string]any{
			"food":     true,
			"medicine": true,
		},
	})

	// 40 housing + 30 urgent needs + 25 income = 95.
	if analysis["riskLevel"] != "CRITICAL" {
		t.Errorf("riskLevel = %v, want CRITICAL", analysis["riskLevel"])
	}
	if analysis["priorityScore"] != 95 {
		t.Errorf("priorityScore = %v, want 95", analysis["priorityScore"])
	}
	if analysis["financialSituation"] != "CRITICAL" {
		t.Errorf("financialSituation = %v", analysis["financialSituation"])
	}
	if analysis["healthConcerns"] != "SIGNIFICANT" {
		t.Errorf("healthConcerns = %v", analysis["healthConcerns"])
	}

	urgent := analysis["urgentNeeds"].([]string)
	if len(urgent) != 2 {
		t.Errorf("urgentNeeds = %v", urgent)
	}
	summary := analysis["summary"].(string)
	if !strings.Contains(summary, "housing instability") {
		t.Errorf("summary = %q", summary)
	}
}

func TestFallbackAnalysisStableProfile(t *testing.T) {
	analysis := fallbackAnalysis(map[string]any{
		"housingStatus":  "own my home",
		"combinedIncome": "$4,000 per month",
	})

	if analysis["riskLevel"] != "LOW" {
		t.Errorf("riskLevel = %v, want LOW", analysis["riskLevel"])
	}
	if analysis["priorityScore"] != 0 {
		t.Errorf("priorityScore = %v, want 0", analysis["priorityScore"])
	}
	if got := analysis["urgentNeeds"].([]string); len(got) != 0 {
		t.Errorf("urgentNeeds = %v, want empty", got)
	}
}

func TestMapPriority(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Emergency - I need help today", "high"},
		{"Urgent - within a week", "high"},
		{"Soon - within a month", "medium"},
		{"Eventually", "low"},
		{"", "low"},
	}
	for _, tt := range tests {
		if got := mapPriority(tt.text); got != tt.want {
			t.Errorf("mapPriority(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseSheetTimestamp(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"1/15/2026 10:30:00", true},
		{"2026-01-15 10:30:00", true},
		{"1/15/2026 10:30:00 AM", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := parseSheetTimestamp(tt.input); ok != tt.ok {
			t.Errorf("parseSheetTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}
