package assistant

import (
	"context"
	"strings"
	"testing"
)

type promptRecorder struct {
	prompt string
	reply  string
}

func (p *promptRecorder) Generate(ctx context.Context, prompt string) (string, error) {
	p.prompt = prompt
	return p.reply, nil
}

func TestFollowUpPromptIncludesContext(t *testing.T) {
	rec := &promptRecorder{reply: "Try the shelter first."}
	svc := NewService(rec)

	req := FollowUpRequest{
		Message:      "Which one accepts walk-ins?",
		ResourceType: "housing",
		ClientData:   map[string]any{"firstName": "Maria", "lastName": "Lopez"},
		Recommendations: []map[string]any{
			{"organization": "Org A", "resource_name": "Shelter A"},
			{"organization": "Org B", "resource_name": "Shelter B"},
			{"organization": "Org C", "resource_name": "Shelter C"},
			{"organization": "Org D", "resource_name": "Shelter D"},
		},
		History: []ChatMessage{
			{Type: "user", Content: "first question"},
			{Type: "ai", Content: "first answer"},
			{Type: "user", Content: "second question"},
			{Type: "ai", Content: "second answer"},
			{Type: "user", Content: "third question"},
		},
	}

	out, err := svc.FollowUp(context.Background(), req)
	if err != nil {
		t.Fatalf("FollowUp failed: %v", err)
	}
	if out != "Try the shelter first." {
		t.Errorf("response = %q", out)
	}

	for _, want := range []string{
		"Client: Maria Lopez",
		"Resource Type: housing",
		"1. Org A - Shelter A",
		"3. Org C - Shelter C",
		"Which one accepts walk-ins?",
	} {
		if !strings.Contains(rec.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// Only the top three recommendations make the prompt.
	if strings.Contains(rec.prompt, "Shelter D") {
		t.Error("prompt should cap recommendations at three")
	}
	// Only the last four history turns make the prompt.
	if strings.Contains(rec.prompt, "first question") {
		t.Error("prompt should cap history at four messages")
	}
	if !strings.Contains(rec.prompt, "Social Worker: second question") {
		t.Error("prompt missing recent history turn")
	}
}

func TestFollowUpUnknownClient(t *testing.T) {
	rec := &promptRecorder{reply: "ok"}
	svc := NewService(rec)

	_, err := svc.FollowUp(context.Background(), FollowUpRequest{
		Message:      "hello",
		ResourceType: "food",
	})
	if err != nil {
		t.Fatalf("FollowUp failed: %v", err)
	}
	if !strings.Contains(rec.prompt, "Client: Unknown Unknown") {
		t.Errorf("prompt = %q, want unknown client placeholder", rec.prompt)
	}
}

func TestTranslatePrompt(t *testing.T) {
	rec := &promptRecorder{reply: "  Hola  "}
	svc := NewService(rec)

	out, err := svc.Translate(context.Background(), "Hello", "Spanish")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "Hola" {
		t.Errorf("translated = %q, want trimmed output", out)
	}
	if !strings.Contains(rec.prompt, "Translate the following text to Spanish") {
		t.Errorf("prompt = %q", rec.prompt)
	}
	if !strings.Contains(rec.prompt, "Hello") {
		t.Error("prompt missing source text")
	}
}

func TestHelpPromptCarriesQuestion(t *testing.T) {
	rec := &promptRecorder{reply: "Use the Resource Matcher."}
	svc := NewService(rec)

	if _, err := svc.Help(context.Background(), "How do I match a client?"); err != nil {
		t.Fatalf("Help failed: %v", err)
	}
	if !strings.Contains(rec.prompt, "How do I match a client?") {
		t.Error("prompt missing user question")
	}
	if !strings.Contains(rec.prompt, "NextStep Assistant") {
		t.Error("prompt missing system preamble")
	}
}
