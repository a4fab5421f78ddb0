// Package assistant hosts the conversational surfaces: follow-up chat
// about recommendations, platform help, and translation. Each is a thin
// prompt over the shared language model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nextstep-care/platform/internal/llm"
)

var errNotConfigured = errors.New("language model not configured")

// ChatMessage is one prior turn in a follow-up conversation.
type ChatMessage struct {
	Type    string `json:"type"` // user or ai
	Content string `json:"content"`
}

// FollowUpRequest carries the conversation state a case worker has on
// screen when asking a follow-up question.
type FollowUpRequest struct {
	Message         string           `json:"message"`
	ClientData      map[string]any   `json:"client_data"`
	ResourceType    string           `json:"resource_type"`
	Recommendations []map[string]any `json:"current_recommendations"`
	History         []ChatMessage    `json:"chat_history"`
}

// Service generates assistant responses.
type Service struct {
	generator llm.TextGenerator
}

func NewService(generator llm.TextGenerator) *Service {
	return &Service{generator: generator}
}

// FollowUp answers a question about the recommendations currently shown
// to the case worker.
func (s *Service) FollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	if s.generator == nil {
		return "", errNotConfigured
	}
	return s.generator.Generate(ctx, followUpPrompt(req))
}

// Help answers a question about using the platform itself.
func (s *Service) Help(ctx context.Context, message string) (string, error) {
	if s.generator == nil {
		return "", errNotConfigured
	}
	return s.generator.Generate(ctx, helpSystemPrompt+"\n\nUser's Question: "+message)
}

// Translate renders text into the target language.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if s.generator == nil {
		return "", errNotConfigured
	}
	prompt := fmt.Sprintf(
		"You are a professional translator. Translate the following text to %s. "+
			"Maintain the original meaning and tone. Only return the translated text, nothing else.\n\n%s",
		targetLanguage, text)
	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// followUpPrompt assembles the on-screen context: client identity, the
// top recommendations, and the tail of the conversation.
func followUpPrompt(req FollowUpRequest) string {
	parts := []string{
		fmt.Sprintf("Client: %s %s",
			stringOr(req.ClientData, "firstName", "Unknown"),
			stringOr(req.ClientData, "lastName", "Unknown")),
		"Resource Type: " + req.ResourceType,
	}

	if len(req.Recommendations) > 0 {
		parts = append(parts, "Current Recommendations:")
		top := req.Recommendations
		if len(top) > 3 {
			top = top[:3]
		}
		for i, rec := range top {
			parts = append(parts, fmt.Sprintf("%d. %s - %s", i+1,
				stringOr(rec, "organization", "Unknown"),
				stringOr(rec, "resource_name", "Unknown")))
		}
	}

	if len(req.History) > 0 {
		parts = append(parts, "Recent conversation:")
		tail := req.History
		if len(tail) > 4 {
			tail = tail[len(tail)-4:]
		}
		for _, msg := range tail {
			switch msg.Type {
			case "user":
				parts = append(parts, "Social Worker: "+msg.Content)
			case "ai":
				parts = append(parts, "AI: "+msg.Content)
			}
		}
	}

	return fmt.Sprintf(
		"You are a helpful AI assistant for social workers. You have access to information about "+
			"housing and food resources, and you're helping a social worker with follow-up questions "+
			"about resource recommendations.\n\n"+
			"Context:\n%s\n\n"+
			"Social Worker's Question: %s\n\n"+
			"Provide a helpful, specific response based on the context. If you need more information "+
			"that isn't available in the context, say so clearly. Keep your response concise but informative.",
		strings.Join(parts, "\n"), req.Message)
}

const helpSystemPrompt = `You are the NextStep Assistant, a helpful chatbot for the NextStep platform - a resource management system for social workers and case managers. Your role is to help users understand and navigate the platform effectively.

PLATFORM FEATURES:
1. Resource Matcher - AI-powered tool that matches clients with appropriate resources based on their needs
2. Resource Center - Browse resources by category (Housing, Food, Transportation)
3. Client Management - Add, view, and manage client profiles
4. Dashboard - Overview of activities and quick actions

AVAILABLE RESOURCE CATEGORIES:
- Housing Resources: Emergency shelters, transitional housing, permanent supportive housing
- Food Resources: Food pantries, meal programs, nutrition assistance, SNAP benefits
- Transportation Services: Free rides, public transit, medical transportation, ADA services

HOW TO USE THE PLATFORM:
1. Add clients with their basic information and needs
2. Use Resource Matcher to find appropriate resources for specific clients
3. Browse resources by category in the Resource Center
4. Track client progress and resource assignments

COMMON TASKS:
- Adding a new client: Go to "Add Client" and fill in the form
- Finding resources: Use "Resource Matcher" for AI recommendations or "Resource Center" to browse
- Viewing client details: Go to "All Clients" to see client profiles and assigned resources

Answer questions clearly and concisely. If you don't know something specific about the platform, acknowledge it and suggest alternative ways to get help. Be friendly and professional.`

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
