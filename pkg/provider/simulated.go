package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foreman-dev/foreman/pkg/types"
)

// SimulatedResponder answers from keyword rules and never calls out
type SimulatedResponder struct{}

// NewSimulated returns the simulated responder
func NewSimulated() *SimulatedResponder {
	return &SimulatedResponder{}
}

// Respond implements Responder
func (s *SimulatedResponder) Respond(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", errors.New("empty conversation")
	}

	last := history[len(history)-1].Content
	lower := strings.ToLower(last)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return fmt.Sprintf("Hello! I'm %s, your AI assistant. How can I help you today?", agent.Name), nil
	case strings.Contains(lower, "integrate") || strings.Contains(lower, "connect"):
		return "I can help you integrate with various services. I have access to VS Code, Google Drive, Google Docs, Vercel, Resend, Supabase, and Lovable. Which integration would you like to set up?", nil
	case strings.Contains(lower, "status") || strings.Contains(lower, "health"):
		return "All systems are operational! Foreman is running smoothly with all integrations ready.", nil
	}

	return fmt.Sprintf("I understand you're asking about: %q. As %s, I'm here to assist you with AI-powered tasks and integrations. How can I help you further?", last, agent.Name), nil
}
