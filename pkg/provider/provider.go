// Package provider supplies the chat responders agents talk through.
//
// A Responder turns an agent definition and a conversation history into a
// reply. Simulated answers from canned keyword replies; HTTP calls a hosted
// chat API. Router picks one per agent based on configuration and whether an
// API key is present for the agent's provider.
package provider

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/foreman-dev/foreman/pkg/types"
)

// Known provider names
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	XAI       = "xai"
	Simulated = "simulated"
)

//go:generate mockgen -destination=../mocks/mock_provider.go -package=mocks github.com/foreman-dev/foreman/pkg/provider Responder

// Responder produces an agent's reply to a conversation
type Responder interface {
	Respond(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error)
}

// ResponderFunc adapts a function to Responder
type ResponderFunc func(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error)

// Respond calls f
func (f ResponderFunc) Respond(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error) {
	return f(ctx, agent, history)
}

// IsKnown reports whether name is a provider agents may be registered with
func IsKnown(name string) bool {
	switch name {
	case OpenAI, Anthropic, XAI, Simulated:
		return true
	}
	return false
}

// Names lists the known providers
func Names() []string {
	return []string{OpenAI, Anthropic, XAI, Simulated}
}

// KeyLookup resolves an environment variable
type KeyLookup func(key string) string

// APIKey returns the configured key for provider, preferring FOREMAN_<P>_API_KEY
// over <P>_API_KEY. Placeholder values containing "your-" count as absent.
func APIKey(lookup KeyLookup, provider string) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	upper := strings.ToUpper(provider)
	for _, name := range []string{"FOREMAN_" + upper + "_API_KEY", upper + "_API_KEY"} {
		key := strings.TrimSpace(lookup(name))
		if key != "" && !strings.Contains(key, "your-") {
			return key
		}
	}
	return ""
}

// Router dispatches each agent to the HTTP client for its provider when one
// is available, and to the simulated responder otherwise
type Router struct {
	simulated Responder
	clients   map[string]Responder
}

// NewRouter builds a Router. With kind simulated every agent is answered by
// the simulated responder; with kind http an HTTP client is created for each
// provider that has an API key.
func NewRouter(kind types.ProviderKind, timeout time.Duration, lookup KeyLookup) *Router {
	r := &Router{
		simulated: NewSimulated(),
		clients:   make(map[string]Responder),
	}
	if kind != types.ProviderKindHTTP {
		return r
	}

	httpClient := &http.Client{Timeout: timeout}
	for _, name := range []string{OpenAI, Anthropic, XAI} {
		key := APIKey(lookup, name)
		if key == "" {
			continue
		}
		r.clients[name] = NewHTTP(httpClient, name, key)
	}
	return r
}

// Respond implements Responder
func (r *Router) Respond(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error) {
	if client, ok := r.clients[agent.Provider]; ok {
		return client.Respond(ctx, agent, history)
	}
	return r.simulated.Respond(ctx, agent, history)
}

// Live reports whether provider is served by a real HTTP client
func (r *Router) Live(provider string) bool {
	_, ok := r.clients[provider]
	return ok
}
