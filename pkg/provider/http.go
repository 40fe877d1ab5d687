package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foreman-dev/foreman/pkg/types"
)

var defaultBaseURLs = map[string]string{
	OpenAI:    "https://api.openai.com/v1",
	XAI:       "https://api.x.ai/v1",
	Anthropic: "https://api.anthropic.com/v1",
}

var defaultModels = map[string]string{
	OpenAI:    "gpt-4o-mini",
	XAI:       "grok-2-latest",
	Anthropic: "claude-3-5-sonnet-latest",
}

const anthropicVersion = "2023-06-01"

// HTTPResponder calls a hosted chat API. openai and xai share the chat
// completions wire format; anthropic uses the messages API.
type HTTPResponder struct {
	client   *http.Client
	provider string
	apiKey   string

	// BaseURL overrides the API root, e.g. for a proxy or a test server
	BaseURL string
}

// NewHTTP creates an HTTP responder for provider
func NewHTTP(client *http.Client, provider, apiKey string) *HTTPResponder {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResponder{
		client:   client,
		provider: provider,
		apiKey:   apiKey,
		BaseURL:  defaultBaseURLs[provider],
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionsResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Respond implements Responder
func (h *HTTPResponder) Respond(ctx context.Context, agent types.AgentDefinition, history []types.Message) (string, error) {
	model := agent.Model
	if model == "" {
		model = defaultModels[h.provider]
	}

	messages := make([]chatMessage, 0, len(history)+1)
	if h.provider == Anthropic {
		for _, m := range history {
			messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
		}
		var resp messagesResponse
		err := h.post(ctx, "/messages", messagesRequest{
			Model:       model,
			System:      agent.SystemPrompt,
			Messages:    messages,
			Temperature: agent.Temperature,
			MaxTokens:   agent.MaxTokens,
		}, &resp)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("%s: empty response", h.provider)
		}
		return sb.String(), nil
	}

	if agent.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: agent.SystemPrompt})
	}
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	var resp completionsResponse
	err := h.post(ctx, "/chat/completions", completionsRequest{
		Model:       model,
		Messages:    messages,
		Temperature: agent.Temperature,
		MaxTokens:   agent.MaxTokens,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", h.provider)
	}
	return resp.Choices[0].Message.Content, nil
}

func (h *HTTPResponder) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", h.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(h.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", h.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.provider == Anthropic {
		req.Header.Set("x-api-key", h.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	} else {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", h.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(h.provider, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", h.provider, err)
	}
	return nil
}

// readAPIError parses the {"error":{"type","message"}} body shared by the
// supported APIs, falling back to the raw body.
func readAPIError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		return fmt.Errorf("%s: HTTP %d: %s: %s", provider, resp.StatusCode, wire.Error.Type, wire.Error.Message)
	}
	return fmt.Errorf("%s: HTTP %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}
