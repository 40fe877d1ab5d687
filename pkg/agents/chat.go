package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Chat sends message to the agent. An empty conversationID starts a new
// conversation. The responder runs without the registry lock held; nothing
// is recorded unless it succeeds.
func (r *Registry) Chat(ctx context.Context, agentID, message, conversationID string) (types.ChatResult, error) {
	if message == "" {
		return types.ChatResult{}, types.NewValidation("message", "message is required")
	}

	r.mu.RLock()
	a, ok := r.agents[agentID]
	if !ok {
		r.mu.RUnlock()
		return types.ChatResult{}, types.NewNotFound("agent", agentID)
	}
	agent := copyAgent(a)

	var history []types.Message
	if conversationID != "" {
		conv, ok := r.conversations[conversationID]
		if !ok {
			r.mu.RUnlock()
			return types.ChatResult{}, types.NewNotFound("conversation", conversationID)
		}
		if conv.AgentID != agentID {
			r.mu.RUnlock()
			return types.ChatResult{}, types.NewValidation("conversationId",
				fmt.Sprintf("conversation %s belongs to agent %s", conversationID, conv.AgentID))
		}
		history = append(history, conv.Messages...)
	}
	r.mu.RUnlock()

	userMsg := types.Message{Role: "user", Content: message, Timestamp: r.clock.Now()}
	history = append(history, userMsg)

	reply, err := r.responder.Respond(ctx, agent, history)
	if err != nil {
		r.log.Warn("responder failed",
			logger.WithField("agent", agentID),
			logger.WithField("provider", agent.Provider),
			logger.WithError(err))
		return types.ChatResult{}, &types.ProviderError{Provider: agent.Provider, Err: err}
	}

	now := r.clock.Now()
	assistantMsg := types.Message{Role: "assistant", Content: reply, Timestamp: now}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.agents[agentID]
	if !ok {
		return types.ChatResult{}, types.NewNotFound("agent", agentID)
	}

	if conversationID == "" {
		conversationID = uuid.New().String()
		r.conversations[conversationID] = &types.Conversation{
			ID:        conversationID,
			AgentID:   agentID,
			CreatedAt: userMsg.Timestamp,
		}
		r.convOrder = append(r.convOrder, conversationID)
	}
	conv, ok := r.conversations[conversationID]
	if !ok {
		return types.ChatResult{}, types.NewNotFound("conversation", conversationID)
	}
	conv.Messages = append(conv.Messages, userMsg, assistantMsg)

	stored.ConversationCount++
	used := now
	stored.LastUsed = &used

	r.saveConversationLocked(conv)
	r.saveAgentLocked(stored)

	return types.ChatResult{
		ConversationID: conversationID,
		AgentID:        agentID,
		Message:        reply,
		Timestamp:      now,
	}, nil
}

// Conversation returns a copy of the conversation or a NotFoundError
func (r *Registry) Conversation(id string) (types.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return types.Conversation{}, types.NewNotFound("conversation", id)
	}
	return copyConversation(c), nil
}

// Conversations returns every conversation in creation order
func (r *Registry) Conversations() []types.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Conversation, 0, len(r.convOrder))
	for _, id := range r.convOrder {
		out = append(out, copyConversation(r.conversations[id]))
	}
	return out
}

// ConversationCount returns the number of conversations
func (r *Registry) ConversationCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

func copyConversation(c *types.Conversation) types.Conversation {
	out := *c
	out.Messages = append([]types.Message(nil), c.Messages...)
	return out
}
