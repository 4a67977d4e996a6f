package llm

import (
	"context"
	"iter"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// Prompt is a system instruction plus the conversation, oldest first, ending with the user turn.
type Prompt struct {
	System   string
	Messages []commonModels.ChatMessage
}

// NewPrompt drops empty turns and any assistant turns before the first user turn,
// which several providers reject.
func NewPrompt(system string, history []commonModels.ChatMessage) Prompt {
	msgs := make([]commonModels.ChatMessage, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if len(msgs) == 0 && m.Role != commonModels.RoleUser {
			continue
		}
		msgs = append(msgs, m)
	}
	return Prompt{System: system, Messages: msgs}
}

// Provider is one completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Streamer is implemented by providers that deliver replies incrementally. Stopping the
// iteration early closes the provider session.
type Streamer interface {
	Stream(ctx context.Context, prompt Prompt) iter.Seq2[string, error]
}
