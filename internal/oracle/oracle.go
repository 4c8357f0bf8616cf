// Package oracle is the text-completion boundary. Agents ask it for free-text
// decisions and replies; everything behind the Completer interface is
// swappable, including a fully offline scripted implementation.
package oracle

import (
	"context"
	"errors"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of conversational context sent to the oracle.
type ChatMessage struct {
	Role    string
	Content string
}

// Completer produces a free-text completion for a system prompt plus
// conversation. Implementations must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, msgs []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Embedder turns text into a vector for similarity-based memory retrieval.
// Optional: the simulation runs fine without one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrExhausted is returned by the scripted completer when it runs out of
// canned responses.
var ErrExhausted = errors.New("scripted oracle exhausted")
