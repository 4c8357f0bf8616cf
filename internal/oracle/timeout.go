package oracle

import (
	"context"
	"time"
)

// WithTimeout caps every Complete call at d. Zero or negative d returns the
// completer unchanged.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{inner: c, perCall: d}
}

type timeoutCompleter struct {
	inner   Completer
	perCall time.Duration
}

func (t *timeoutCompleter) Complete(ctx context.Context, systemPrompt string, msgs []ChatMessage, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.perCall)
	defer cancel()
	return t.inner.Complete(ctx, systemPrompt, msgs, temperature, maxTokens)
}
