package oracle

import (
	"context"
	"sync"
)

// Scripted replays a fixed queue of responses. Used by tests and offline
// runs; once the queue empties it returns ErrExhausted unless Loop is set,
// which exercises the same recovery paths a real provider outage would.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int

	// Loop restarts the queue instead of exhausting.
	Loop bool

	// Calls records every request for assertions.
	Calls []ScriptedCall
}

// ScriptedCall captures one Complete invocation.
type ScriptedCall struct {
	SystemPrompt string
	Messages     []ChatMessage
}

// NewScripted builds a scripted completer over the given responses.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Complete pops the next canned response.
func (s *Scripted) Complete(ctx context.Context, systemPrompt string, msgs []ChatMessage, _ float64, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, ScriptedCall{SystemPrompt: systemPrompt, Messages: msgs})
	if s.next >= len(s.responses) {
		if !s.Loop || len(s.responses) == 0 {
			return "", ErrExhausted
		}
		s.next = 0
	}
	resp := s.responses[s.next]
	s.next++
	return resp, nil
}

// Remaining reports how many responses are left before exhaustion.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Loop {
		return len(s.responses)
	}
	n := len(s.responses) - s.next
	if n < 0 {
		return 0
	}
	return n
}
