// Package memory implements the per-agent associative memory stream:
// append-only observations scored at retrieval time by recency, importance,
// and relevance to a query.
package memory

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies what produced a memory.
type Kind string

const (
	KindObservation  Kind = "observation"
	KindConversation Kind = "conversation"
	KindReflection   Kind = "reflection"
	KindPlan         Kind = "plan"
)

// Memory is one stored observation. Embedding is optional; keyword overlap
// carries relevance when either side has no vector.
type Memory struct {
	ID           string
	CreatedStep  int
	LastAccessed int
	Content      string
	Kind         Kind
	Importance   int // 1..10
	Keywords     []string
	Embedding    []float32
	RelatedAgent string
	Channel      string
}

const (
	// decayRate controls how fast recency fades per elapsed step.
	decayRate = 0.995
	// reflectionThreshold is the accumulated-importance trigger for reflection.
	reflectionThreshold = 50
	maxKeywords         = 10
)

// Weights tune the three retrieval score components.
type Weights struct {
	Recency    float64
	Importance float64
	Relevance  float64
}

// DefaultWeights returns the equal weighting used unless a caller tunes it.
func DefaultWeights() Weights {
	return Weights{Recency: 1, Importance: 1, Relevance: 1}
}

// Stream holds one agent's memories in creation order.
type Stream struct {
	OwnerID string
	Weights Weights

	memories        []*Memory
	importanceSince int
}

// NewStream creates an empty stream for one agent.
func NewStream(ownerID string) *Stream {
	return &Stream{OwnerID: ownerID, Weights: DefaultWeights()}
}

// Add appends a new memory and returns it. Importance is clamped to 1..10
// and accumulates toward the reflection trigger.
func (s *Stream) Add(content string, kind Kind, importance, step int) *Memory {
	return s.AddFull(content, kind, importance, step, "", "", nil)
}

// AddFull is Add with the optional association fields.
func (s *Stream) AddFull(content string, kind Kind, importance, step int, relatedAgent, channel string, embedding []float32) *Memory {
	if importance < 1 {
		importance = 1
	} else if importance > 10 {
		importance = 10
	}
	m := &Memory{
		ID:           uuid.NewString()[:8],
		CreatedStep:  step,
		LastAccessed: step,
		Content:      content,
		Kind:         kind,
		Importance:   importance,
		Keywords:     extractKeywords(content),
		Embedding:    embedding,
		RelatedAgent: relatedAgent,
		Channel:      channel,
	}
	s.memories = append(s.memories, m)
	s.importanceSince += importance
	return m
}

// Len reports how many memories the stream holds.
func (s *Stream) Len() int { return len(s.memories) }

// Retrieve returns the n highest-scoring memories for the query and marks
// them accessed at the current step. Ties keep creation order.
func (s *Stream) Retrieve(query string, step, n int) []*Memory {
	return s.RetrieveEmbedded(query, nil, step, n)
}

// RetrieveEmbedded is Retrieve with an optional query vector. When both the
// query and a memory carry embeddings, cosine similarity replaces keyword
// overlap as that memory's relevance component.
func (s *Stream) RetrieveEmbedded(query string, queryEmbedding []float32, step, n int) []*Memory {
	if n <= 0 || len(s.memories) == 0 {
		return nil
	}
	queryKeywords := extractKeywords(query)

	type scored struct {
		m     *Memory
		score float64
	}
	ranked := make([]scored, 0, len(s.memories))
	for _, m := range s.memories {
		ranked = append(ranked, scored{m: m, score: s.score(m, queryKeywords, queryEmbedding, step)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]*Memory, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].m
		out[i].LastAccessed = step
	}
	return out
}

func (s *Stream) score(m *Memory, queryKeywords []string, queryEmbedding []float32, step int) float64 {
	// Age is anchored to creation: a retrieval refreshes LastAccessed but
	// must not make an old memory young again.
	age := step - m.CreatedStep
	if age < 0 {
		age = 0
	}
	recency := math.Pow(decayRate, float64(age))
	importance := float64(m.Importance) / 10.0

	var relevance float64
	if len(queryEmbedding) > 0 && len(m.Embedding) > 0 {
		relevance = cosine(queryEmbedding, m.Embedding)
	} else if len(queryKeywords) > 0 {
		overlap := 0
		for _, k := range queryKeywords {
			for _, mk := range m.Keywords {
				if k == mk {
					overlap++
					break
				}
			}
		}
		relevance = float64(overlap) / float64(len(queryKeywords))
	}

	w := s.Weights
	return w.Recency*recency + w.Importance*importance + w.Relevance*relevance
}

// Recent returns the n most recently created memories, newest last.
func (s *Stream) Recent(n int) []*Memory {
	if n <= 0 || len(s.memories) == 0 {
		return nil
	}
	if n > len(s.memories) {
		n = len(s.memories)
	}
	out := make([]*Memory, n)
	copy(out, s.memories[len(s.memories)-n:])
	return out
}

// ByKind returns all memories of one kind in creation order.
func (s *Stream) ByKind(kind Kind) []*Memory {
	var out []*Memory
	for _, m := range s.memories {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// ByAgent returns all memories associated with another agent.
func (s *Stream) ByAgent(agentID string) []*Memory {
	var out []*Memory
	for _, m := range s.memories {
		if m.RelatedAgent == agentID {
			out = append(out, m)
		}
	}
	return out
}

// ShouldReflect reports whether accumulated importance since the last
// reflection has crossed the trigger threshold.
func (s *Stream) ShouldReflect() bool {
	return s.importanceSince >= reflectionThreshold
}

// ResetReflection zeroes the accumulator after a reflection happened.
func (s *Stream) ResetReflection() {
	s.importanceSince = 0
}

// extractKeywords lowercases the text and keeps words longer than three
// characters, deduplicated, capped at maxKeywords.
func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
