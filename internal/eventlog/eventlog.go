// Package eventlog is the authoritative record of everything that happens in
// a simulation run. Every component reports here; analysis tooling replays
// the JSONL sink to reconstruct the same views.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type tags an event with what kind of thing happened.
type Type string

const (
	// Agent actions
	TypeAgentMove    Type = "agent_move"
	TypeAgentPlan    Type = "agent_plan"
	TypeAgentReflect Type = "agent_reflect"

	// Communication
	TypeMessageSent     Type = "message_sent"
	TypeMessageReceived Type = "message_received"

	// Social engineering
	TypeTacticUsed      Type = "tactic_used"
	TypeGoalPhaseChange Type = "goal_phase_change"
	TypeInfoRevealed    Type = "information_revealed"
	TypeTrustChange     Type = "trust_change"

	// System
	TypeStepStart       Type = "step_start"
	TypeStepEnd         Type = "step_end"
	TypeSimulationStart Type = "simulation_start"
	TypeSimulationEnd   Type = "simulation_end"
	TypeOracleError     Type = "oracle_error"
)

// Event is one immutable log record. Step ordering plus insertion order
// within a step is the causal history of the run.
type Event struct {
	Step      int            `json:"step"`
	Type      Type           `json:"type"`
	Timestamp string         `json:"timestamp"` // simulated wall-clock string
	AgentID   string         `json:"agent_id,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Location  string         `json:"location,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// String renders the event for the live log panel.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Step %d] [%s]", e.Step, strings.ToUpper(string(e.Type)))
	if e.AgentID != "" {
		b.WriteString(" " + e.AgentID)
	}
	if e.TargetID != "" {
		b.WriteString(" -> " + e.TargetID)
	}
	if e.Channel != "" {
		b.WriteString(" via " + e.Channel)
	}
	if e.Location != "" {
		b.WriteString(" @ " + e.Location)
	}
	if e.Content != "" {
		content := e.Content
		if len(content) > 120 {
			content = content[:120] + "..."
		}
		b.WriteString(": " + content)
	}
	return b.String()
}

// DefaultBufferSize bounds the in-memory ring used for live inspection.
const DefaultBufferSize = 500

// Log is the append-only event store for one run. It keeps the full ordered
// history in memory, a bounded ring buffer for live views, a per-step index,
// and appends every record to a run-scoped JSONL file.
type Log struct {
	mu      sync.Mutex
	runID   string
	path    string
	file    *os.File
	logger  *zap.Logger
	bufSize int

	all    []Event
	buffer []Event
	byStep map[int][]Event
}

// New creates a log writing to <dir>/run_<id>.jsonl. A nil zap logger
// disables console echo.
func New(dir string, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: ensure log dir: %w", err)
	}
	runID := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("run_%s.jsonl", runID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open sink: %w", err)
	}
	l := newMemLog(logger)
	l.runID = runID
	l.path = path
	l.file = file
	return l, nil
}

// NewMemory creates a log with no durable sink. Used by tests and by Replay.
func NewMemory(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newMemLog(logger)
}

func newMemLog(logger *zap.Logger) *Log {
	return &Log{
		logger:  logger,
		bufSize: DefaultBufferSize,
		byStep:  make(map[int][]Event),
	}
}

// RunID identifies this run's log files.
func (l *Log) RunID() string { return l.runID }

// Path returns the JSONL sink path, empty for memory-only logs.
func (l *Log) Path() string { return l.path }

// Close releases the sink file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Record appends an event. Historical entries are never rewritten.
func (l *Log) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.all = append(l.all, e)
	l.byStep[e.Step] = append(l.byStep[e.Step], e)

	l.buffer = append(l.buffer, e)
	if len(l.buffer) > l.bufSize {
		l.buffer = l.buffer[len(l.buffer)-l.bufSize:]
	}

	l.logger.Debug("event", zap.String("event", e.String()))

	if l.file != nil {
		data, err := json.Marshal(e)
		if err != nil {
			l.logger.Warn("eventlog: marshal failed", zap.Error(err))
			return
		}
		if _, err := l.file.Write(append(data, '\n')); err != nil {
			l.logger.Warn("eventlog: append failed", zap.Error(err))
		}
	}
}

// Recent returns up to n of the most recent events from the ring buffer.
func (l *Log) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || len(l.buffer) == 0 {
		return nil
	}
	if n > len(l.buffer) {
		n = len(l.buffer)
	}
	out := make([]Event, n)
	copy(out, l.buffer[len(l.buffer)-n:])
	return out
}

// ByStep returns all events recorded during one step.
func (l *Log) ByStep(step int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.byStep[step]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// ByType returns all events with the given type tag, in record order.
func (l *Log) ByType(t Type) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.all {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ByAgent returns all events where the agent is actor or target.
func (l *Log) ByAgent(agentID string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.all {
		if e.AgentID == agentID || e.TargetID == agentID {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the total number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.all)
}

// Totals are the aggregate counters derivable from the event history.
// Replaying an exported log must yield identical totals.
type Totals struct {
	Events       int `json:"events"`
	Messages     int `json:"messages"`
	Reveals      int `json:"reveals"`
	Tactics      int `json:"tactics"`
	TrustChanges int `json:"trust_changes"`
	PhaseChanges int `json:"phase_changes"`
}

// Totals derives the aggregate counters from the full history.
func (l *Log) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Totals{Events: len(l.all)}
	for _, e := range l.all {
		switch e.Type {
		case TypeMessageSent:
			t.Messages++
		case TypeInfoRevealed:
			t.Reveals++
		case TypeTacticUsed:
			t.Tactics++
		case TypeTrustChange:
			t.TrustChanges++
		case TypeGoalPhaseChange:
			t.PhaseChanges++
		}
	}
	return t
}

// Summary counts events per type tag.
func (l *Log) Summary() map[Type]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Type]int)
	for _, e := range l.all {
		out[e.Type]++
	}
	return out
}

// ExportJSON writes the full history as a single JSON array.
func (l *Log) ExportJSON(path string) error {
	l.mu.Lock()
	events := make([]Event, len(l.all))
	copy(events, l.all)
	l.mu.Unlock()

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("eventlog: export: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Replay loads a JSONL stream into a memory-only log so exported history can
// be re-queried with the same analysis operations.
func Replay(r io.Reader) (*Log, error) {
	l := NewMemory(nil)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("eventlog: replay line %d: %w", line, err)
		}
		l.Record(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: replay: %w", err)
	}
	return l, nil
}
