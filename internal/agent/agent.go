// Package agent implements the simulation's actors: a shared cognitive base
// (perceive, retrieve, plan, execute, reflect), benign agents that hold
// secrets behind a trust gate, and deviant agents that run goal-driven
// social engineering against them.
package agent

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"arcane/internal/channel"
	"arcane/internal/config"
	"arcane/internal/eventlog"
	"arcane/internal/memory"
	"arcane/internal/oracle"
)

// Traits is a big-five profile. Missing traits read as the 0.5 midpoint.
type Traits map[string]float64

// Get returns the trait value, 0.5 when unset.
func (t Traits) Get(name string) float64 {
	if v, ok := t[name]; ok {
		return v
	}
	return 0.5
}

// Env is the slice of the world an agent may touch during one activation.
// Agents hold no references to each other; every cross-agent lookup goes
// through these accessors by id.
type Env struct {
	Ctx     context.Context
	Step    int
	SimTime string
	Hour    int

	Log    *eventlog.Log
	Router *channel.Router

	NameOf     func(id string) string
	TraitsOf   func(id string) Traits
	LocationOf func(id string) string
	Colocated  func(id string) []string
	Sink       func(id string) InfoSink
	Locations  []string
}

// Actor is what the scheduler activates once per step.
type Actor interface {
	ID() string
	Name() string
	Role() string
	Location() string
	SetLocation(loc string)
	Activity() string
	Traits() Traits
	Phone() *channel.Phone
	Memory() *memory.Stream
	Turn(env *Env) error
}

// InfoSink receives notice that sensitive information reached its holder's
// counterpart. Deviant agents implement it to track extraction progress.
type InfoSink interface {
	RecordExtracted(step int, fromID, kind, sensitivity, channelName, value string)
}

// Deps are the shared collaborators injected into every agent.
type Deps struct {
	Completer oracle.Completer
	Phone     *channel.Phone
	Rnd       *rand.Rand
	Logger    *zap.Logger
	MaxTokens int
}

// Base carries the state and cognitive plumbing shared by both roles.
type Base struct {
	id       string
	name     string
	role     string
	persona  oracle.Persona
	traits   Traits
	location string
	activity string
	schedule map[int]string

	phone     *channel.Phone
	mem       *memory.Stream
	trust     map[string]float64
	completer oracle.Completer
	rnd       *rand.Rand
	logger    *zap.Logger
	maxTokens int

	lastReflect int
}

func newBase(cfg config.AgentConfig, deps Deps) Base {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := deps.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return Base{
		id:   cfg.ID,
		name: cfg.Name,
		role: cfg.Role,
		persona: oracle.Persona{
			Name:       cfg.Name,
			Age:        cfg.Age,
			Occupation: cfg.Occupation,
			Background: cfg.Background,
			Traits:     cfg.Traits,
		},
		traits:    Traits(cfg.Traits),
		location:  cfg.Location,
		schedule:  cfg.Schedule,
		phone:     deps.Phone,
		mem:       memory.NewStream(cfg.ID),
		trust:     make(map[string]float64),
		completer: deps.Completer,
		rnd:       deps.Rnd,
		logger:    logger.With(zap.String("agent", cfg.ID)),
		maxTokens: maxTokens,
	}
}

func (b *Base) ID() string             { return b.id }
func (b *Base) Name() string           { return b.name }
func (b *Base) Role() string           { return b.role }
func (b *Base) Location() string       { return b.location }
func (b *Base) SetLocation(loc string) { b.location = loc }
func (b *Base) Activity() string       { return b.activity }
func (b *Base) Phone() *channel.Phone  { return b.phone }
func (b *Base) Memory() *memory.Stream { return b.mem }
func (b *Base) Traits() Traits         { return b.traits }
func (b *Base) setActivity(act string) { b.activity = act }

// Trust returns this agent's trust in another, defaulting to the 0.5
// neutral stance for strangers.
func (b *Base) Trust(otherID string) float64 {
	if v, ok := b.trust[otherID]; ok {
		return v
	}
	return 0.5
}

// AdjustTrust applies a clamped delta and logs the change. Trust never
// leaves [0,1] no matter the delta.
func (b *Base) AdjustTrust(env *Env, otherID string, delta float64, reason string) {
	before := b.Trust(otherID)
	after := before + delta
	if after < 0 {
		after = 0
	} else if after > 1 {
		after = 1
	}
	b.trust[otherID] = after
	env.Log.TrustChange(env.Step, env.SimTime, b.id, otherID, before, after, reason)
}

// perceive records what the agent notices at the start of its activation.
func (b *Base) perceive(env *Env) {
	for _, otherID := range env.Colocated(b.id) {
		b.mem.AddFull(
			fmt.Sprintf("Saw %s at the %s", env.NameOf(otherID), b.location),
			memory.KindObservation, 2, env.Step, otherID, "", nil)
	}
}

// followSchedule moves the agent to its scheduled location for the current
// hour, logging the move.
func (b *Base) followSchedule(env *Env) {
	loc, ok := b.schedule[env.Hour]
	if !ok || loc == b.location {
		return
	}
	from := b.location
	b.location = loc
	b.setActivity("heading to the " + loc)
	env.Log.Record(eventlog.Event{
		Step: env.Step, Type: eventlog.TypeAgentMove, Timestamp: env.SimTime,
		AgentID: b.id, Location: loc,
		Metadata: map[string]any{"from": from},
	})
}

// logPlan records what the agent settled on doing this activation.
func (b *Base) logPlan(env *Env) {
	if b.activity == "" {
		return
	}
	env.Log.Record(eventlog.Event{
		Step: env.Step, Type: eventlog.TypeAgentPlan, Timestamp: env.SimTime,
		AgentID: b.id, Location: b.location, Content: b.activity,
	})
}

// reflectionInterval forces a reflection at least this often even when
// accumulated importance stays low.
const reflectionInterval = 10

// maybeReflect runs an oracle-backed reflection when due. A failed
// reflection is logged and skipped; it never aborts the turn that earned it.
func (b *Base) maybeReflect(env *Env) {
	due := env.Step-b.lastReflect >= reflectionInterval || b.mem.ShouldReflect()
	if !due || env.Step == b.lastReflect {
		return
	}
	recent := b.mem.Recent(10)
	if len(recent) == 0 {
		return
	}
	var lines string
	for _, m := range recent {
		lines += "- " + m.Content + "\n"
	}
	insight, err := b.completer.Complete(env.Ctx,
		fmt.Sprintf("You are %s. Reflect on your recent experiences and state one concise insight about what is going on in your life right now.", b.name),
		[]oracle.ChatMessage{{Role: oracle.RoleUser, Content: "Recent experiences:\n" + lines}},
		0.5, b.maxTokens)
	if err != nil {
		b.logger.Warn("reflection skipped", zap.Error(err))
		return
	}
	b.mem.Add(insight, memory.KindReflection, 8, env.Step)
	b.mem.ResetReflection()
	b.lastReflect = env.Step
	env.Log.Record(eventlog.Event{
		Step: env.Step, Type: eventlog.TypeAgentReflect, Timestamp: env.SimTime,
		AgentID: b.id, Content: insight,
	})
}

// threadText renders a recent conversation for prompt context.
func (b *Base) threadText(otherID, otherName, channelName string, n int) string {
	var out string
	for _, m := range b.phone.RecentThread(otherID, channelName, n) {
		who := otherName
		if m.SenderID == b.id {
			who = "You"
		}
		out += who + ": " + m.Content + "\n"
	}
	return out
}

// channelContext asks the router for the channel's conversational framing.
func channelContext(env *Env, channelName, otherName string) string {
	c, err := env.Router.Channel(channelName)
	if err != nil {
		return ""
	}
	return c.PromptContext(otherName)
}

// memoryLines renders retrieved memories for the prompt builder.
func memoryLines(memories []*memory.Memory) []string {
	out := make([]string, len(memories))
	for i, m := range memories {
		out[i] = m.Content
	}
	return out
}
