package agent

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcane/internal/channel"
	"arcane/internal/config"
	"arcane/internal/eventlog"
	"arcane/internal/memory"
	"arcane/internal/oracle"
)

// testWorld wires just enough surroundings for a single agent's turn.
type testWorld struct {
	env    *Env
	log    *eventlog.Log
	router *channel.Router
	traits map[string]Traits
	sinks  map[string]InfoSink
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	log := eventlog.NewMemory(nil)
	router := channel.NewRouter(log, nil)
	w := &testWorld{
		log:    log,
		router: router,
		traits: make(map[string]Traits),
		sinks:  make(map[string]InfoSink),
	}
	w.env = &Env{
		Ctx:        context.Background(),
		Step:       1,
		SimTime:    "2024-01-15 07:10",
		Hour:       7,
		Log:        log,
		Router:     router,
		NameOf: func(id string) string {
			if p := router.Phone(id); p != nil {
				return p.OwnerName
			}
			return id
		},
		TraitsOf:   func(id string) Traits { return w.traits[id] },
		LocationOf: func(id string) string { return "office" },
		Colocated:  func(id string) []string { return nil },
		Sink:       func(id string) InfoSink { return w.sinks[id] },
		Locations:  []string{"office", "cafe", "park"},
	}
	return w
}

func (w *testWorld) phone(t *testing.T, id, name string) *channel.Phone {
	t.Helper()
	p := channel.NewPhone(id, name, rand.New(rand.NewSource(3)))
	w.router.RegisterPhone(p)
	return p
}

func benignCfg(id string) config.AgentConfig {
	return config.AgentConfig{
		ID: id, Name: "Agent " + id, Role: config.RoleBenign,
		Age: 34, Occupation: "a finance manager", Location: "office",
		Traits: map[string]float64{"agreeableness": 0.7},
		Secrets: []config.SecretConfig{
			{Kind: "account_number", Value: "SIM-ACCT-4821", Sensitivity: config.SensitivityCritical},
			{Kind: "team_offsite_location", Value: "Lakeview Lodge", Sensitivity: config.SensitivityLow},
		},
		Schedule: map[int]string{9: "cafe"},
	}
}

func deviantCfg(id string, targets ...string) config.AgentConfig {
	return config.AgentConfig{
		ID: id, Name: "Agent " + id, Role: config.RoleDeviant,
		Age: 29, Occupation: "a consultant", Location: "cafe",
		CoverIdentity: "an external compliance auditor",
		Objective: &config.ObjectiveConfig{
			Description: "obtain payment credentials",
			TargetInfo:  []string{"account_number"},
			Targets:     targets,
		},
	}
}

func deps(t *testing.T, w *testWorld, id, name string, responses ...string) Deps {
	t.Helper()
	return Deps{
		Completer: oracle.NewScripted(responses...),
		Phone:     w.phone(t, id, name),
		Rnd:       rand.New(rand.NewSource(11)),
	}
}

func TestTraitsGetDefaultsToMidpoint(t *testing.T) {
	tr := Traits{"openness": 0.9}
	assert.Equal(t, 0.9, tr.Get("openness"))
	assert.Equal(t, 0.5, tr.Get("neuroticism"))
}

func TestTrustClampsAndLogs(t *testing.T) {
	w := newTestWorld(t)
	a := NewBenign(benignCfg("alice"), deps(t, w, "alice", "Alice"))

	assert.Equal(t, 0.5, a.Trust("stranger"))

	a.AdjustTrust(w.env, "mallory", 0.9, "test")
	assert.Equal(t, 1.0, a.Trust("mallory"))

	a.AdjustTrust(w.env, "mallory", -5, "test")
	assert.Equal(t, 0.0, a.Trust("mallory"))

	changes := w.log.ByType(eventlog.TypeTrustChange)
	require.Len(t, changes, 2)
	assert.Equal(t, 1.0, changes[0].Metadata["after"])
	assert.Equal(t, 0.0, changes[1].Metadata["after"])
}

func TestFollowSchedule(t *testing.T) {
	w := newTestWorld(t)
	a := NewBenign(benignCfg("alice"), deps(t, w, "alice", "Alice"))

	a.followSchedule(w.env) // hour 7, no entry
	assert.Equal(t, "office", a.Location())

	w.env.Hour = 9
	a.followSchedule(w.env)
	assert.Equal(t, "cafe", a.Location())
	require.Len(t, w.log.ByType(eventlog.TypeAgentMove), 1)

	// Already there: no duplicate move event.
	a.followSchedule(w.env)
	assert.Len(t, w.log.ByType(eventlog.TypeAgentMove), 1)
}

func TestReflectionAfterInterval(t *testing.T) {
	w := newTestWorld(t)
	a := NewBenign(benignCfg("alice"), deps(t, w, "alice", "Alice", "Work has been stressful lately."))
	a.mem.Add("a normal day at the office", memory.KindObservation, 3, 1)

	w.env.Step = 5
	a.maybeReflect(w.env)
	assert.Empty(t, a.mem.ByKind(memory.KindReflection), "not due yet")

	w.env.Step = 10
	a.maybeReflect(w.env)
	reflections := a.mem.ByKind(memory.KindReflection)
	require.Len(t, reflections, 1)
	assert.Equal(t, 8, reflections[0].Importance)
	assert.Len(t, w.log.ByType(eventlog.TypeAgentReflect), 1)
}

func TestReflectionTriggeredByImportance(t *testing.T) {
	w := newTestWorld(t)
	a := NewBenign(benignCfg("alice"), deps(t, w, "alice", "Alice", "Too much is happening."))
	for i := 0; i < 6; i++ {
		a.mem.Add("a dramatic event unfolded", memory.KindObservation, 9, 2)
	}

	w.env.Step = 3
	require.True(t, a.mem.ShouldReflect())
	a.maybeReflect(w.env)
	assert.Len(t, a.mem.ByKind(memory.KindReflection), 1)
	assert.False(t, a.mem.ShouldReflect(), "accumulator resets")
}

func TestReflectionFailureIsNonFatal(t *testing.T) {
	w := newTestWorld(t)
	a := NewBenign(benignCfg("alice"), deps(t, w, "alice", "Alice")) // no scripted responses
	a.mem.Add("something happened", memory.KindObservation, 3, 1)

	w.env.Step = 20
	a.maybeReflect(w.env)
	assert.Empty(t, a.mem.ByKind(memory.KindReflection))
}
