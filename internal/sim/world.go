// Package sim owns the discrete-step scheduler: the agent registry, the
// simulated clock, message delivery ordering, and per-step metrics.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"arcane/internal/agent"
	"arcane/internal/channel"
	"arcane/internal/config"
	"arcane/internal/eventlog"
	"arcane/internal/oracle"
)

// The simulated clock: runs start on a Monday morning and advance ten
// minutes per step.
var simStart = time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)

const minutesPerStep = 10

// Location is a named place on the town grid.
type Location struct {
	Name string
	X, Y float64
}

// The town layout. Agents are placed with a small jitter around their
// location's center.
var defaultLocations = []Location{
	{"office", 10, 10},
	{"cafe", 20, 10},
	{"park", 15, 20},
	{"residential", 5, 15},
	{"community_center", 25, 18},
}

// Position is an agent's jittered coordinate near its location center.
type Position struct {
	X, Y float64
}

// StepMetrics are the per-step counters collected after every step.
type StepMetrics struct {
	Step      int
	Delivered int
	Messages  int
	Reveals   int
	Tactics   int
	Errors    int
}

// World is one simulation run: agents, channels, clock, and log.
type World struct {
	settings config.Settings
	scenario config.Scenario
	log      *eventlog.Log
	router   *channel.Router
	logger   *zap.Logger
	rnd      *rand.Rand

	agents    map[string]agent.Actor
	order     []string
	positions map[string]Position
	lastLoc   map[string]string
	locations map[string]Location

	step    int
	metrics []StepMetrics
}

// New builds a world from a validated scenario. Construction is all or
// nothing: any inconsistency is returned as an error before a step runs.
func New(settings config.Settings, scenario config.Scenario, completer oracle.Completer, log *eventlog.Log, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		settings:  settings,
		scenario:  scenario,
		log:       log,
		router:    channel.NewRouter(log, logger),
		logger:    logger,
		rnd:       rand.New(rand.NewSource(settings.Seed)),
		agents:    make(map[string]agent.Actor),
		positions: make(map[string]Position),
		lastLoc:   make(map[string]string),
		locations: make(map[string]Location),
	}
	for _, loc := range defaultLocations {
		w.locations[loc.Name] = loc
	}

	for _, cfg := range scenario.Agents {
		if cfg.Location != "" {
			if _, ok := w.locations[cfg.Location]; !ok {
				return nil, fmt.Errorf("sim: agent %q starts at unknown location %q", cfg.ID, cfg.Location)
			}
		}
		deps := agent.Deps{
			Completer: completer,
			Phone:     channel.NewPhone(cfg.ID, cfg.Name, w.rnd),
			Rnd:       w.rnd,
			Logger:    logger,
			MaxTokens: settings.Oracle.MaxTokens,
		}
		var a agent.Actor
		switch cfg.Role {
		case config.RoleBenign:
			a = agent.NewBenign(cfg, deps)
		case config.RoleDeviant:
			a = agent.NewDeviant(cfg, deps)
		default:
			return nil, fmt.Errorf("sim: agent %q has unknown role %q", cfg.ID, cfg.Role)
		}
		w.agents[cfg.ID] = a
		w.order = append(w.order, cfg.ID)
		w.router.RegisterPhone(a.Phone())
	}

	// Everyone starts with everyone else in their contact book.
	for _, id := range w.order {
		for _, otherID := range w.order {
			if id != otherID {
				w.agents[id].Phone().AddContact(w.agents[otherID].Phone().OwnContact())
			}
		}
	}

	for _, id := range w.order {
		w.place(id)
	}

	w.log.Record(eventlog.Event{
		Step: 0, Type: eventlog.TypeSimulationStart, Timestamp: w.SimTime(),
		Content:  scenario.Name,
		Metadata: map[string]any{"agents": len(w.order), "seed": settings.Seed},
	})
	return w, nil
}

// place assigns a jittered position near the agent's location center.
func (w *World) place(id string) {
	a := w.agents[id]
	loc, ok := w.locations[a.Location()]
	if !ok {
		loc = w.locations[defaultLocations[0].Name]
		a.SetLocation(loc.Name)
	}
	w.positions[id] = Position{
		X: loc.X + w.rnd.Float64()*2 - 1,
		Y: loc.Y + w.rnd.Float64()*2 - 1,
	}
	w.lastLoc[id] = a.Location()
}

// Step reports the number of completed steps.
func (w *World) Step() int { return w.step }

// SimTime renders the current simulated wall-clock time.
func (w *World) SimTime() string {
	return simStart.Add(time.Duration(w.step*minutesPerStep) * time.Minute).Format("2006-01-02 15:04")
}

func (w *World) hour() int {
	return simStart.Add(time.Duration(w.step*minutesPerStep) * time.Minute).Hour()
}

// Log exposes the run's event log.
func (w *World) Log() *eventlog.Log { return w.log }

// Agent returns a registered agent by id, nil if unknown.
func (w *World) Agent(id string) agent.Actor { return w.agents[id] }

// AgentIDs returns the registry's ids in registration order.
func (w *World) AgentIDs() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Metrics returns the per-step counters collected so far.
func (w *World) Metrics() []StepMetrics {
	out := make([]StepMetrics, len(w.metrics))
	copy(out, w.metrics)
	return out
}

// env builds one step's agent-facing view of the world.
func (w *World) env(ctx context.Context) *agent.Env {
	return &agent.Env{
		Ctx:     ctx,
		Step:    w.step,
		SimTime: w.SimTime(),
		Hour:    w.hour(),
		Log:     w.log,
		Router:  w.router,
		NameOf: func(id string) string {
			if a, ok := w.agents[id]; ok {
				return a.Name()
			}
			return id
		},
		TraitsOf: func(id string) agent.Traits {
			if a, ok := w.agents[id]; ok {
				return a.Traits()
			}
			return nil
		},
		LocationOf: func(id string) string {
			if a, ok := w.agents[id]; ok {
				return a.Location()
			}
			return ""
		},
		Colocated: func(id string) []string {
			self, ok := w.agents[id]
			if !ok {
				return nil
			}
			var out []string
			for _, otherID := range w.order {
				if otherID != id && w.agents[otherID].Location() == self.Location() {
					out = append(out, otherID)
				}
			}
			return out
		},
		Sink: func(id string) agent.InfoSink {
			if d, ok := w.agents[id].(*agent.Deviant); ok {
				return d
			}
			return nil
		},
		Locations: w.locationNames(),
	}
}

func (w *World) locationNames() []string {
	out := make([]string, len(defaultLocations))
	for i, loc := range defaultLocations {
		out[i] = loc.Name
	}
	return out
}

// Advance runs one step: pending deliveries land first, then every agent
// takes one turn in shuffled order. A failing or panicking agent forfeits
// only its own turn.
func (w *World) Advance(ctx context.Context) StepMetrics {
	w.step++
	ts := w.SimTime()
	w.log.StepStart(w.step, ts)

	delivered := w.router.DeliverDue(w.step, ts)

	ids := make([]string, len(w.order))
	copy(ids, w.order)
	w.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	env := w.env(ctx)
	errs := 0
	for _, id := range ids {
		if err := w.runTurn(env, id); err != nil {
			errs++
			w.log.OracleError(w.step, ts, id, err.Error())
			w.logger.Warn("agent turn failed", zap.String("agent", id), zap.Error(err))
		}
		if w.agents[id].Location() != w.lastLoc[id] {
			w.place(id)
		}
	}

	m := w.collectMetrics(delivered, errs)
	w.metrics = append(w.metrics, m)
	w.log.StepEnd(w.step, ts, map[string]any{
		"delivered": m.Delivered,
		"messages":  m.Messages,
		"reveals":   m.Reveals,
		"tactics":   m.Tactics,
		"errors":    m.Errors,
	})
	return m
}

// runTurn isolates one agent's turn, converting panics into errors.
func (w *World) runTurn(env *agent.Env, id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.agents[id].Turn(env)
}

func (w *World) collectMetrics(delivered, errs int) StepMetrics {
	m := StepMetrics{Step: w.step, Delivered: delivered, Errors: errs}
	for _, e := range w.log.ByStep(w.step) {
		switch e.Type {
		case eventlog.TypeMessageSent:
			m.Messages++
		case eventlog.TypeInfoRevealed:
			m.Reveals++
		case eventlog.TypeTacticUsed:
			m.Tactics++
		}
	}
	return m
}

// Run advances n steps, honoring cancellation between steps.
func (w *World) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Advance(ctx)
	}
	w.log.Record(eventlog.Event{
		Step: w.step, Type: eventlog.TypeSimulationEnd, Timestamp: w.SimTime(),
		Metadata: map[string]any{"steps": w.step},
	})
	return nil
}
