package sim

import "arcane/internal/channel"

// AgentStatus is one agent's externally visible state.
type AgentStatus struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Location string  `json:"location"`
	Activity string  `json:"activity"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Unread   int     `json:"unread"`
}

// Snapshot is a read-only view of the run for status displays. Taking one
// never mutates simulation state.
type Snapshot struct {
	Scenario     string        `json:"scenario"`
	Step         int           `json:"step"`
	SimTime      string        `json:"sim_time"`
	Agents       []AgentStatus `json:"agents"`
	RecentEvents []string      `json:"recent_events"`
}

// Snapshot captures the current state of the world.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Scenario: w.scenario.Name,
		Step:     w.step,
		SimTime:  w.SimTime(),
	}
	for _, id := range w.order {
		a := w.agents[id]
		pos := w.positions[id]
		unread := 0
		for _, name := range []string{channel.NameProximity, channel.NameSMS, channel.NameEmail, channel.NameSocialDM} {
			unread += a.Phone().UnreadCount(name)
		}
		s.Agents = append(s.Agents, AgentStatus{
			ID: id, Name: a.Name(), Role: a.Role(),
			Location: a.Location(), Activity: a.Activity(),
			X: pos.X, Y: pos.Y, Unread: unread,
		})
	}
	for _, e := range w.log.Recent(10) {
		s.RecentEvents = append(s.RecentEvents, e.String())
	}
	return s
}
