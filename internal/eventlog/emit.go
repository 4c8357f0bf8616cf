package eventlog

// Convenience emitters for the common record shapes. Components that need
// richer metadata call Record directly.

// StepStart marks the beginning of a scheduler step.
func (l *Log) StepStart(step int, ts string) {
	l.Record(Event{Step: step, Type: TypeStepStart, Timestamp: ts})
}

// StepEnd marks the end of a scheduler step with its aggregate counters.
func (l *Log) StepEnd(step int, ts string, meta map[string]any) {
	l.Record(Event{Step: step, Type: TypeStepEnd, Timestamp: ts, Metadata: meta})
}

// MessageSent records an outbound message on a channel.
func (l *Log) MessageSent(step int, ts, sender, recipient, channel, content string, delivered bool) {
	l.Record(Event{
		Step: step, Type: TypeMessageSent, Timestamp: ts,
		AgentID: sender, TargetID: recipient, Channel: channel, Content: content,
		Metadata: map[string]any{"delivered": delivered},
	})
}

// MessageReceived records a delivery into a recipient's inbox.
func (l *Log) MessageReceived(step int, ts, sender, recipient, channel, content string) {
	l.Record(Event{
		Step: step, Type: TypeMessageReceived, Timestamp: ts,
		AgentID: sender, TargetID: recipient, Channel: channel, Content: content,
	})
}

// Tactic records a persuasion tactic selected against a target.
func (l *Log) Tactic(step int, ts, agentID, targetID, tactic, phase string) {
	l.Record(Event{
		Step: step, Type: TypeTacticUsed, Timestamp: ts,
		AgentID: agentID, TargetID: targetID, Content: tactic,
		Metadata: map[string]any{"phase": phase},
	})
}

// Reveal records sensitive information leaving its holder.
func (l *Log) Reveal(step int, ts, agentID, targetID, channel, kind, sensitivity string) {
	l.Record(Event{
		Step: step, Type: TypeInfoRevealed, Timestamp: ts,
		AgentID: agentID, TargetID: targetID, Channel: channel, Content: kind,
		Metadata: map[string]any{"sensitivity": sensitivity},
	})
}

// TrustChange records a trust ledger update.
func (l *Log) TrustChange(step int, ts, agentID, targetID string, before, after float64, reason string) {
	l.Record(Event{
		Step: step, Type: TypeTrustChange, Timestamp: ts,
		AgentID: agentID, TargetID: targetID, Content: reason,
		Metadata: map[string]any{"before": before, "after": after},
	})
}

// PhaseChange records a goal-phase advance against a target.
func (l *Log) PhaseChange(step int, ts, agentID, targetID, from, to string) {
	l.Record(Event{
		Step: step, Type: TypeGoalPhaseChange, Timestamp: ts,
		AgentID: agentID, TargetID: targetID,
		Content:  from + " -> " + to,
		Metadata: map[string]any{"from": from, "to": to},
	})
}

// OracleError records a recovered oracle failure during an agent turn.
func (l *Log) OracleError(step int, ts, agentID, msg string) {
	l.Record(Event{Step: step, Type: TypeOracleError, Timestamp: ts, AgentID: agentID, Content: msg})
}
