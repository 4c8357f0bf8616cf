package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcane/internal/channel"
	"arcane/internal/eventlog"
)

func TestDeviantOpensEngagement(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"Hi Alice, I noticed we're both in finance circles — would love to connect."))
	w.phone(t, "alice", "Alice")

	w.env.Step = 4
	require.NoError(t, d.Turn(w.env))

	e := d.Engagement("alice")
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Phase)
	assert.Equal(t, 1, e.Interactions)
	assert.Equal(t, 1, e.Unanswered)
	assert.Equal(t, 4, e.LastSentStep)

	sent := w.log.ByType(eventlog.TypeMessageSent)
	require.Len(t, sent, 1)
	assert.Equal(t, channel.NameSocialDM, sent[0].Channel, "first contact opens on the social platform")

	tactic := w.log.ByType(eventlog.TypeTacticUsed)
	require.Len(t, tactic, 1)
	assert.Equal(t, "establish_contact", tactic[0].Metadata["phase"])

	plans := w.log.ByType(eventlog.TypeAgentPlan)
	require.Len(t, plans, 1)
	assert.Contains(t, plans[0].Content, "working Alice")
}

func TestDeviantCooldownBetweenEngagements(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"first approach", "second approach"))
	w.phone(t, "alice", "Alice")

	w.env.Step = 4
	require.NoError(t, d.Turn(w.env))
	require.Len(t, w.log.ByType(eventlog.TypeMessageSent), 1)

	// Steps 5 and 6 sit inside the cooldown window.
	for _, step := range []int{5, 6} {
		w.env.Step = step
		require.NoError(t, d.Turn(w.env))
		assert.Len(t, w.log.ByType(eventlog.TypeMessageSent), 1, "step %d", step)
	}

	w.env.Step = 7
	require.NoError(t, d.Turn(w.env))
	assert.Len(t, w.log.ByType(eventlog.TypeMessageSent), 2)
}

func TestDeviantGivesUpAfterUnansweredCap(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"one", "two", "three", "STAY"))
	w.phone(t, "alice", "Alice")

	for _, step := range []int{3, 6, 9, 12, 15} {
		w.env.Step = step
		require.NoError(t, d.Turn(w.env))
	}
	assert.Len(t, w.log.ByType(eventlog.TypeMessageSent), 3, "cap reached, target left alone")
	assert.Equal(t, 3, d.Engagement("alice").Unanswered)
}

func TestDeviantReplyResetsUnanswered(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"opening message", "thanks for getting back to me"))
	w.phone(t, "alice", "Alice")

	w.env.Step = 3
	require.NoError(t, d.Turn(w.env))
	assert.Equal(t, 1, d.Engagement("alice").Unanswered)

	// A reply arrives; the next activation answers it even inside cooldown.
	deliver(d.Phone(), "alice", channel.NameSocialDM, "Oh hi! Sure, happy to chat.", 4)
	w.env.Step = 4
	require.NoError(t, d.Turn(w.env))

	e := d.Engagement("alice")
	assert.Zero(t, e.Unanswered)
	assert.Equal(t, 4, e.LastReceivedStep)
	assert.Equal(t, 2, e.Interactions)
	assert.Len(t, w.log.ByType(eventlog.TypeMessageSent), 2)
}

func TestChannelRotationWithoutRepeat(t *testing.T) {
	d := &Deviant{engagements: make(map[string]*Engagement)}
	e := d.engagement("alice")

	var seen []string
	for i := 0; i < 3; i++ {
		seen = append(seen, d.selectChannel(e))
	}
	assert.Equal(t, []string{channel.NameSocialDM, channel.NameEmail, channel.NameSMS}, seen)

	// Window exhausted: rotation restarts.
	assert.Equal(t, channel.NameSocialDM, d.selectChannel(e))
	assert.Equal(t, channel.NameEmail, d.selectChannel(e))
}

func TestTacticSelection(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory"))

	t.Run("anxious and careless favors urgency", func(t *testing.T) {
		got := d.selectTactic(Traits{"neuroticism": 0.9, "conscientiousness": 0.2})
		assert.Equal(t, "urgency", got.Name)
	})

	t.Run("agreeable and diligent favors authority", func(t *testing.T) {
		got := d.selectTactic(Traits{"agreeableness": 0.8, "conscientiousness": 0.8, "neuroticism": 0.1})
		assert.Equal(t, "authority", got.Name)
	})

	t.Run("flat profile keeps declaration order", func(t *testing.T) {
		// Every trait reads the 0.5 midpoint, so every tactic ties;
		// the pick must be deterministic, not random.
		for i := 0; i < 5; i++ {
			got := d.selectTactic(Traits{})
			assert.Equal(t, "urgency", got.Name)
		}
	})

	t.Run("no profile falls back to a random pick", func(t *testing.T) {
		got := d.selectTactic(nil)
		names := map[string]bool{"urgency": true, "authority": true, "reciprocity": true, "fear": true}
		assert.True(t, names[got.Name])
	})
}

func TestPhaseAdvancesOnVerdict(t *testing.T) {
	w := newTestWorld(t)
	// Three engagement messages; the third triggers an evaluation that advances.
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"msg one", "msg two", "msg three", "ADVANCE"))
	w.phone(t, "alice", "Alice")

	for _, step := range []int{3, 6, 9} {
		w.env.Step = step
		require.NoError(t, d.Turn(w.env))
		// Keep the line open so the unanswered cap never bites.
		d.Engagement("alice").Unanswered = 0
	}

	e := d.Engagement("alice")
	assert.Equal(t, 2, e.Phase, "exactly one phase per evaluation")

	changes := w.log.ByType(eventlog.TypeGoalPhaseChange)
	require.Len(t, changes, 1)
	assert.Equal(t, "establish_contact", changes[0].Metadata["from"])
	assert.Equal(t, "deepen_relationship", changes[0].Metadata["to"])
}

func TestPhaseStaysOnStayVerdict(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory",
		"one", "two", "three", "STAY"))
	w.phone(t, "alice", "Alice")

	for _, step := range []int{3, 6, 9} {
		w.env.Step = step
		require.NoError(t, d.Turn(w.env))
		d.Engagement("alice").Unanswered = 0
	}
	assert.Equal(t, 1, d.Engagement("alice").Phase)
	assert.Empty(t, w.log.ByType(eventlog.TypeGoalPhaseChange))
}

func TestFinalPhaseTargetsNotScheduled(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory", "never sent"))
	w.phone(t, "alice", "Alice")
	d.engagement("alice").Phase = finalPhase

	w.env.Step = 10
	require.NoError(t, d.Turn(w.env))
	assert.Empty(t, w.log.ByType(eventlog.TypeMessageSent))

	// Terminal phase never advances further.
	d.evaluatePhase(w.env, "alice")
	assert.Equal(t, finalPhase, d.Engagement("alice").Phase)
}

func TestRecordExtracted(t *testing.T) {
	w := newTestWorld(t)
	d := NewDeviant(deviantCfg("mallory", "alice"), deps(t, w, "mallory", "Mallory"))

	d.RecordExtracted(7, "alice", "account_number", "critical", channel.NameEmail, "SIM-ACCT-4821")

	e := d.Engagement("alice")
	require.Len(t, e.Extracted, 1)
	assert.Equal(t, "SIM-ACCT-4821", e.Extracted[0].Value)
	assert.NotEmpty(t, d.Memory().ByAgent("alice"))
}
