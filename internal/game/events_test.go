package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusDeliversInOrder(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	bus.Subscribe(func(ev GameEvent) { got = append(got, ev.Type) })

	bus.PublishBatch([]GameEvent{
		{Type: EventTurnStarted},
		{Type: EventCardPlayed},
		{Type: EventTurnEnded},
	})

	assert.Equal(t, []EventType{EventTurnStarted, EventCardPlayed, EventTurnEnded}, got)
}

func TestEventBusTypedSubscription(t *testing.T) {
	bus := NewEventBus()
	var deaths int
	bus.SubscribeTyped(EventCreatureDied, func(ev GameEvent) { deaths++ })

	bus.Publish(GameEvent{Type: EventCardPlayed})
	bus.Publish(GameEvent{Type: EventCreatureDied})
	bus.Publish(GameEvent{Type: EventCreatureDied})

	assert.Equal(t, 2, deaths)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var all, typed int
	h1 := bus.Subscribe(func(GameEvent) { all++ })
	h2 := bus.SubscribeTyped(EventTurnEnded, func(GameEvent) { typed++ })

	bus.Publish(GameEvent{Type: EventTurnEnded})
	bus.Unsubscribe(h1)
	bus.Unsubscribe(h2)
	bus.Publish(GameEvent{Type: EventTurnEnded})

	assert.Equal(t, 1, all)
	assert.Equal(t, 1, typed)
}

func TestEngineStreamsCommittedEvents(t *testing.T) {
	h := newMatchHarness(t)
	var streamed []GameEvent
	handle, err := h.engine.Subscribe(h.gameID, func(ev GameEvent) {
		streamed = append(streamed, ev)
	})
	require.NoError(t, err)
	defer h.engine.Unsubscribe(h.gameID, handle)

	grunt := h.addCreature(0, "tst_grunt", true)
	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})

	var sawAttack, sawDamage bool
	for _, ev := range streamed {
		switch ev.Type {
		case EventCreatureAttacked:
			sawAttack = true
		case EventPlayerDamaged:
			sawDamage = true
		}
	}
	assert.True(t, sawAttack)
	assert.True(t, sawDamage)
}

func TestRejectedActionsEmitNoEvents(t *testing.T) {
	h := newMatchHarness(t)
	var streamed int
	handle, err := h.engine.Subscribe(h.gameID, func(GameEvent) { streamed++ })
	require.NoError(t, err)
	defer h.engine.Unsubscribe(h.gameID, handle)

	h.expectReject(h.p2, Action{Type: ActionEndTurn}, ReasonNotYourTurn)
	assert.Zero(t, streamed)
}

// TestEventLogReconcilesWithHealth plays a scripted stretch of game and
// checks the audit property: starting health minus the damage events plus
// the heal events per player equals the final health.
func TestEventLogReconcilesWithHealth(t *testing.T) {
	h := newMatchHarness(t)

	grunt := h.addCreature(0, "tst_grunt", true)
	leech := h.addCreature(0, "tst_lifesteal", true)
	h.setHealth(0, 22)
	h.setMana(0, 10)

	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})
	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: leech})
	h.mustAct(h.p1, Action{Type: ActionHeroPower})
	healIdx := h.giveCard(0, "tst_heal")
	h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: healIdx})
	h.mustAct(h.p1, Action{Type: ActionEndTurn})
	h.mustAct(h.p2, Action{Type: ActionEndTurn})

	st := h.state()
	start := map[string]int{h.p1: 22, h.p2: StartingHealth}
	expected := map[string]int{}
	for id, hp := range start {
		expected[id] = hp
	}
	for _, ev := range st.Events {
		switch ev.Type {
		case EventPlayerDamaged:
			expected[ev.PlayerID] -= ev.Amount
		case EventPlayerHealed:
			expected[ev.PlayerID] += ev.Amount
		}
	}

	for _, p := range st.Players {
		assert.Equal(t, expected[p.PlayerID], p.Health, "event log drifts from %s's health", p.PlayerID)
	}
}

func TestEventLogIsAppendOnly(t *testing.T) {
	h := newMatchHarness(t)
	before := h.state().Events

	grunt := h.addCreature(0, "tst_grunt", true)
	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})

	after := h.state().Events
	require.Greater(t, len(after), len(before))
	for i, ev := range before {
		assert.Equal(t, ev.Type, after[i].Type, "committed events never change")
		assert.Equal(t, ev.Timestamp, after[i].Timestamp)
	}
}
