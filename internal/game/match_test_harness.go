package game

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/game/deck"
)

// testCards is the standard catalog scenario tests run against. Stats are
// small so damage math stays easy to follow in failures.
func testCards() []cards.CardDefinition {
	return []cards.CardDefinition{
		{ID: "tst_grunt", Name: "Grunt", Cost: 1, Type: cards.TypeCreature, Rarity: cards.RarityFree, Attack: 2, Health: 1},
		{ID: "tst_vanilla", Name: "Vanilla", Cost: 2, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 2, Health: 3},
		{ID: "tst_bigvanilla", Name: "Big Vanilla", Cost: 5, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 5, Health: 5},
		{ID: "tst_taunt", Name: "Wall", Cost: 2, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 1, Health: 4,
			Keywords: []cards.Keyword{cards.KeywordTaunt}},
		{ID: "tst_shield", Name: "Shielded", Cost: 3, Type: cards.TypeCreature, Rarity: cards.RarityRare, Attack: 3, Health: 2,
			Keywords: []cards.Keyword{cards.KeywordDivineShield}},
		{ID: "tst_poison", Name: "Viper", Cost: 3, Type: cards.TypeCreature, Rarity: cards.RarityRare, Attack: 1, Health: 3,
			Keywords: []cards.Keyword{cards.KeywordPoisonous}},
		{ID: "tst_lifesteal", Name: "Leech", Cost: 4, Type: cards.TypeCreature, Rarity: cards.RarityRare, Attack: 3, Health: 3,
			Keywords: []cards.Keyword{cards.KeywordLifesteal}},
		{ID: "tst_windfury", Name: "Harpy", Cost: 5, Type: cards.TypeCreature, Rarity: cards.RarityEpic, Attack: 3, Health: 4,
			Keywords: []cards.Keyword{cards.KeywordWindfury}},
		{ID: "tst_charge", Name: "Rusher", Cost: 3, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 3, Health: 2,
			Keywords: []cards.Keyword{cards.KeywordCharge}},
		{ID: "tst_rattler", Name: "Rattler", Cost: 2, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 2, Health: 2,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerDeathrattle,
				Effects: []cards.Effect{{Op: cards.EffectDrawCard, Amount: 1}},
			}}},
		{ID: "tst_chainrattler", Name: "Chain Rattler", Cost: 6, Type: cards.TypeCreature, Rarity: cards.RarityEpic, Attack: 4, Health: 4,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerDeathrattle,
				Effects: []cards.Effect{
					{Op: cards.EffectSummonCreature, SummonID: "tst_token"},
					{Op: cards.EffectSummonCreature, SummonID: "tst_token"},
				},
			}}},
		{ID: "tst_token", Name: "Token", Cost: 1, Type: cards.TypeCreature, Rarity: cards.RarityFree, Attack: 1, Health: 1},
		{ID: "tst_firecaller", Name: "Firecaller", Cost: 3, Type: cards.TypeCreature, Rarity: cards.RarityCommon, Attack: 2, Health: 3,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 1, Target: cards.TargetAnyCreature}},
			}}},
		{ID: "tst_bolt", Name: "Bolt", Cost: 2, Type: cards.TypeSpell, Rarity: cards.RarityFree,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 3, Target: cards.TargetAnyCreature}},
			}}},
		{ID: "tst_nuke", Name: "Nuke", Cost: 5, Type: cards.TypeSpell, Rarity: cards.RarityRare,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 2, Target: cards.TargetAllCreatures}},
			}}},
		{ID: "tst_heal", Name: "Mend", Cost: 2, Type: cards.TypeSpell, Rarity: cards.RarityCommon,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectHeal, Amount: 4, Target: cards.TargetFriendlyHero}},
			}}},
		{ID: "tst_execute", Name: "Cull", Cost: 4, Type: cards.TypeSpell, Rarity: cards.RarityRare,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectDestroy, Target: cards.TargetEnemyCreature}},
			}}},
		{ID: "tst_silence", Name: "Hush", Cost: 1, Type: cards.TypeSpell, Rarity: cards.RarityCommon,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{{Op: cards.EffectSilence, Target: cards.TargetAnyCreature}},
			}}},
		{ID: "tst_warcry", Name: "Warcry", Cost: 2, Type: cards.TypeSpell, Rarity: cards.RarityCommon,
			Abilities: []cards.Ability{{
				Trigger: cards.TriggerBattlecry,
				Effects: []cards.Effect{
					{Op: cards.EffectBuffAttack, Amount: 2, Target: cards.TargetFriendlyCreature},
					{Op: cards.EffectBuffHealth, Amount: 2, Target: cards.TargetFriendlyCreature},
				},
			}}},
		{ID: "tst_axe", Name: "Axe", Cost: 3, Type: cards.TypeWeapon, Rarity: cards.RarityFree, Attack: 3, Durability: 2},
	}
}

func testCatalog(t *testing.T) *cards.StaticCatalog {
	t.Helper()
	catalog, err := cards.NewStaticCatalog(testCards()...)
	if err != nil {
		t.Fatalf("failed to build test catalog: %v", err)
	}
	return catalog
}

// testDeck builds a legal 30-card deck from the standard set.
func testDeck() deck.Deck {
	ids := []string{
		"tst_grunt", "tst_vanilla", "tst_bigvanilla", "tst_taunt", "tst_shield",
		"tst_poison", "tst_lifesteal", "tst_windfury", "tst_charge", "tst_rattler",
		"tst_chainrattler", "tst_firecaller", "tst_bolt", "tst_nuke", "tst_heal",
	}
	d := deck.Deck{HeroClass: "mage"}
	for _, id := range ids {
		d.Entries = append(d.Entries, deck.Entry{CardID: id, Count: 2})
	}
	return d
}

// testHeroPower deals one damage to the enemy hero for two mana.
func testHeroPower() *cards.HeroPower {
	return &cards.HeroPower{
		Name: "Spark",
		Cost: 2,
		Effects: []cards.Effect{
			{Op: cards.EffectDamage, Amount: 1, Target: cards.TargetEnemyHero},
		},
	}
}

// matchHarness runs one match on a private engine and gives scenario tests
// direct access to the committed state for board setup.
type matchHarness struct {
	t      *testing.T
	engine *Engine
	gameID string
	p1, p2 string
}

// newMatchHarness starts a seeded match and resolves both mulligans keeping
// every card, leaving player one in the main phase of turn one.
func newMatchHarness(t *testing.T) *matchHarness {
	t.Helper()
	engine := NewEngine(testCatalog(t), zaptest.NewLogger(t))
	st, err := engine.StartMatch(MatchConfig{
		Seed: 42,
		Players: [2]PlayerSetup{
			{PlayerID: "alice", Name: "Alice", Deck: testDeck(), HeroPower: testHeroPower()},
			{PlayerID: "bob", Name: "Bob", Deck: testDeck(), HeroPower: testHeroPower()},
		},
	})
	if err != nil {
		t.Fatalf("failed to start match: %v", err)
	}

	h := &matchHarness{t: t, engine: engine, gameID: st.GameID, p1: "alice", p2: "bob"}
	if _, err := engine.SubmitMulligan(h.gameID, h.p1, nil); err != nil {
		t.Fatalf("mulligan for %s: %v", h.p1, err)
	}
	if _, err := engine.SubmitMulligan(h.gameID, h.p2, nil); err != nil {
		t.Fatalf("mulligan for %s: %v", h.p2, err)
	}
	return h
}

// state returns a snapshot of the committed state.
func (h *matchHarness) state() *GameState {
	h.t.Helper()
	st, err := h.engine.CurrentState(h.gameID)
	if err != nil {
		h.t.Fatalf("failed to read state: %v", err)
	}
	return st
}

// mutate edits the committed state in place. Scenario setup only; regular
// play goes through act.
func (h *matchHarness) mutate(fn func(*GameState)) {
	h.t.Helper()
	m, err := h.engine.match(h.gameID)
	if err != nil {
		h.t.Fatalf("unknown match: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

// addCreature puts a catalog creature on a player's board. Ready creatures
// may attack immediately.
func (h *matchHarness) addCreature(playerIdx int, cardID string, ready bool) string {
	h.t.Helper()
	def, err := h.engine.catalog.Lookup(cardID)
	if err != nil {
		h.t.Fatalf("unknown card %s: %v", cardID, err)
	}
	var id string
	h.mutate(func(st *GameState) {
		c := newCreature(def, st.nextInstanceID())
		c.CanAttack = ready
		st.Players[playerIdx].Board = append(st.Players[playerIdx].Board, c)
		id = c.InstanceID
	})
	return id
}

// modCreature edits one board creature by instance id.
func (h *matchHarness) modCreature(instanceID string, fn func(*Creature)) {
	h.t.Helper()
	found := false
	h.mutate(func(st *GameState) {
		for _, p := range st.Players {
			for _, c := range p.Board {
				if c.InstanceID == instanceID {
					fn(c)
					found = true
					return
				}
			}
		}
	})
	if !found {
		h.t.Fatalf("creature %s not on board", instanceID)
	}
}

func (h *matchHarness) setMana(playerIdx, mana int) {
	h.mutate(func(st *GameState) {
		st.Players[playerIdx].Mana = mana
		if st.Players[playerIdx].MaxMana < mana {
			st.Players[playerIdx].MaxMana = mana
		}
	})
}

func (h *matchHarness) setHealth(playerIdx, health int) {
	h.mutate(func(st *GameState) {
		st.Players[playerIdx].Health = health
	})
}

// giveCard appends a catalog card to a player's hand and returns its index.
func (h *matchHarness) giveCard(playerIdx int, cardID string) int {
	h.t.Helper()
	def, err := h.engine.catalog.Lookup(cardID)
	if err != nil {
		h.t.Fatalf("unknown card %s: %v", cardID, err)
	}
	index := -1
	h.mutate(func(st *GameState) {
		st.Players[playerIdx].Hand = append(st.Players[playerIdx].Hand, def)
		index = len(st.Players[playerIdx].Hand) - 1
	})
	return index
}

func (h *matchHarness) act(playerID string, a Action) (*GameState, error) {
	return h.engine.SubmitAction(h.gameID, playerID, a)
}

func (h *matchHarness) mustAct(playerID string, a Action) *GameState {
	h.t.Helper()
	st, err := h.act(playerID, a)
	if err != nil {
		h.t.Fatalf("action %s by %s failed: %v", a.Type, playerID, err)
	}
	return st
}

// expectReject submits an illegal action and asserts both the rejection
// reason and that the committed state did not move.
func (h *matchHarness) expectReject(playerID string, a Action, reason RejectReason) {
	h.t.Helper()
	before := h.state()
	_, err := h.act(playerID, a)
	rejected, ok := AsRejected(err)
	if !ok {
		h.t.Fatalf("expected rejection %s, got %v", reason, err)
	}
	if rejected.Reason != reason {
		h.t.Fatalf("expected rejection %s, got %s (%s)", reason, rejected.Reason, rejected.Detail)
	}
	after := h.state()
	if len(after.Events) != len(before.Events) {
		h.t.Fatalf("rejected action emitted events: %d -> %d", len(before.Events), len(after.Events))
	}
}

// player returns the committed view of one player by index.
func (h *matchHarness) player(playerIdx int) *PlayerState {
	return h.state().Players[playerIdx]
}

// creature finds a creature in a state snapshot, nil if gone.
func findInState(st *GameState, instanceID string) *Creature {
	for _, p := range st.Players {
		for _, c := range p.Board {
			if c.InstanceID == instanceID {
				return c
			}
		}
	}
	return nil
}

// eventsOfType filters the committed event log.
func (h *matchHarness) eventsOfType(et EventType) []GameEvent {
	var out []GameEvent
	for _, ev := range h.state().Events {
		if ev.Type == et {
			out = append(out, ev)
		}
	}
	return out
}
