package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/game/rng"
)

// bareState builds a minimal main-phase state for direct resolution tests.
func bareState() *GameState {
	st := &GameState{
		Turn:  1,
		Phase: PhaseMain,
	}
	st.Players[0] = &PlayerState{PlayerID: "alice", Health: StartingHealth, MaxHealth: StartingHealth}
	st.Players[1] = &PlayerState{PlayerID: "bob", Health: StartingHealth, MaxHealth: StartingHealth}
	return st
}

func bareResolution(t *testing.T, st *GameState) *resolution {
	t.Helper()
	return newResolution(st, rng.NewSeeded(7), testCatalog(t), zap.NewNop())
}

func spawn(st *GameState, playerIdx int, def cards.CardDefinition) *Creature {
	c := newCreature(def, st.nextInstanceID())
	st.Players[playerIdx].Board = append(st.Players[playerIdx].Board, c)
	return c
}

func TestEffectsApplyInDeclarationOrder(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	grunt, _ := catalog.Lookup("tst_grunt")     // 2/1
	vanilla, _ := catalog.Lookup("tst_vanilla") // 2/3
	g := spawn(st, 1, grunt)
	v := spawn(st, 1, vanilla)

	// Wave of two then heal of two: the grunt dies to the first effect and
	// must not be back for the second; the vanilla is healed to full.
	ab := cards.Ability{
		Trigger: cards.TriggerBattlecry,
		Effects: []cards.Effect{
			{Op: cards.EffectDamage, Amount: 2, Target: cards.TargetAllCreatures},
			{Op: cards.EffectHeal, Amount: 2, Target: cards.TargetAllCreatures},
		},
	}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, ""))
	require.NoError(t, x.reap())

	assert.Nil(t, findInState(st, g.InstanceID))
	survivor := findInState(st, v.InstanceID)
	require.NotNil(t, survivor)
	assert.Equal(t, 3, survivor.Health)
}

func TestSelectorsResolveToZeroTargetsAsNoOp(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	ab := cards.Ability{
		Trigger: cards.TriggerBattlecry,
		Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 3, Target: cards.TargetEnemyCreature}},
	}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, ""))
	assert.Equal(t, StartingHealth, st.Players[1].Health)
	assert.Empty(t, st.Events)
}

func TestRandomEnemyIncludesHero(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	// Empty enemy board: the only member of the pool is the hero.
	ab := cards.Ability{
		Trigger: cards.TriggerBattlecry,
		Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 4, Target: cards.TargetRandomEnemy}},
	}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, ""))
	assert.Equal(t, StartingHealth-4, st.Players[1].Health)
}

func TestFatigueEscalatesPerEmptyDraw(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	require.NoError(t, x.drawCards(0, 3))

	p := st.Players[0]
	assert.Equal(t, 3, p.Fatigue)
	assert.Equal(t, StartingHealth-6, p.Health, "one plus two plus three")
	assert.True(t, p.DiedToFatigue)

	damaged := 0
	for _, ev := range st.Events {
		if ev.Type == EventPlayerDamaged {
			damaged++
			assert.Equal(t, "fatigue", ev.Source)
			assert.Equal(t, damaged, ev.Amount)
		}
	}
	assert.Equal(t, 3, damaged)
}

func TestOverdrawBurnsSilently(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	grunt, _ := catalog.Lookup("tst_grunt")
	for i := 0; i < MaxHandSize; i++ {
		st.Players[0].Hand = append(st.Players[0].Hand, grunt)
	}
	st.Players[0].Deck = []string{"tst_vanilla"}

	require.NoError(t, x.drawCards(0, 1))

	p := st.Players[0]
	assert.Len(t, p.Hand, MaxHandSize)
	assert.Empty(t, p.Deck, "the burned card still leaves the deck")
	assert.Empty(t, st.Events, "burning is not a draw event")
}

func TestBattlecryDamagesChosenTarget(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 3)
	vanilla := h.addCreature(1, "tst_vanilla", false)
	idx := h.giveCard(0, "tst_firecaller")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: vanilla})

	v := findInState(st, vanilla)
	require.NotNil(t, v)
	assert.Equal(t, 2, v.Health)
	assert.Equal(t, 0, st.Players[0].Mana)
}

func TestSpellKillEmitsDeathEvent(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	vanilla := h.addCreature(1, "tst_vanilla", false)
	idx := h.giveCard(0, "tst_bolt")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: vanilla})

	assert.Nil(t, findInState(st, vanilla))
	died := h.eventsOfType(EventCreatureDied)
	require.Len(t, died, 1)
	assert.Equal(t, vanilla, died[0].InstanceID)
	assert.Equal(t, "tst_vanilla", died[0].CardID)
}

func TestAreaDamageHitsBothBoards(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 5)
	grunt := h.addCreature(0, "tst_grunt", false)
	vanilla := h.addCreature(1, "tst_vanilla", false)
	token := h.addCreature(1, "tst_token", false)
	idx := h.giveCard(0, "tst_nuke")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx})

	assert.Nil(t, findInState(st, grunt), "own creatures are not spared")
	assert.Nil(t, findInState(st, token))
	v := findInState(st, vanilla)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.Health)
}

func TestDeathrattleDrawsCard(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	rattler := h.addCreature(1, "tst_rattler", false)
	idx := h.giveCard(0, "tst_bolt")

	before := len(h.player(1).Hand)
	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: rattler})

	assert.Nil(t, findInState(st, rattler))
	assert.Len(t, st.Players[1].Hand, before+1, "deathrattle draws for its owner")
}

func TestChainedDeathrattleSummons(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	chain := h.addCreature(1, "tst_chainrattler", false)
	h.modCreature(chain, func(c *Creature) { c.Health = 3 })
	idx := h.giveCard(0, "tst_bolt")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: chain})

	assert.Nil(t, findInState(st, chain))
	require.Len(t, st.Players[1].Board, 2)
	for _, c := range st.Players[1].Board {
		assert.Equal(t, "tst_token", c.CardID)
	}
}

func TestDeathrattleSummonDropsOnFullBoard(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	chain := h.addCreature(1, "tst_chainrattler", false)
	h.modCreature(chain, func(c *Creature) { c.Health = 3 })
	for i := 0; i < MaxBoardSize-1; i++ {
		h.addCreature(1, "tst_vanilla", false)
	}
	idx := h.giveCard(0, "tst_bolt")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: chain})

	// Six survivors plus one token; the second token found no room.
	assert.Len(t, st.Players[1].Board, MaxBoardSize)
}

func TestSilenceStripsKeywordsAndAbilities(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 1)
	wall := h.addCreature(1, "tst_taunt", false)
	h.modCreature(wall, func(c *Creature) {
		c.Abilities = append(c.Abilities, cards.Ability{
			Trigger: cards.TriggerDeathrattle,
			Effects: []cards.Effect{{Op: cards.EffectDrawCard}},
		})
	})
	idx := h.giveCard(0, "tst_silence")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: wall})

	w := findInState(st, wall)
	require.NotNil(t, w)
	assert.True(t, w.Silenced)
	assert.Empty(t, w.Keywords)
	assert.Empty(t, w.Abilities)
	assert.Equal(t, 1, w.Attack, "stats survive a silence")
	assert.Equal(t, 4, w.Health)

	// With the taunt gone, face attacks are legal again.
	grunt := h.addCreature(0, "tst_grunt", true)
	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})
}

func TestHealCapsAtMaxHealth(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	h.setHealth(0, 28)
	idx := h.giveCard(0, "tst_heal")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx})

	assert.Equal(t, StartingHealth, st.Players[0].Health)
	healed := h.eventsOfType(EventPlayerHealed)
	require.Len(t, healed, 1)
	assert.Equal(t, 2, healed[0].Amount, "events record the effective amount")
}

func TestBuffRaisesStatsPermanently(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	grunt := h.addCreature(0, "tst_grunt", false)
	idx := h.giveCard(0, "tst_warcry")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: grunt})

	g := findInState(st, grunt)
	require.NotNil(t, g)
	assert.Equal(t, 4, g.Attack)
	assert.Equal(t, 3, g.Health)
	assert.Equal(t, 3, g.MaxHealth)
	assert.Empty(t, g.TempEffects, "no duration means permanent")
}

func TestTemporaryBuffExpiresAtEndOfTurn(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	grunt, _ := catalog.Lookup("tst_grunt")
	g := spawn(st, 0, grunt)

	eff := cards.Effect{Op: cards.EffectBuffAttack, Amount: 3, Target: cards.TargetFriendlyCreature, Duration: 1}
	ab := cards.Ability{Trigger: cards.TriggerBattlecry, Effects: []cards.Effect{eff}}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, g.InstanceID))
	assert.Equal(t, 5, g.Attack)

	x.expireTempEffects(g)
	assert.Equal(t, 2, g.Attack)
	assert.Empty(t, g.TempEffects)
}

func TestTemporaryHealthBuffExpires(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	vanilla, _ := catalog.Lookup("tst_vanilla") // 2/3
	v := spawn(st, 0, vanilla)

	eff := cards.Effect{Op: cards.EffectBuffHealth, Amount: 2, Target: cards.TargetFriendlyCreature, Duration: 1}
	ab := cards.Ability{Trigger: cards.TriggerBattlecry, Effects: []cards.Effect{eff}}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, v.InstanceID))
	assert.Equal(t, 5, v.Health)
	assert.Equal(t, 5, v.MaxHealth)

	x.damageCreature(v, 1)
	require.NoError(t, x.reap())
	x.expireTempEffects(v)

	assert.Equal(t, 3, v.MaxHealth)
	assert.Equal(t, 3, v.Health, "health clamps to the reverted maximum")
	assert.Empty(t, v.TempEffects)
}

func TestTemporaryKeywordExpires(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	grunt, _ := catalog.Lookup("tst_grunt")
	g := spawn(st, 0, grunt)

	eff := cards.Effect{Op: cards.EffectGiveKeyword, Keyword: cards.KeywordTaunt, Target: cards.TargetFriendlyCreature, Duration: 2}
	ab := cards.Ability{Trigger: cards.TriggerBattlecry, Effects: []cards.Effect{eff}}
	require.NoError(t, x.applyAbility(0, "test_spell", "", ab, g.InstanceID))
	assert.True(t, g.HasKeyword(cards.KeywordTaunt))

	x.expireTempEffects(g)
	assert.True(t, g.HasKeyword(cards.KeywordTaunt), "still one turn left")
	x.expireTempEffects(g)
	assert.False(t, g.HasKeyword(cards.KeywordTaunt))
}

func TestMutualOnDamageTriggersHitCascadeCap(t *testing.T) {
	st := bareState()
	x := bareResolution(t, st)

	catalog := testCatalog(t)
	vanilla, _ := catalog.Lookup("tst_vanilla")
	a := spawn(st, 0, vanilla)
	b := spawn(st, 1, vanilla)

	// Each creature re-heals to full and pings the other whenever it takes
	// damage, so health never approaches a floor and the exchange can only
	// stop at the iteration cap.
	ping := cards.Ability{
		Trigger: cards.TriggerOnDamage,
		Effects: []cards.Effect{
			{Op: cards.EffectHeal, Amount: 5, Target: cards.TargetSelf},
			{Op: cards.EffectDamage, Amount: 1, Target: cards.TargetEnemyCreature},
		},
	}
	a.Abilities = append(a.Abilities, ping)
	b.Abilities = append(b.Abilities, ping)

	x.damageCreature(b, 1)
	err := x.reap()
	require.ErrorIs(t, err, errCascadeOverflow, "the cap must count on-damage triggers")
}

func TestDestroyRemovesAnyCreature(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 4)
	big := h.addCreature(1, "tst_bigvanilla", false)
	idx := h.giveCard(0, "tst_execute")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: big})

	assert.Nil(t, findInState(st, big))
	assert.Len(t, h.eventsOfType(EventCreatureDied), 1)
}

func TestDivineShieldBlocksSpellDamage(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	shield := h.addCreature(1, "tst_shield", false)
	idx := h.giveCard(0, "tst_bolt")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx, TargetID: shield})

	s := findInState(st, shield)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Health)
	assert.False(t, s.HasKeyword(cards.KeywordDivineShield))
}

func TestHeroPowerOncePerTurn(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 5)

	st := h.mustAct(h.p1, Action{Type: ActionHeroPower})
	assert.Equal(t, StartingHealth-1, st.Players[1].Health)
	assert.Equal(t, 3, st.Players[0].Mana)
	assert.True(t, st.Players[0].HeroPowerUsed)

	h.expectReject(h.p1, Action{Type: ActionHeroPower}, ReasonHeroPowerUsed)
}

func TestHeroPowerNeedsMana(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 1)
	h.expectReject(h.p1, Action{Type: ActionHeroPower}, ReasonInsufficientMana)
}

func TestHeroPowerResetsNextTurn(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 2)
	h.mustAct(h.p1, Action{Type: ActionHeroPower})
	h.mustAct(h.p1, Action{Type: ActionEndTurn})
	h.mustAct(h.p2, Action{Type: ActionEndTurn})

	st := h.state()
	assert.False(t, st.Players[0].HeroPowerUsed)
	st = h.mustAct(h.p1, Action{Type: ActionHeroPower})
	assert.Equal(t, StartingHealth-2, st.Players[1].Health)
}
