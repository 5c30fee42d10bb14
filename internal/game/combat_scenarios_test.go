package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

func TestAttackFaceDealsAttackDamage(t *testing.T) {
	h := newMatchHarness(t)
	grunt := h.addCreature(0, "tst_grunt", true)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})

	assert.Equal(t, StartingHealth-2, st.Players[1].Health)

	damaged := h.eventsOfType(EventPlayerDamaged)
	require.Len(t, damaged, 1)
	assert.Equal(t, h.p2, damaged[0].PlayerID)
	assert.Equal(t, 2, damaged[0].Amount)
	assert.Equal(t, "combat", damaged[0].Source)
}

func TestTauntGatesAttacks(t *testing.T) {
	h := newMatchHarness(t)
	grunt := h.addCreature(0, "tst_grunt", true)
	wall := h.addCreature(1, "tst_taunt", false)
	vanilla := h.addCreature(1, "tst_vanilla", false)

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: grunt}, ReasonTauntInWay)
	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: grunt, DefenderID: vanilla}, ReasonTauntInWay)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt, DefenderID: wall})
	w := findInState(st, wall)
	require.NotNil(t, w)
	assert.Equal(t, 2, w.Health)
}

func TestTauntLiftsWhenLastTauntDies(t *testing.T) {
	h := newMatchHarness(t)
	big := h.addCreature(0, "tst_bigvanilla", true)
	grunt := h.addCreature(0, "tst_grunt", true)
	wall := h.addCreature(1, "tst_taunt", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: big, DefenderID: wall})
	require.Nil(t, findInState(st, wall))

	st = h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})
	assert.Equal(t, StartingHealth-2, st.Players[1].Health)
}

func TestDivineShieldAbsorbsOneInstanceWhole(t *testing.T) {
	h := newMatchHarness(t)
	big := h.addCreature(0, "tst_bigvanilla", true)
	shield := h.addCreature(1, "tst_shield", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: big, DefenderID: shield})

	s := findInState(st, shield)
	require.NotNil(t, s, "shield should absorb the full five damage")
	assert.Equal(t, 2, s.Health, "no damage leaks through the shield")
	assert.False(t, s.HasKeyword(cards.KeywordDivineShield), "shield is consumed")

	b := findInState(st, big)
	require.NotNil(t, b)
	assert.Equal(t, 2, b.Health, "defender still strikes back")
}

func TestDivineShieldAbsorbsSmallHitIdentically(t *testing.T) {
	h := newMatchHarness(t)
	token := h.addCreature(0, "tst_token", true)
	shield := h.addCreature(1, "tst_shield", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: token, DefenderID: shield})

	s := findInState(st, shield)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Health)
	assert.False(t, s.HasKeyword(cards.KeywordDivineShield))
}

func TestPoisonousDestroysRegardlessOfHealth(t *testing.T) {
	h := newMatchHarness(t)
	viper := h.addCreature(0, "tst_poison", true)
	h.modCreature(viper, func(c *Creature) {
		c.Attack = 3
		c.Health = 3
		c.MaxHealth = 3
	})
	big := h.addCreature(1, "tst_bigvanilla", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: viper, DefenderID: big})

	assert.Nil(t, findInState(st, viper), "viper dies to the counterattack")
	assert.Nil(t, findInState(st, big), "poison destroys the survivor")
	assert.Empty(t, h.eventsOfType(EventPlayerDamaged), "creature combat never touches heroes")
	assert.Len(t, h.eventsOfType(EventCreatureDied), 2)
}

func TestPoisonousBlockedByDivineShield(t *testing.T) {
	h := newMatchHarness(t)
	viper := h.addCreature(0, "tst_poison", true)
	shield := h.addCreature(1, "tst_shield", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: viper, DefenderID: shield})

	s := findInState(st, shield)
	require.NotNil(t, s, "no damage dealt, so poison does not mark")
	assert.Equal(t, 2, s.Health)
}

func TestLifestealHealsByDamageDealt(t *testing.T) {
	h := newMatchHarness(t)
	h.setHealth(0, 20)
	leech := h.addCreature(0, "tst_lifesteal", true)
	vanilla := h.addCreature(1, "tst_vanilla", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: leech, DefenderID: vanilla})

	assert.Equal(t, 23, st.Players[0].Health)
	healed := h.eventsOfType(EventPlayerHealed)
	require.Len(t, healed, 1)
	assert.Equal(t, h.p1, healed[0].PlayerID)
	assert.Equal(t, 3, healed[0].Amount)
}

func TestLifestealFaceHitHealsToo(t *testing.T) {
	h := newMatchHarness(t)
	h.setHealth(0, 20)
	leech := h.addCreature(0, "tst_lifesteal", true)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: leech})

	assert.Equal(t, 23, st.Players[0].Health)
	assert.Equal(t, StartingHealth-3, st.Players[1].Health)
}

func TestWindfuryAllowsTwoAttacks(t *testing.T) {
	h := newMatchHarness(t)
	harpy := h.addCreature(0, "tst_windfury", true)

	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: harpy})
	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: harpy})
	assert.Equal(t, StartingHealth-6, st.Players[1].Health)

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: harpy}, ReasonAlreadyAttacked)
}

func TestSingleAttackPerTurnWithoutWindfury(t *testing.T) {
	h := newMatchHarness(t)
	grunt := h.addCreature(0, "tst_grunt", true)

	h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt})
	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: grunt}, ReasonAlreadyAttacked)
}

func TestSummoningSicknessBlocksNewCreatures(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 5)
	idx := h.giveCard(0, "tst_vanilla")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx})
	played := st.Players[0].Board[len(st.Players[0].Board)-1]

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: played.InstanceID}, ReasonCannotAttack)
}

func TestChargeAttacksTheTurnItArrives(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 5)
	idx := h.giveCard(0, "tst_charge")

	st := h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx})
	played := st.Players[0].Board[len(st.Players[0].Board)-1]

	st = h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: played.InstanceID})
	assert.Equal(t, StartingHealth-3, st.Players[1].Health)
}

func TestZeroAttackCreatureCannotAttack(t *testing.T) {
	h := newMatchHarness(t)
	wall := h.addCreature(0, "tst_taunt", true)
	h.modCreature(wall, func(c *Creature) { c.Attack = 0 })

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: wall}, ReasonCannotAttack)
}

func TestAttackingWithEnemyCreatureRejected(t *testing.T) {
	h := newMatchHarness(t)
	enemy := h.addCreature(1, "tst_grunt", true)

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: enemy}, ReasonInvalidTarget)
}

func TestHeroWeaponAttack(t *testing.T) {
	h := newMatchHarness(t)
	h.setMana(0, 3)
	idx := h.giveCard(0, "tst_axe")
	h.mustAct(h.p1, Action{Type: ActionPlayCard, HandIndex: idx})

	vanilla := h.addCreature(1, "tst_vanilla", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: h.p1, DefenderID: vanilla})

	assert.Nil(t, findInState(st, vanilla), "axe kills the two-three")
	assert.Equal(t, StartingHealth-2, st.Players[0].Health, "defender strikes the hero back")
	require.NotNil(t, st.Players[0].Weapon)
	assert.Equal(t, 1, st.Players[0].Weapon.Durability)

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: h.p1}, ReasonAlreadyAttacked)
}

func TestWeaponBreaksAtZeroDurability(t *testing.T) {
	h := newMatchHarness(t)
	h.mutate(func(st *GameState) {
		st.Players[0].Weapon = &Weapon{CardID: "tst_axe", Name: "Axe", Attack: 3, Durability: 1}
	})

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: h.p1})

	assert.Equal(t, StartingHealth-3, st.Players[1].Health)
	assert.Nil(t, st.Players[0].Weapon)
}

func TestLifestealDefenderHealsOnHeroAttack(t *testing.T) {
	h := newMatchHarness(t)
	h.setHealth(1, 20)
	leech := h.addCreature(1, "tst_lifesteal", false)
	h.mutate(func(st *GameState) {
		st.Players[0].Weapon = &Weapon{CardID: "tst_axe", Name: "Axe", Attack: 1, Durability: 2}
	})

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: h.p1, DefenderID: leech})

	assert.Equal(t, 23, st.Players[1].Health, "the strike-back heals the defender's owner")
	assert.Equal(t, StartingHealth-3, st.Players[0].Health)
	l := findInState(st, leech)
	require.NotNil(t, l)
	assert.Equal(t, 2, l.Health)

	healed := h.eventsOfType(EventPlayerHealed)
	require.Len(t, healed, 1)
	assert.Equal(t, h.p2, healed[0].PlayerID)
	assert.Equal(t, 3, healed[0].Amount)
}

func TestHeroFaceAttackDrawsNoRetaliation(t *testing.T) {
	h := newMatchHarness(t)
	h.mutate(func(st *GameState) {
		st.Players[0].Weapon = &Weapon{CardID: "tst_axe", Name: "Axe", Attack: 3, Durability: 2}
	})

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: h.p1})
	assert.Equal(t, StartingHealth, st.Players[0].Health)
}

func TestHeroAttackWithoutWeaponRejected(t *testing.T) {
	h := newMatchHarness(t)
	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: h.p1}, ReasonNoWeapon)
}

func TestOnAttackTriggerFiresBeforeDamage(t *testing.T) {
	h := newMatchHarness(t)
	grunt := h.addCreature(0, "tst_grunt", true)
	h.modCreature(grunt, func(c *Creature) {
		c.Abilities = append(c.Abilities, cards.Ability{
			Trigger: cards.TriggerOnAttack,
			Effects: []cards.Effect{{Op: cards.EffectDamage, Amount: 5, Target: cards.TargetAllCreatures}},
		})
	})
	vanilla := h.addCreature(1, "tst_vanilla", false)

	st := h.mustAct(h.p1, Action{Type: ActionAttack, AttackerID: grunt, DefenderID: vanilla})

	assert.Nil(t, findInState(st, grunt), "trigger kills the attacker too")
	assert.Nil(t, findInState(st, vanilla))
	assert.Empty(t, h.eventsOfType(EventPlayerDamaged), "the attack itself fizzled")
}

func TestUnknownDefenderRejected(t *testing.T) {
	h := newMatchHarness(t)
	grunt := h.addCreature(0, "tst_grunt", true)

	h.expectReject(h.p1, Action{Type: ActionAttack, AttackerID: grunt, DefenderID: "c-999"}, ReasonInvalidTarget)
}
