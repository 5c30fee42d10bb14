package game

import (
	"github.com/openduel/duel-server-go/internal/game/cards"
)

// attack resolves one attack action: a creature or the hero (via weapon)
// against an enemy creature or the enemy hero. Legality is checked first;
// a rejection leaves the working state untouched.
func (x *resolution) attack(player int, action Action) error {
	st := x.st
	attacker := st.Players[player]
	defender := st.Players[1-player]

	// Face attack when no defender was named or the enemy hero was.
	faceAttack := action.DefenderID == "" || action.DefenderID == defender.PlayerID

	var defCreature *Creature
	if !faceAttack {
		owner, pos, ok := st.locateCreature(action.DefenderID)
		if !ok || owner != 1-player {
			return reject(ReasonInvalidTarget, "defender %s not found on enemy board", action.DefenderID)
		}
		defCreature = defender.Board[pos]
		if defCreature.Dead() {
			return reject(ReasonInvalidTarget, "defender %s is dead", action.DefenderID)
		}
	}

	// Taunt gating: while the defender controls a live Taunt creature, only
	// Taunt creatures are legal targets.
	if defender.hasTaunt() {
		if faceAttack || !defCreature.HasKeyword(cards.KeywordTaunt) {
			return reject(ReasonTauntInWay, "attacks must target a taunt creature")
		}
	}

	if action.AttackerID == attacker.PlayerID {
		return x.heroAttack(player, defCreature)
	}
	return x.creatureAttack(player, action.AttackerID, defCreature)
}

// creatureAttack resolves a creature-initiated attack.
func (x *resolution) creatureAttack(player int, attackerID string, defCreature *Creature) error {
	st := x.st
	owner, pos, ok := st.locateCreature(attackerID)
	if !ok || owner != player {
		return reject(ReasonInvalidTarget, "attacker %s not found on own board", attackerID)
	}
	atk := st.Players[player].Board[pos]
	if !atk.CanAttack {
		return reject(ReasonCannotAttack, "%s cannot attack this turn", atk.Name)
	}
	if atk.HasAttacked || atk.AttacksThisTurn >= atk.attackLimit() {
		return reject(ReasonAlreadyAttacked, "%s has already attacked", atk.Name)
	}
	if atk.Attack <= 0 {
		return reject(ReasonCannotAttack, "%s has no attack", atk.Name)
	}

	defenderLabel := st.Players[1-player].PlayerID
	if defCreature != nil {
		defenderLabel = defCreature.InstanceID
	}
	st.appendEvent(GameEvent{
		Type:       EventCreatureAttacked,
		PlayerID:   st.Players[player].PlayerID,
		InstanceID: atk.InstanceID,
		TargetID:   defenderLabel,
		Amount:     atk.Attack,
	})

	if err := x.fireCreatureTrigger(cards.TriggerOnAttack, player, atk, ""); err != nil {
		return err
	}
	x.collectDead()

	// The attack is spent even if triggers removed a participant.
	atk.AttacksThisTurn++
	atk.HasAttacked = atk.AttacksThisTurn >= atk.attackLimit()

	if _, _, alive := st.locateCreature(atk.InstanceID); !alive || atk.Dead() {
		return x.reap()
	}

	if defCreature == nil {
		dealt := atk.Attack
		x.damagePlayer(1-player, dealt, "combat", false)
		if atk.HasKeyword(cards.KeywordLifesteal) {
			x.healPlayer(player, dealt, "combat")
		}
		return x.reap()
	}

	if _, _, alive := st.locateCreature(defCreature.InstanceID); !alive || defCreature.Dead() {
		// Triggers killed the defender before damage; the attack fizzles.
		return x.reap()
	}

	x.exchangeDamage(player, atk, 1-player, defCreature)
	return x.reap()
}

// heroAttack resolves a weapon swing by the hero. The defending creature
// strikes the hero back; a face attack draws no retaliation.
func (x *resolution) heroAttack(player int, defCreature *Creature) error {
	st := x.st
	p := st.Players[player]
	if p.Weapon == nil {
		return reject(ReasonNoWeapon, "hero has no weapon equipped")
	}
	if p.HeroAttacked {
		return reject(ReasonAlreadyAttacked, "hero has already attacked this turn")
	}

	defenderLabel := st.Players[1-player].PlayerID
	if defCreature != nil {
		defenderLabel = defCreature.InstanceID
	}
	st.appendEvent(GameEvent{
		Type:     EventCreatureAttacked,
		PlayerID: p.PlayerID,
		TargetID: defenderLabel,
		Amount:   p.Weapon.Attack,
	})

	p.HeroAttacked = true
	swing := p.Weapon.Attack

	if defCreature == nil {
		x.damagePlayer(1-player, swing, "combat", false)
	} else {
		x.damageCreature(defCreature, swing)
		strike := defCreature.Attack
		x.damagePlayer(player, strike, "combat", false)
		if defCreature.HasKeyword(cards.KeywordLifesteal) && strike > 0 {
			x.healPlayer(1-player, strike, "combat")
		}
	}

	p.Weapon.Durability--
	if p.Weapon.Durability <= 0 {
		p.Weapon = nil
	}
	return x.reap()
}

// exchangeDamage applies the simultaneous combat exchange between two
// creatures: both deal their attack to the other, Divine Shield absorbs a
// whole instance, Lifesteal heals the owning player by the damage actually
// dealt, and Poisonous marks any creature it damaged for destruction
// regardless of amount.
func (x *resolution) exchangeDamage(atkOwner int, atk *Creature, defOwner int, def *Creature) {
	atkSwing := atk.Attack
	defSwing := def.Attack

	dealtToDef := x.damageCreature(def, atkSwing)
	dealtToAtk := x.damageCreature(atk, defSwing)

	if atk.HasKeyword(cards.KeywordLifesteal) {
		x.healPlayer(atkOwner, dealtToDef, "combat")
	}
	if def.HasKeyword(cards.KeywordLifesteal) {
		x.healPlayer(defOwner, dealtToAtk, "combat")
	}
	if atk.HasKeyword(cards.KeywordPoisonous) && dealtToDef > 0 {
		def.Destroyed = true
	}
	if def.HasKeyword(cards.KeywordPoisonous) && dealtToAtk > 0 {
		atk.Destroyed = true
	}
}
