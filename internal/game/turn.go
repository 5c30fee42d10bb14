package game

import (
	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

// theCoin is the mana-accelerant token granted to the second player after
// the mulligan. It is a fixed game rule, not catalog content.
var theCoin = cards.CardDefinition{
	ID:     "the_coin",
	Name:   "The Coin",
	Cost:   0,
	Type:   cards.TypeSpell,
	Rarity: cards.RarityFree,
	Abilities: []cards.Ability{{
		Trigger: cards.TriggerBattlecry,
		Effects: []cards.Effect{{Op: cards.EffectGainMana, Amount: 1}},
	}},
}

// applyAction dispatches one main-phase action. Callers have already checked
// phase and turn ownership. Any returned *ActionRejectedError means the
// working state must be discarded untouched.
func (x *resolution) applyAction(player int, action Action) error {
	switch action.Type {
	case ActionPlayCard:
		return x.playCard(player, action)
	case ActionAttack:
		return x.attack(player, action)
	case ActionHeroPower:
		return x.useHeroPower(player, action)
	case ActionEndTurn:
		return x.endTurn(player)
	case ActionConcede:
		x.concede(player)
		return nil
	default:
		return reject(ReasonUnknownAction, "unknown action type %q", action.Type)
	}
}

// resolveMulligans finalizes both players' mulligan choices: replaced cards
// return to the deck, the deck is reshuffled, replacements are drawn, the
// second player receives The Coin, and the first turn starts.
func (x *resolution) resolveMulligans(choices [2][]int) error {
	for idx, p := range x.st.Players {
		replace := choices[idx]
		if len(replace) == 0 {
			continue
		}
		chosen := make(map[int]bool, len(replace))
		for _, handIdx := range replace {
			chosen[handIdx] = true
		}
		kept := p.Hand[:0]
		returned := 0
		for i, card := range p.Hand {
			if chosen[i] {
				p.Deck = append(p.Deck, card.ID)
				returned++
			} else {
				kept = append(kept, card)
			}
		}
		p.Hand = kept
		x.rng.Shuffle(len(p.Deck), func(i, j int) {
			p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
		})
		for i := 0; i < returned; i++ {
			cardID := p.Deck[0]
			p.Deck = p.Deck[1:]
			def, err := x.catalog.Lookup(cardID)
			if err != nil {
				return err
			}
			p.Hand = append(p.Hand, def)
		}
	}

	x.st.Players[1].Hand = append(x.st.Players[1].Hand, theCoin)

	return x.startTurn(0)
}

// startTurn runs the start-of-turn sequence for the given player and leaves
// the state in the main phase.
func (x *resolution) startTurn(player int) error {
	st := x.st
	st.Phase = PhaseStartTurn
	st.Turn++
	st.Active = player

	p := st.Players[player]
	if p.MaxMana < MaxMana {
		p.MaxMana++
	}
	p.Mana = p.MaxMana
	p.HeroPowerUsed = false
	p.HeroAttacked = false
	for _, c := range p.Board {
		c.AttacksThisTurn = 0
		c.HasAttacked = false
		c.CanAttack = true // summoning sickness clears
	}

	if err := x.drawCards(player, 1); err != nil {
		return err
	}

	// Start-of-turn abilities fire in board order. Iterate a snapshot of
	// instance ids; a trigger may remove later creatures.
	for _, id := range boardInstanceIDs(p) {
		owner, pos, ok := st.locateCreature(id)
		if !ok || owner != player {
			continue
		}
		c := st.Players[owner].Board[pos]
		if err := x.fireCreatureTrigger(cards.TriggerStartOfTurn, owner, c, ""); err != nil {
			return err
		}
	}
	if err := x.reap(); err != nil {
		return err
	}

	st.appendEvent(GameEvent{Type: EventTurnStarted, PlayerID: p.PlayerID})
	st.Phase = PhaseMain
	return nil
}

// endTurn runs the end-of-turn sequence and hands the next turn to the
// opponent, unless a win condition already fired.
func (x *resolution) endTurn(player int) error {
	st := x.st
	st.Phase = PhaseEndTurn
	p := st.Players[player]

	for _, id := range boardInstanceIDs(p) {
		owner, pos, ok := st.locateCreature(id)
		if !ok || owner != player {
			continue
		}
		c := st.Players[owner].Board[pos]
		if err := x.fireCreatureTrigger(cards.TriggerEndOfTurn, owner, c, ""); err != nil {
			return err
		}
	}
	if err := x.reap(); err != nil {
		return err
	}

	for _, c := range p.Board {
		x.expireTempEffects(c)
	}

	st.appendEvent(GameEvent{Type: EventTurnEnded, PlayerID: p.PlayerID})

	checkWin(st)
	if st.Over() {
		return nil
	}
	return x.startTurn(1 - player)
}

// expireTempEffects decrements countdowns and reverts effects that reach
// zero.
func (x *resolution) expireTempEffects(c *Creature) {
	kept := c.TempEffects[:0]
	for _, te := range c.TempEffects {
		te.TurnsLeft--
		if te.TurnsLeft > 0 {
			kept = append(kept, te)
			continue
		}
		switch te.Op {
		case cards.EffectBuffAttack:
			c.Attack -= te.Amount
			if c.Attack < 0 {
				c.Attack = 0
			}
		case cards.EffectBuffHealth:
			c.MaxHealth -= te.Amount
			if c.MaxHealth < 1 {
				c.MaxHealth = 1
			}
			if c.Health > c.MaxHealth {
				c.Health = c.MaxHealth
			}
		case cards.EffectGiveKeyword:
			delete(c.Keywords, te.Keyword)
		}
	}
	c.TempEffects = kept
}

// playCard validates and plays one card from the hand: creatures enter the
// board, spells resolve their on-play abilities, weapons equip. Battlecries
// fire with the explicitly chosen target, if any.
func (x *resolution) playCard(player int, action Action) error {
	p := x.st.Players[player]
	if action.HandIndex < 0 || action.HandIndex >= len(p.Hand) {
		return reject(ReasonInvalidCard, "hand index %d out of range", action.HandIndex)
	}
	def := p.Hand[action.HandIndex]
	if def.Cost > p.Mana {
		return reject(ReasonInsufficientMana, "%s costs %d, have %d mana", def.ID, def.Cost, p.Mana)
	}
	if def.Type == cards.TypeCreature && len(p.Board) >= MaxBoardSize {
		return reject(ReasonBoardFull, "board already holds %d creatures", MaxBoardSize)
	}
	if action.TargetID != "" {
		if err := x.checkChosenTarget(player, def.AbilitiesFor(cards.TriggerBattlecry), action.TargetID); err != nil {
			return err
		}
	}

	p.Hand = append(p.Hand[:action.HandIndex], p.Hand[action.HandIndex+1:]...)
	p.Mana -= def.Cost
	x.st.appendEvent(GameEvent{
		Type:     EventCardPlayed,
		PlayerID: p.PlayerID,
		CardID:   def.ID,
		TargetID: action.TargetID,
	})

	switch def.Type {
	case cards.TypeCreature:
		c := newCreature(def, x.st.nextInstanceID())
		p.Board = append(p.Board, c)
		if err := x.fireCreatureTrigger(cards.TriggerBattlecry, player, c, action.TargetID); err != nil {
			return err
		}
	case cards.TypeSpell:
		for _, ab := range def.AbilitiesFor(cards.TriggerBattlecry) {
			if err := x.applyAbility(player, def.ID, "", ab, action.TargetID); err != nil {
				return err
			}
		}
	case cards.TypeWeapon:
		p.Weapon = &Weapon{
			CardID:     def.ID,
			Name:       def.Name,
			Attack:     def.Attack,
			Durability: def.Durability,
		}
		for _, ab := range def.AbilitiesFor(cards.TriggerBattlecry) {
			if err := x.applyAbility(player, def.ID, "", ab, action.TargetID); err != nil {
				return err
			}
		}
	}

	return x.reap()
}

// checkChosenTarget verifies that an explicitly chosen target exists, is
// alive, and is eligible for at least one selector in the abilities that
// will consume it. Rejecting here keeps an illegal choice from spending
// mana and a card on a guaranteed no-op.
func (x *resolution) checkChosenTarget(player int, abilities []cards.Ability, targetID string) error {
	isHero := x.st.playerIndex(targetID) >= 0
	creatureOwner := -1
	if !isHero {
		owner, pos, ok := x.st.locateCreature(targetID)
		if !ok || x.st.Players[owner].Board[pos].Dead() {
			return reject(ReasonInvalidTarget, "target %s not found", targetID)
		}
		creatureOwner = owner
	}

	// A card with no chooser-consuming selector ignores the chosen target,
	// so any live entity passes.
	chooses := false
	for _, ab := range abilities {
		for _, eff := range ab.Effects {
			switch eff.Target {
			case cards.TargetAnyCreature:
				if !isHero {
					return nil
				}
				chooses = true
			case cards.TargetFriendlyCreature:
				if creatureOwner == player {
					return nil
				}
				chooses = true
			case cards.TargetEnemyCreature:
				if creatureOwner == 1-player {
					return nil
				}
				chooses = true
			}
		}
	}
	if chooses {
		return reject(ReasonInvalidTarget, "target %s is not eligible", targetID)
	}
	return nil
}

// useHeroPower resolves the player's hero power, once per turn for its mana
// cost.
func (x *resolution) useHeroPower(player int, action Action) error {
	p := x.st.Players[player]
	if p.HeroPower == nil {
		return reject(ReasonNoHeroPower, "player %s has no hero power", p.PlayerID)
	}
	if p.HeroPowerUsed {
		return reject(ReasonHeroPowerUsed, "hero power already used this turn")
	}
	if p.HeroPower.Cost > p.Mana {
		return reject(ReasonInsufficientMana, "hero power costs %d, have %d mana", p.HeroPower.Cost, p.Mana)
	}
	ability := cards.Ability{Trigger: cards.TriggerBattlecry, Effects: p.HeroPower.Effects}
	if action.TargetID != "" {
		if err := x.checkChosenTarget(player, []cards.Ability{ability}, action.TargetID); err != nil {
			return err
		}
	}

	p.Mana -= p.HeroPower.Cost
	p.HeroPowerUsed = true
	x.logger.Debug("hero power used",
		zap.String("player", p.PlayerID),
		zap.String("power", p.HeroPower.Name),
	)

	if err := x.applyAbility(player, "hero_power", "", ability, action.TargetID); err != nil {
		return err
	}
	return x.reap()
}

// concede ends the match in the opponent's favor. Host-signaled abandons
// route through here as well.
func (x *resolution) concede(player int) {
	st := x.st
	if st.Over() {
		return
	}
	winner := st.Players[1-player]
	st.Winner = winner.PlayerID
	st.WinReason = WinConceded
	st.Phase = PhaseGameOver
	st.appendEvent(GameEvent{
		Type:      EventGameEnded,
		PlayerID:  st.Players[player].PlayerID,
		Winner:    winner.PlayerID,
		WinReason: WinConceded,
	})
}

func boardInstanceIDs(p *PlayerState) []string {
	ids := make([]string, len(p.Board))
	for i, c := range p.Board {
		ids[i] = c.InstanceID
	}
	return ids
}
