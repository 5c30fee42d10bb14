package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/game/rng"
)

// errCascadeOverflow is raised when triggered abilities keep chaining past
// the hard iteration cap, which only malformed card content can cause.
var errCascadeOverflow = fmt.Errorf("trigger cascade exceeded %d iterations", maxCascadeIterations)

// entityRef names a damageable entity: a hero (creature == "") or a board
// creature instance on either side.
type entityRef struct {
	player   int
	creature string
}

// pendingTrigger is a queued triggered ability waiting for resolution. A
// deathrattle's source has already left the board, so the snapshot carries
// what the abilities need.
type pendingTrigger struct {
	owner      int
	sourceCard string
	sourceInst string
	abilities  []cards.Ability
}

// resolution is the working context for one action: it mutates a cloned
// GameState and collects events. The engine commits the clone only when the
// whole action resolves, so a failure never leaves partial application.
type resolution struct {
	st      *GameState
	rng     rng.Source
	catalog cards.Catalog
	logger  *zap.Logger
	pending []pendingTrigger
}

func newResolution(st *GameState, source rng.Source, catalog cards.Catalog, logger *zap.Logger) *resolution {
	return &resolution{st: st, rng: source, catalog: catalog, logger: logger}
}

// fireCreatureTrigger runs all of a creature's abilities matching the
// trigger. Silenced creatures have no abilities left to fire.
func (x *resolution) fireCreatureTrigger(trigger cards.Trigger, owner int, c *Creature, chosenTarget string) error {
	for _, ab := range c.Abilities {
		if ab.Trigger != trigger {
			continue
		}
		if err := x.applyAbility(owner, c.CardID, c.InstanceID, ab, chosenTarget); err != nil {
			return err
		}
	}
	return nil
}

// applyAbility applies an ability's effects strictly in declaration order.
// Each effect re-resolves its target selector at execution time, so earlier
// effects in the same list change what later selectors match. Dead creatures
// are removed between effects; their deathrattles queue for the next reap.
func (x *resolution) applyAbility(owner int, sourceCard, sourceInst string, ab cards.Ability, chosenTarget string) error {
	for _, eff := range ab.Effects {
		if err := x.applyEffect(owner, sourceCard, sourceInst, eff, chosenTarget); err != nil {
			return err
		}
		x.collectDead()
	}
	return nil
}

// applyEffect executes a single effect. Selectors resolving to zero live
// entities are no-ops, not errors.
func (x *resolution) applyEffect(owner int, sourceCard, sourceInst string, eff cards.Effect, chosenTarget string) error {
	switch eff.Op {
	case cards.EffectDrawCard:
		return x.drawCards(owner, amountOrOne(eff.Amount))
	case cards.EffectGainMana:
		p := x.st.Players[owner]
		p.Mana += eff.Amount
		if p.Mana > MaxMana {
			p.Mana = MaxMana
		}
		return nil
	case cards.EffectSummonCreature:
		return x.summonByID(owner, eff.SummonID, amountOrOne(eff.Amount))
	}

	targets := x.resolveTargets(owner, sourceInst, eff.Target, chosenTarget)
	for _, ref := range targets {
		if err := x.applyToTarget(owner, sourceCard, eff, ref); err != nil {
			return err
		}
	}
	return nil
}

func (x *resolution) applyToTarget(owner int, sourceCard string, eff cards.Effect, ref entityRef) error {
	if ref.creature == "" {
		// Hero target. Creature-only operations ignore heroes.
		switch eff.Op {
		case cards.EffectDamage:
			x.damagePlayer(ref.player, eff.Amount, sourceCard, false)
		case cards.EffectHeal:
			x.healPlayer(ref.player, eff.Amount, sourceCard)
		}
		return nil
	}

	cOwner, pos, ok := x.st.locateCreature(ref.creature)
	if !ok {
		return nil // died earlier in the same list
	}
	c := x.st.Players[cOwner].Board[pos]

	switch eff.Op {
	case cards.EffectDamage:
		x.damageCreature(c, eff.Amount)
	case cards.EffectHeal:
		x.healCreature(c, eff.Amount)
	case cards.EffectDestroy:
		c.Destroyed = true
	case cards.EffectSilence:
		x.silence(c)
	case cards.EffectBuffAttack:
		c.Attack += eff.Amount
		if eff.Duration > 0 {
			c.TempEffects = append(c.TempEffects, TemporaryEffect{
				Op: cards.EffectBuffAttack, Amount: eff.Amount, TurnsLeft: eff.Duration,
			})
		}
	case cards.EffectBuffHealth:
		c.Health += eff.Amount
		c.MaxHealth += eff.Amount
		if eff.Duration > 0 {
			c.TempEffects = append(c.TempEffects, TemporaryEffect{
				Op: cards.EffectBuffHealth, Amount: eff.Amount, TurnsLeft: eff.Duration,
			})
		}
	case cards.EffectGiveKeyword:
		if !c.Keywords[eff.Keyword] {
			c.Keywords[eff.Keyword] = true
			if eff.Duration > 0 {
				c.TempEffects = append(c.TempEffects, TemporaryEffect{
					Op: cards.EffectGiveKeyword, Keyword: eff.Keyword, TurnsLeft: eff.Duration,
				})
			}
		}
	}
	return nil
}

// resolveTargets expands a selector against the current state. Selectors
// that designate a single creature use the explicitly chosen target when one
// was supplied; in triggered contexts with no chooser, an eligible creature
// is picked through the injected random source so replays stay exact.
func (x *resolution) resolveTargets(owner int, sourceInst string, target cards.Target, chosen string) []entityRef {
	enemy := 1 - owner
	switch target {
	case cards.TargetNone:
		return nil
	case cards.TargetSelf:
		// The source creature when one exists, otherwise the owner's hero.
		return []entityRef{{player: owner, creature: sourceInst}}
	case cards.TargetFriendlyHero:
		return []entityRef{{player: owner}}
	case cards.TargetEnemyHero:
		return []entityRef{{player: enemy}}
	case cards.TargetAnyCreature:
		return x.pickCreature(chosen, x.liveCreatures(owner), x.liveCreatures(enemy))
	case cards.TargetFriendlyCreature:
		return x.pickCreature(chosen, x.liveCreatures(owner))
	case cards.TargetEnemyCreature:
		return x.pickCreature(chosen, x.liveCreatures(enemy))
	case cards.TargetAllCreatures:
		return append(x.liveCreatures(owner), x.liveCreatures(enemy)...)
	case cards.TargetRandomEnemy:
		// Random among the enemy hero and every live enemy creature.
		pool := append(x.liveCreatures(enemy), entityRef{player: enemy})
		return []entityRef{pool[x.rng.Intn(len(pool))]}
	}
	return nil
}

// liveCreatures lists a player's live board in board order.
func (x *resolution) liveCreatures(player int) []entityRef {
	var refs []entityRef
	for _, c := range x.st.Players[player].Board {
		if !c.Dead() {
			refs = append(refs, entityRef{player: player, creature: c.InstanceID})
		}
	}
	return refs
}

// pickCreature narrows a single-creature selector: the chosen instance if it
// is in the eligible pool, otherwise a random eligible one, otherwise no-op.
func (x *resolution) pickCreature(chosen string, pools ...[]entityRef) []entityRef {
	var pool []entityRef
	for _, p := range pools {
		pool = append(pool, p...)
	}
	if len(pool) == 0 {
		return nil
	}
	if chosen != "" {
		for _, ref := range pool {
			if ref.creature == chosen {
				return []entityRef{ref}
			}
		}
		return nil
	}
	return []entityRef{pool[x.rng.Intn(len(pool))]}
}

// damageCreature applies one damage instance. Divine Shield absorbs the
// whole instance and is consumed; it never splits. Returns the health
// actually lost, which drives Lifesteal and Poisonous. On-damage abilities
// are queued, not fired inline, so chained triggers count against the
// cascade cap and their failures surface to the caller.
func (x *resolution) damageCreature(c *Creature, amount int) int {
	if amount <= 0 {
		return 0
	}
	if c.Keywords[cards.KeywordDivineShield] {
		delete(c.Keywords, cards.KeywordDivineShield)
		return 0
	}
	c.Health -= amount
	if owner, _, ok := x.st.locateCreature(c.InstanceID); ok && !c.Dead() {
		x.queueTriggers(owner, c, cards.TriggerOnDamage)
	}
	return amount
}

// queueTriggers defers a creature's abilities matching the trigger onto the
// work queue drained by reap.
func (x *resolution) queueTriggers(owner int, c *Creature, trigger cards.Trigger) {
	var abs []cards.Ability
	for _, ab := range c.Abilities {
		if ab.Trigger == trigger {
			abs = append(abs, ab)
		}
	}
	if len(abs) == 0 {
		return
	}
	x.pending = append(x.pending, pendingTrigger{
		owner:      owner,
		sourceCard: c.CardID,
		sourceInst: c.InstanceID,
		abilities:  abs,
	})
}

// healCreature restores health, capped at the creature's max.
func (x *resolution) healCreature(c *Creature, amount int) {
	if amount <= 0 {
		return
	}
	c.Health += amount
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
}

// damagePlayer reduces a hero's health and records a PLAYER_DAMAGED event.
func (x *resolution) damagePlayer(player int, amount int, source string, fatigue bool) {
	if amount <= 0 {
		return
	}
	p := x.st.Players[player]
	p.Health -= amount
	p.DiedToFatigue = fatigue
	x.st.appendEvent(GameEvent{
		Type:     EventPlayerDamaged,
		PlayerID: p.PlayerID,
		Amount:   amount,
		Source:   source,
	})
}

// healPlayer restores hero health, capped at max, recording PLAYER_HEALED.
// Healing for zero is not an event.
func (x *resolution) healPlayer(player int, amount int, source string) {
	p := x.st.Players[player]
	if amount <= 0 || p.Health >= p.MaxHealth {
		return
	}
	healed := amount
	if p.Health+healed > p.MaxHealth {
		healed = p.MaxHealth - p.Health
	}
	p.Health += healed
	x.st.appendEvent(GameEvent{
		Type:     EventPlayerHealed,
		PlayerID: p.PlayerID,
		Amount:   healed,
		Source:   source,
	})
}

// silence strips keywords, ability triggers and temporary effect tracking
// from a creature. Stat changes already baked into attack/health remain.
func (x *resolution) silence(c *Creature) {
	c.Keywords = make(map[cards.Keyword]bool)
	c.Abilities = nil
	c.TempEffects = nil
	c.Silenced = true
}

// summonByID puts count copies of a catalog creature onto the owner's board.
// A full board drops the overflow silently; a non-creature or missing card id
// is a content error and aborts the action.
func (x *resolution) summonByID(owner int, cardID string, count int) error {
	def, err := x.catalog.Lookup(cardID)
	if err != nil {
		return fmt.Errorf("summon %s: %w", cardID, err)
	}
	if def.Type != cards.TypeCreature {
		return fmt.Errorf("summon %s: not a creature (%s)", cardID, def.Type)
	}
	for i := 0; i < count; i++ {
		if !x.summon(owner, def) {
			break
		}
	}
	return nil
}

// summon places one creature, reporting false when the board is full.
func (x *resolution) summon(owner int, def cards.CardDefinition) bool {
	p := x.st.Players[owner]
	if len(p.Board) >= MaxBoardSize {
		x.logger.Debug("summon dropped, board full",
			zap.String("player", p.PlayerID),
			zap.String("card", def.ID),
		)
		return false
	}
	p.Board = append(p.Board, newCreature(def, x.st.nextInstanceID()))
	return true
}

// drawCards draws n cards for the player, applying escalating fatigue damage
// for each draw from an empty deck. Overdrawn cards burn silently when the
// hand is full.
func (x *resolution) drawCards(player int, n int) error {
	p := x.st.Players[player]
	for i := 0; i < n; i++ {
		if len(p.Deck) == 0 {
			p.Fatigue++
			x.damagePlayer(player, p.Fatigue, "fatigue", true)
			continue
		}
		cardID := p.Deck[0]
		p.Deck = p.Deck[1:]
		def, err := x.catalog.Lookup(cardID)
		if err != nil {
			return fmt.Errorf("draw %s: %w", cardID, err)
		}
		if len(p.Hand) >= MaxHandSize {
			x.logger.Debug("card burned, hand full",
				zap.String("player", p.PlayerID),
				zap.String("card", cardID),
			)
			continue
		}
		p.Hand = append(p.Hand, def)
		x.st.appendEvent(GameEvent{
			Type:     EventCardDrawn,
			PlayerID: p.PlayerID,
			CardID:   cardID,
		})
	}
	return nil
}

// collectDead removes dead creatures from both boards in board order,
// emitting CREATURE_DIED and queueing their deathrattles. Does not fire the
// queued triggers; reap drains them.
func (x *resolution) collectDead() bool {
	removed := false
	for idx, p := range x.st.Players {
		kept := p.Board[:0]
		for _, c := range p.Board {
			if !c.Dead() {
				kept = append(kept, c)
				continue
			}
			removed = true
			x.st.appendEvent(GameEvent{
				Type:       EventCreatureDied,
				PlayerID:   p.PlayerID,
				CardID:     c.CardID,
				InstanceID: c.InstanceID,
			})
			x.queueTriggers(idx, c, cards.TriggerDeathrattle)
		}
		p.Board = kept
	}
	return removed
}

// reap drains the trigger work queue to exhaustion. Deathrattles cannot
// re-fire for the same creature, but on-damage triggers can chain back into
// damage, so the iteration cap is the hard bound on malformed content.
func (x *resolution) reap() error {
	for iter := 0; ; iter++ {
		if iter > maxCascadeIterations {
			return errCascadeOverflow
		}
		x.collectDead()
		if len(x.pending) == 0 {
			return nil
		}
		trigger := x.pending[0]
		x.pending = x.pending[1:]
		for _, ab := range trigger.abilities {
			if err := x.applyAbility(trigger.owner, trigger.sourceCard, trigger.sourceInst, ab, ""); err != nil {
				return err
			}
		}
	}
}

func amountOrOne(amount int) int {
	if amount <= 0 {
		return 1
	}
	return amount
}
