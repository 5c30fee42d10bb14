// Package ai provides decision providers that can drive a match without
// human input.
package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/openduel/duel-server-go/internal/game"
	"github.com/openduel/duel-server-go/internal/game/cards"
)

// Greedy is a deterministic decision provider: it plays the most expensive
// affordable card, swings with every ready creature (clearing taunts before
// going face), uses the hero power with leftover mana, then ends the turn.
// Determinism keeps AI-driven matches replayable.
type Greedy struct {
	logger *zap.Logger
}

// NewGreedy creates a greedy provider.
func NewGreedy(logger *zap.Logger) *Greedy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Greedy{logger: logger}
}

// RequestMulligan keeps cheap cards and throws back everything costing more
// than three mana.
func (g *Greedy) RequestMulligan(_ context.Context, state *game.GameState, playerID string) ([]int, error) {
	var replace []int
	for _, p := range state.Players {
		if p.PlayerID != playerID {
			continue
		}
		for i, card := range p.Hand {
			if card.Cost > 3 {
				replace = append(replace, i)
			}
		}
	}
	return replace, nil
}

// RequestAction picks the next action for the player.
func (g *Greedy) RequestAction(_ context.Context, state *game.GameState, playerID string) (game.Action, error) {
	var me, enemy *game.PlayerState
	for _, p := range state.Players {
		if p.PlayerID == playerID {
			me = p
		} else {
			enemy = p
		}
	}
	if me == nil || enemy == nil {
		return game.Action{Type: game.ActionEndTurn}, nil
	}

	// Most expensive affordable card first; creatures need board room.
	best := -1
	for i, card := range me.Hand {
		if card.Cost > me.Mana {
			continue
		}
		if card.Type == cards.TypeCreature && len(me.Board) >= game.MaxBoardSize {
			continue
		}
		if best < 0 || card.Cost > me.Hand[best].Cost {
			best = i
		}
	}
	if best >= 0 {
		action := game.Action{Type: game.ActionPlayCard, HandIndex: best}
		if target := pickTarget(me.Hand[best], enemy); target != "" {
			action.TargetID = target
		}
		return action, nil
	}

	// Attack with the first ready creature.
	defender := pickDefender(enemy)
	for _, c := range me.Board {
		if c.CanAttack && !c.HasAttacked && c.Attack > 0 {
			return game.Action{
				Type:       game.ActionAttack,
				AttackerID: c.InstanceID,
				DefenderID: defender,
			}, nil
		}
	}

	// Weapon swing.
	if me.Weapon != nil && !me.HeroAttacked {
		return game.Action{
			Type:       game.ActionAttack,
			AttackerID: me.PlayerID,
			DefenderID: defender,
		}, nil
	}

	// Hero power with spare mana.
	if me.HeroPower != nil && !me.HeroPowerUsed && me.HeroPower.Cost <= me.Mana {
		return game.Action{Type: game.ActionHeroPower}, nil
	}

	return game.Action{Type: game.ActionEndTurn}, nil
}

// pickDefender returns the mandatory taunt target when one exists, else
// empty for a face attack.
func pickDefender(enemy *game.PlayerState) string {
	for _, c := range enemy.Board {
		if c.HasKeyword(cards.KeywordTaunt) {
			return c.InstanceID
		}
	}
	return ""
}

// pickTarget chooses an explicit target for cards whose battlecries want
// one: the biggest enemy creature for damage effects.
func pickTarget(def cards.CardDefinition, enemy *game.PlayerState) string {
	wantsEnemyCreature := false
	for _, ab := range def.AbilitiesFor(cards.TriggerBattlecry) {
		for _, eff := range ab.Effects {
			if eff.Op != cards.EffectDamage && eff.Op != cards.EffectDestroy {
				continue
			}
			switch eff.Target {
			case cards.TargetAnyCreature, cards.TargetEnemyCreature:
				wantsEnemyCreature = true
			}
		}
	}
	if !wantsEnemyCreature {
		return ""
	}
	best := ""
	bestAttack := -1
	for _, c := range enemy.Board {
		if c.Attack > bestAttack {
			best = c.InstanceID
			bestAttack = c.Attack
		}
	}
	return best
}
