package game

import (
	"fmt"
	"time"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

// Fixed game-rule constants. These are rules of the game, not tunables.
const (
	StartingHealth = 30
	MaxMana        = 10
	MaxHandSize    = 10
	MaxBoardSize   = 7

	// Opening hand sizes. The second player draws one extra card and
	// receives The Coin to offset the first-player advantage.
	openingHandFirst  = 3
	openingHandSecond = 4

	// Hard bound on death-trigger cascades. A well-formed card set never
	// approaches this; exceeding it aborts the match with a typed failure.
	maxCascadeIterations = 1000
)

// Phase is the turn controller's state machine position.
type Phase string

const (
	PhaseMulligan  Phase = "MULLIGAN"
	PhaseStartTurn Phase = "START_TURN"
	PhaseMain      Phase = "MAIN"
	PhaseEndTurn   Phase = "END_TURN"
	PhaseGameOver  Phase = "GAME_OVER"
)

// WinCondition explains how a finished match ended.
type WinCondition string

const (
	WinOpponentDefeated WinCondition = "OPPONENT_DEFEATED"
	WinOpponentFatigue  WinCondition = "OPPONENT_FATIGUE"
	WinConceded         WinCondition = "OPPONENT_CONCEDED"
	// WinDraw marks simultaneous lethal on both players. Winner is empty.
	WinDraw WinCondition = "DRAW"
	// WinAborted marks a match closed by an unresolvable engine failure.
	WinAborted WinCondition = "ABORTED"
)

// TemporaryEffect is a reversible modification on a creature with a
// remaining-turns countdown, decremented during its owner's end step.
type TemporaryEffect struct {
	Op        cards.EffectOp
	Amount    int
	Keyword   cards.Keyword
	TurnsLeft int
}

// Creature is a board instance. It references its originating card by id and
// owns only the mutable per-instance combat state; the definition stays in
// the catalog.
type Creature struct {
	InstanceID  string
	CardID      string
	Name        string
	Attack      int
	Health      int
	MaxHealth   int
	CanAttack   bool
	HasAttacked bool
	// AttacksThisTurn counts successful attacks; the per-turn limit is two
	// with Windfury, one otherwise.
	AttacksThisTurn int
	Keywords        map[cards.Keyword]bool
	// Abilities are copied from the definition at summon time so Silence can
	// strip them per instance without touching the catalog.
	Abilities []cards.Ability
	Silenced  bool
	// Destroyed marks a creature for removal regardless of health, e.g. by
	// a Destroy effect or Poisonous damage.
	Destroyed   bool
	TempEffects []TemporaryEffect
}

// newCreature builds a board instance from an immutable definition. The
// instance id comes from the per-game counter, never from randomness, so
// recorded actions keep resolving on replay.
func newCreature(def cards.CardDefinition, instanceID string) *Creature {
	c := &Creature{
		InstanceID: instanceID,
		CardID:     def.ID,
		Name:       def.Name,
		Attack:     def.Attack,
		Health:     def.Health,
		MaxHealth:  def.Health,
		// Summoning sickness: only Charge creatures may attack the turn
		// they enter the board.
		CanAttack: def.HasKeyword(cards.KeywordCharge),
		Keywords:  make(map[cards.Keyword]bool, len(def.Keywords)),
		Abilities: append([]cards.Ability(nil), def.Abilities...),
	}
	for _, k := range def.Keywords {
		c.Keywords[k] = true
	}
	return c
}

// HasKeyword reports whether the creature currently carries the keyword.
func (c *Creature) HasKeyword(k cards.Keyword) bool {
	return c.Keywords[k]
}

// attackLimit is the number of attacks allowed this turn.
func (c *Creature) attackLimit() int {
	if c.HasKeyword(cards.KeywordWindfury) {
		return 2
	}
	return 1
}

// Dead reports whether the creature must be removed from the board.
func (c *Creature) Dead() bool {
	return c.Health <= 0 || c.Destroyed
}

// Clone returns a deep copy of the creature.
func (c *Creature) Clone() *Creature {
	cp := *c
	cp.Keywords = make(map[cards.Keyword]bool, len(c.Keywords))
	for k, v := range c.Keywords {
		cp.Keywords[k] = v
	}
	cp.Abilities = append([]cards.Ability(nil), c.Abilities...)
	cp.TempEffects = append([]TemporaryEffect(nil), c.TempEffects...)
	return &cp
}

// Weapon is an equipped weapon instance. Durability drops by one per hero
// attack; the weapon is removed at zero.
type Weapon struct {
	CardID     string
	Name       string
	Attack     int
	Durability int
}

// PlayerState holds one player's side of the match.
type PlayerState struct {
	PlayerID  string
	Name      string
	HeroClass string
	Health    int
	MaxHealth int
	Mana      int
	MaxMana   int
	Hand      []cards.CardDefinition
	Board     []*Creature
	// Deck holds the remaining card ids, index 0 on top.
	Deck          []string
	Weapon        *Weapon
	HeroPower     *cards.HeroPower
	HeroPowerUsed bool
	HeroAttacked  bool
	// Fatigue is the accumulated empty-deck draw counter; the next empty
	// draw deals Fatigue+1 damage.
	Fatigue int
	// DiedToFatigue records whether the most recent damage this player took
	// came from fatigue, used to pick the win condition.
	DiedToFatigue bool
	// HandCount and DeckCount are populated only in redacted views.
	HandCount int
	DeckCount int
}

// Clone returns a deep copy of the player state.
func (p *PlayerState) Clone() *PlayerState {
	cp := *p
	cp.Hand = append([]cards.CardDefinition(nil), p.Hand...)
	cp.Deck = append([]string(nil), p.Deck...)
	cp.Board = make([]*Creature, len(p.Board))
	for i, c := range p.Board {
		cp.Board[i] = c.Clone()
	}
	if p.Weapon != nil {
		w := *p.Weapon
		cp.Weapon = &w
	}
	if p.HeroPower != nil {
		hp := *p.HeroPower
		hp.Effects = append([]cards.Effect(nil), p.HeroPower.Effects...)
		cp.HeroPower = &hp
	}
	return &cp
}

// findCreature returns the board position of an instance id, or -1.
func (p *PlayerState) findCreature(instanceID string) int {
	for i, c := range p.Board {
		if c.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// hasTaunt reports whether any live creature on the board has Taunt.
func (p *PlayerState) hasTaunt() bool {
	for _, c := range p.Board {
		if !c.Dead() && c.HasKeyword(cards.KeywordTaunt) {
			return true
		}
	}
	return false
}

// GameState is the canonical match state. Every committed transition
// produces a new value via Clone; previous states stay valid for auditing.
type GameState struct {
	GameID string
	Seed   int64
	// Turn counts player turns, incrementing every StartTurn.
	Turn   int
	Active int
	Phase  Phase
	Players   [2]*PlayerState
	Winner    string
	WinReason WinCondition
	// Events is the append-only, ordered audit trail of the match.
	Events    []GameEvent
	StartedAt time.Time
	// spawnCount backs instance id generation.
	spawnCount int
}

// nextInstanceID issues a fresh board instance id, deterministic per game.
func (st *GameState) nextInstanceID() string {
	st.spawnCount++
	return fmt.Sprintf("c-%d", st.spawnCount)
}

// Clone returns a deep copy of the game state.
func (st *GameState) Clone() *GameState {
	cp := *st
	cp.Players = [2]*PlayerState{st.Players[0].Clone(), st.Players[1].Clone()}
	cp.Events = append([]GameEvent(nil), st.Events...)
	return &cp
}

// playerIndex returns the index for a player id, or -1.
func (st *GameState) playerIndex(playerID string) int {
	for i, p := range st.Players {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// activePlayer returns the player whose turn it is.
func (st *GameState) activePlayer() *PlayerState {
	return st.Players[st.Active]
}

// locateCreature finds a creature instance anywhere on either board.
func (st *GameState) locateCreature(instanceID string) (owner int, pos int, ok bool) {
	for i, p := range st.Players {
		if j := p.findCreature(instanceID); j >= 0 {
			return i, j, true
		}
	}
	return 0, 0, false
}

// Over reports whether the match has reached its terminal state.
func (st *GameState) Over() bool {
	return st.Phase == PhaseGameOver
}

// ViewFor returns a redacted copy of the state for one player: the
// opponent's hand and deck contents are hidden, leaving only counts.
func (st *GameState) ViewFor(playerID string) *GameState {
	view := st.Clone()
	for _, p := range view.Players {
		p.HandCount = len(p.Hand)
		p.DeckCount = len(p.Deck)
		p.Deck = nil
		if p.PlayerID != playerID {
			p.Hand = nil
		}
	}
	return view
}
