package cards

import "fmt"

// CardType indicates the broad category of a card.
type CardType string

const (
	TypeCreature CardType = "CREATURE"
	TypeSpell    CardType = "SPELL"
	TypeWeapon   CardType = "WEAPON"
)

// Rarity controls deck construction copy limits.
type Rarity string

const (
	RarityFree      Rarity = "FREE"
	RarityCommon    Rarity = "COMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

// Keyword represents a static combat modifier carried by a card or creature.
type Keyword string

const (
	KeywordTaunt        Keyword = "TAUNT"
	KeywordDivineShield Keyword = "DIVINE_SHIELD"
	KeywordLifesteal    Keyword = "LIFESTEAL"
	KeywordPoisonous    Keyword = "POISONOUS"
	KeywordWindfury     Keyword = "WINDFURY"
	KeywordCharge       Keyword = "CHARGE"
)

// Trigger identifies the game moment at which an ability fires.
type Trigger string

const (
	TriggerBattlecry   Trigger = "BATTLECRY"
	TriggerDeathrattle Trigger = "DEATHRATTLE"
	TriggerStartOfTurn Trigger = "START_OF_TURN"
	TriggerEndOfTurn   Trigger = "END_OF_TURN"
	TriggerOnAttack    Trigger = "ON_ATTACK"
	TriggerOnDamage    Trigger = "ON_DAMAGE"
	TriggerPassive     Trigger = "PASSIVE"
)

// EffectOp is the closed set of primitive operations an effect can perform.
type EffectOp string

const (
	EffectDamage         EffectOp = "DAMAGE"
	EffectHeal           EffectOp = "HEAL"
	EffectDrawCard       EffectOp = "DRAW_CARD"
	EffectGainMana       EffectOp = "GAIN_MANA"
	EffectSummonCreature EffectOp = "SUMMON_CREATURE"
	EffectDestroy        EffectOp = "DESTROY"
	EffectSilence        EffectOp = "SILENCE"
	EffectBuffAttack     EffectOp = "BUFF_ATTACK"
	EffectBuffHealth     EffectOp = "BUFF_HEALTH"
	EffectGiveKeyword    EffectOp = "GIVE_KEYWORD"
)

// Target selects which entities an effect applies to. Selectors that match
// no live entity at resolution time are no-ops, never errors.
type Target string

const (
	TargetNone             Target = "NONE"
	TargetSelf             Target = "SELF"
	TargetEnemyHero        Target = "ENEMY_HERO"
	TargetFriendlyHero     Target = "FRIENDLY_HERO"
	TargetAnyCreature      Target = "ANY_CREATURE"
	TargetFriendlyCreature Target = "FRIENDLY_CREATURE"
	TargetEnemyCreature    Target = "ENEMY_CREATURE"
	TargetAllCreatures     Target = "ALL_CREATURES"
	TargetRandomEnemy      Target = "RANDOM_ENEMY"
)

// Effect is a single tagged operation inside an ability. Effects inside an
// ability apply strictly in declaration order.
type Effect struct {
	Op     EffectOp `yaml:"op"`
	Amount int      `yaml:"amount,omitempty"`
	Target Target   `yaml:"target,omitempty"`
	// SummonID names the creature card to put on the board for SUMMON_CREATURE.
	SummonID string `yaml:"summon_id,omitempty"`
	// Keyword to grant for GIVE_KEYWORD.
	Keyword Keyword `yaml:"keyword,omitempty"`
	// Duration in turns for BUFF_ATTACK / GIVE_KEYWORD. Zero means permanent;
	// a positive value reverts after that many of the owner's end steps.
	Duration int `yaml:"duration,omitempty"`
}

// Ability pairs a trigger with the ordered effects it produces.
type Ability struct {
	Trigger Trigger  `yaml:"trigger"`
	Effects []Effect `yaml:"effects"`
}

// HeroPower is a class-bound repeatable ability, usable once per turn for a
// fixed mana cost.
type HeroPower struct {
	Name    string   `yaml:"name"`
	Cost    int      `yaml:"cost"`
	Effects []Effect `yaml:"effects"`
}

// CardDefinition is the immutable, catalog-owned description of a card.
// Board creatures reference definitions by ID and never embed mutable copies.
type CardDefinition struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Cost       int       `yaml:"cost"`
	Type       CardType  `yaml:"type"`
	Rarity     Rarity    `yaml:"rarity"`
	Attack     int       `yaml:"attack,omitempty"`
	Health     int       `yaml:"health,omitempty"`
	Durability int       `yaml:"durability,omitempty"`
	Abilities  []Ability `yaml:"abilities,omitempty"`
	Keywords   []Keyword `yaml:"keywords,omitempty"`
}

// HasKeyword reports whether the definition carries the given keyword.
func (c CardDefinition) HasKeyword(k Keyword) bool {
	for _, kw := range c.Keywords {
		if kw == k {
			return true
		}
	}
	return false
}

// AbilitiesFor returns the abilities matching the given trigger, in
// declaration order.
func (c CardDefinition) AbilitiesFor(trigger Trigger) []Ability {
	var out []Ability
	for _, ab := range c.Abilities {
		if ab.Trigger == trigger {
			out = append(out, ab)
		}
	}
	return out
}

// Validate checks the structural invariants of a definition: the card type
// determines which stat fields must be populated, and cost is never negative.
func (c CardDefinition) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("card has no id")
	}
	if c.Name == "" {
		return fmt.Errorf("card %s has no name", c.ID)
	}
	if c.Cost < 0 {
		return fmt.Errorf("card %s has negative cost %d", c.ID, c.Cost)
	}
	switch c.Type {
	case TypeCreature:
		if c.Health <= 0 {
			return fmt.Errorf("creature %s must have health > 0, got %d", c.ID, c.Health)
		}
		if c.Attack < 0 {
			return fmt.Errorf("creature %s has negative attack %d", c.ID, c.Attack)
		}
		if c.Durability != 0 {
			return fmt.Errorf("creature %s must not have durability", c.ID)
		}
	case TypeSpell:
		if c.Attack != 0 || c.Health != 0 || c.Durability != 0 {
			return fmt.Errorf("spell %s must not carry combat stats", c.ID)
		}
	case TypeWeapon:
		if c.Durability <= 0 {
			return fmt.Errorf("weapon %s must have durability > 0, got %d", c.ID, c.Durability)
		}
		if c.Attack < 0 {
			return fmt.Errorf("weapon %s has negative attack %d", c.ID, c.Attack)
		}
		if c.Health != 0 {
			return fmt.Errorf("weapon %s must not have health", c.ID)
		}
	default:
		return fmt.Errorf("card %s has unknown type %q", c.ID, c.Type)
	}
	for i, ab := range c.Abilities {
		if err := ab.validate(); err != nil {
			return fmt.Errorf("card %s ability %d: %w", c.ID, i, err)
		}
	}
	return nil
}

func (a Ability) validate() error {
	switch a.Trigger {
	case TriggerBattlecry, TriggerDeathrattle, TriggerStartOfTurn,
		TriggerEndOfTurn, TriggerOnAttack, TriggerOnDamage, TriggerPassive:
	default:
		return fmt.Errorf("unknown trigger %q", a.Trigger)
	}
	for i, eff := range a.Effects {
		if err := eff.validate(); err != nil {
			return fmt.Errorf("effect %d: %w", i, err)
		}
	}
	return nil
}

func (e Effect) validate() error {
	switch e.Op {
	case EffectDamage, EffectHeal, EffectDrawCard, EffectGainMana,
		EffectDestroy, EffectSilence, EffectBuffAttack, EffectBuffHealth:
	case EffectSummonCreature:
		if e.SummonID == "" {
			return fmt.Errorf("summon effect has no summon_id")
		}
	case EffectGiveKeyword:
		if e.Keyword == "" {
			return fmt.Errorf("give keyword effect has no keyword")
		}
	default:
		return fmt.Errorf("unknown effect op %q", e.Op)
	}
	if e.Amount < 0 {
		return fmt.Errorf("effect %s has negative amount %d", e.Op, e.Amount)
	}
	if e.Duration < 0 {
		return fmt.Errorf("effect %s has negative duration %d", e.Op, e.Duration)
	}
	return nil
}
