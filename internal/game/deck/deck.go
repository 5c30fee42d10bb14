// Package deck defines deck construction and the pre-match validation rules.
package deck

import (
	"fmt"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

// RequiredSize is the exact number of cards a constructed deck must contain.
const RequiredSize = 30

// Copy limits by rarity.
const (
	MaxCopies          = 2
	MaxCopiesLegendary = 1
)

// Entry is one (card, count) pair in a deck list.
type Entry struct {
	CardID string `yaml:"card_id" json:"card_id"`
	Count  int    `yaml:"count" json:"count"`
}

// Deck is an ordered deck list plus the hero class it was built for.
type Deck struct {
	HeroClass string  `yaml:"hero_class" json:"hero_class"`
	Entries   []Entry `yaml:"entries" json:"entries"`
}

// Size returns the total number of cards across all entries.
func (d Deck) Size() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Count
	}
	return total
}

// CardIDs expands the deck list into a flat, ordered sequence of card ids.
func (d Deck) CardIDs() []string {
	ids := make([]string, 0, d.Size())
	for _, e := range d.Entries {
		for i := 0; i < e.Count; i++ {
			ids = append(ids, e.CardID)
		}
	}
	return ids
}

// Result is the outcome of deck validation. Violations are human-readable and
// collected exhaustively; validation never short-circuits.
type Result struct {
	Valid      bool
	Violations []string
}

// Validate checks a deck against construction rules using the catalog for
// rarity lookups. Pure function: no side effects, all violations collected.
func Validate(d Deck, catalog cards.Catalog) Result {
	var violations []string

	if size := d.Size(); size != RequiredSize {
		violations = append(violations,
			fmt.Sprintf("deck must contain exactly %d cards, has %d", RequiredSize, size))
	}

	seen := make(map[string]bool, len(d.Entries))
	for _, e := range d.Entries {
		if e.Count <= 0 {
			violations = append(violations,
				fmt.Sprintf("entry for %s has non-positive count %d", e.CardID, e.Count))
			continue
		}
		if seen[e.CardID] {
			violations = append(violations,
				fmt.Sprintf("card %s appears in more than one deck entry", e.CardID))
			continue
		}
		seen[e.CardID] = true

		def, err := catalog.Lookup(e.CardID)
		if err != nil {
			violations = append(violations,
				fmt.Sprintf("card %s is not in the catalog", e.CardID))
			continue
		}

		limit := MaxCopies
		if def.Rarity == cards.RarityLegendary {
			limit = MaxCopiesLegendary
		}
		if e.Count > limit {
			violations = append(violations,
				fmt.Sprintf("card %s exceeds copy limit: %d copies, max %d (%s)",
					e.CardID, e.Count, limit, def.Rarity))
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}
