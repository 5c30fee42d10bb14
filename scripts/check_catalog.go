// Command check_catalog lints a card catalog file. It loads the YAML set
// through the same validation path the server uses, then cross-checks the
// references that single-card validation cannot see: every SUMMON_CREATURE
// effect must name a creature card that exists in the same set.
//
// Usage: go run scripts/check_catalog.go [path]
package main

import (
	"fmt"
	"os"

	"github.com/openduel/duel-server-go/internal/game/cards"
)

func main() {
	path := "config/cards.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	catalog, err := cards.LoadCatalog(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check_catalog: %v\n", err)
		os.Exit(1)
	}

	var problems []string
	counts := map[cards.CardType]int{}

	for _, id := range catalog.IDs() {
		def, err := catalog.Lookup(id)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		counts[def.Type]++

		for _, ab := range def.Abilities {
			for _, eff := range ab.Effects {
				if eff.Op != cards.EffectSummonCreature {
					continue
				}
				target, err := catalog.Lookup(eff.SummonID)
				if err != nil {
					problems = append(problems,
						fmt.Sprintf("%s: summon_id %q not in catalog", id, eff.SummonID))
					continue
				}
				if target.Type != cards.TypeCreature {
					problems = append(problems,
						fmt.Sprintf("%s: summon_id %q is a %s, not a creature", id, eff.SummonID, target.Type))
				}
			}
		}
	}

	fmt.Printf("%s: %d cards (%d creatures, %d spells, %d weapons)\n",
		path, catalog.Size(),
		counts[cards.TypeCreature], counts[cards.TypeSpell], counts[cards.TypeWeapon])

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "check_catalog: %d problem(s)\n", len(problems))
		os.Exit(1)
	}
	fmt.Println("ok")
}
