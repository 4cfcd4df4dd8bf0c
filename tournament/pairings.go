package tournament

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Pairing is one unordered combination of two distinct strategies. A
// always comes before B in population order.
type Pairing struct {
	A string
	B string
}

func (p Pairing) String() string {
	return p.A + " vs " + p.B
}

// Eligible returns the strategies that take part in a tournament over
// names. A subset of more than one name restricts the population to those
// names, keeping population order; unknown names are logged and dropped.
// A single name doesn't restrict the population: it only restricts the
// pairings, see Pairings.
func Eligible(names, subset []string) []string {
	if len(subset) <= 1 {
		return names
	}
	for _, s := range lo.Without(subset, names...) {
		log.Warn().Str("strategy", s).Msg("unknown-strategy-ignored")
	}
	return lo.Filter(names, func(n string, _ int) bool {
		return lo.Contains(subset, n)
	})
}

// Pairings enumerates the pairings of a tournament over names. With a
// single-name subset only the pairings that include that name are kept,
// so it plays every other strategy once.
func Pairings(names, subset []string) ([]Pairing, error) {
	eligible := lo.Uniq(Eligible(names, subset))
	if len(eligible) < 2 {
		return nil, ErrNotEnoughStrategies
	}
	var pairs []Pairing
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			pairs = append(pairs, Pairing{A: eligible[i], B: eligible[j]})
		}
	}
	if len(subset) == 1 {
		only := subset[0]
		if !lo.Contains(eligible, only) {
			log.Warn().Str("strategy", only).Msg("unknown-strategy-ignored")
		}
		pairs = lo.Filter(pairs, func(p Pairing, _ int) bool {
			return p.A == only || p.B == only
		})
	}
	if len(pairs) == 0 {
		return nil, ErrNoPairings
	}
	return pairs, nil
}
