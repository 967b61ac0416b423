package memory

import (
	"math/rand/v2"

	"github.com/samber/lo"
)

// NewRNG returns a deterministic source for the given seed.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// BuildDeck lays out two cards for each of the first pairs keys and
// shuffles them with rng. A nil rng uses an unseeded source.
func BuildDeck(keys []string, pairs int, rng *rand.Rand) ([]Card, error) {
	if pairs < 1 {
		return nil, configErrorf("pairs", "need at least one pair, got %d", pairs)
	}
	if pairs > len(keys) {
		return nil, configErrorf("pairs", "%d pairs requested but only %d faces available", pairs, len(keys))
	}
	if dupes := lo.FindDuplicates(keys[:pairs]); len(dupes) > 0 {
		return nil, configErrorf("keys", "face %q appears more than once", dupes[0])
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	cards := lo.FlatMap(keys[:pairs], func(key string, i int) []Card {
		return []Card{
			{ID: i*2 + 1, PairKey: key},
			{ID: i*2 + 2, PairKey: key},
		}
	})
	Shuffle(cards, rng)
	return cards, nil
}

// Shuffle permutes cards in place with Fisher-Yates.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
