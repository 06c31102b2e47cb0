package uno

import "math/rand"

// DeckSize is the total card count, conserved across draw pile,
// discard pile and all hands for the lifetime of a game.
const DeckSize = 108

var numerals = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}
var actions = []string{ValueSkip, ValueReverse, ValueDrawTwo}

// NewDeck builds the full 108-card multiset in randomized order.
// Per color: one "0" and two each of "1".."9", skip, reverse and +2
// (25 cards), plus four wild and four +4. The caller supplies the
// random source so a deal can be reproduced from a seed.
func NewDeck(rng *rand.Rand) []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		deck = append(deck, Card{Color: color, Value: "0"})
		for _, value := range append(append([]string{}, numerals...), actions...) {
			deck = append(deck, Card{Color: color, Value: value})
			deck = append(deck, Card{Color: color, Value: value})
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: ColorWild, Value: ValueWild})
		deck = append(deck, Card{Color: ColorWild, Value: ValueDrawFour})
	}
	shuffle(deck, rng)
	return deck
}

func shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
