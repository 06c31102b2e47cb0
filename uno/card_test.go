package uno

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeckComposition(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(1)))
	assert.Len(t, deck, DeckSize)

	counts := map[Card]int{}
	for _, c := range deck {
		counts[c]++
	}

	for _, color := range Colors {
		assert.Equal(t, 1, counts[Card{Color: color, Value: "0"}], "one zero per color")
		for _, v := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", ValueSkip, ValueReverse, ValueDrawTwo} {
			assert.Equal(t, 2, counts[Card{Color: color, Value: v}], "two %s per color", v)
		}
	}
	assert.Equal(t, 4, counts[Card{Color: ColorWild, Value: ValueWild}])
	assert.Equal(t, 4, counts[Card{Color: ColorWild, Value: ValueDrawFour}])
}

func TestDeckShuffleIsSeedable(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(7)))
	b := NewDeck(rand.New(rand.NewSource(7)))
	c := NewDeck(rand.New(rand.NewSource(8)))
	assert.Equal(t, a, b, "same seed, same order")
	assert.NotEqual(t, a, c, "different seed, different order")
}

func TestCompatible(t *testing.T) {
	redThree := Card{Color: ColorRed, Value: "3"}
	blueThree := Card{Color: ColorBlue, Value: "3"}
	blueNine := Card{Color: ColorBlue, Value: "9"}
	wild := Card{Color: ColorWild, Value: ValueWild}
	drawFour := Card{Color: ColorWild, Value: ValueDrawFour}

	t.Run("wild candidates are always playable", func(t *testing.T) {
		assert.True(t, Compatible(wild, redThree, ColorRed))
		assert.True(t, Compatible(drawFour, blueNine, ColorGreen))
		assert.True(t, Compatible(wild, wild, ColorYellow))
	})

	t.Run("against a wild top only the active color plays", func(t *testing.T) {
		assert.True(t, Compatible(blueThree, wild, ColorBlue))
		assert.False(t, Compatible(blueThree, wild, ColorRed))
	})

	t.Run("color match", func(t *testing.T) {
		assert.True(t, Compatible(blueNine, blueThree, ColorBlue))
	})

	t.Run("value match", func(t *testing.T) {
		assert.True(t, Compatible(redThree, blueThree, ColorBlue))
	})

	t.Run("no match", func(t *testing.T) {
		assert.False(t, Compatible(redThree, blueNine, ColorBlue))
	})
}
