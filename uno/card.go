package uno

import "fmt"

const (
	ColorRed    = "red"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorWild   = "wild"
)

const (
	ValueSkip     = "skip"
	ValueReverse  = "reverse"
	ValueDrawTwo  = "+2"
	ValueWild     = "wild"
	ValueDrawFour = "+4"
)

// Colors lists the four playable colors. Wild is not a playable
// active color, it only marks a card as colorless until played.
var Colors = []string{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Card is an immutable (color, value) pair. Cards carry no identity
// beyond their fields; the deck is a multiset and duplicates compare equal.
type Card struct {
	Color string `json:"color"`
	Value string `json:"value"`
}

func (c Card) IsWild() bool {
	return c.Color == ColorWild
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Color, c.Value)
}

// Compatible reports whether candidate may be played on top. It is the
// sole legality predicate. A wild candidate is always playable. Against
// a wild top card the candidate must match the active color. Otherwise
// a color or value match suffices. Note that +4 is never excluded even
// when a legal non-wild play exists; that is deliberate.
func Compatible(candidate, top Card, activeColor string) bool {
	if candidate.IsWild() {
		return true
	}
	if top.IsWild() {
		return candidate.Color == activeColor
	}
	return candidate.Color == top.Color || candidate.Value == top.Value
}
