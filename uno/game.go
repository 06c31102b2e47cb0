package uno

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrGameOver     = errors.New("game is already over")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrCardNotHeld  = errors.New("card not in hand")
	ErrIncompatible = errors.New("card not compatible with discard")
	ErrOutOfCards   = errors.New("draw and discard piles exhausted")
)

const DefaultHandSize = 7

// Game is the single mutable aggregate for one session. The host builds
// it at deal time and it is replaced wholesale on every state snapshot a
// peer receives; it is never mutated concurrently (see p2p.Node).
//
// DrawPile has pop-from-end semantics. The last element of DiscardPile
// is the visible top card. TurnIndex is always taken modulo len(Players).
type Game struct {
	Players     []string          `json:"players"`
	Hands       map[string][]Card `json:"hands"`
	DrawPile    []Card            `json:"drawPile"`
	DiscardPile []Card            `json:"discardPile"`
	TurnIndex   int               `json:"turnIndex"`
	Direction   int               `json:"direction"`
	ActiveColor string            `json:"activeColor"`
	Winner      string            `json:"winner"`

	rng *rand.Rand
}

// NewGame builds a game with a freshly shuffled 108-card draw pile.
// The same seed reproduces the same deal.
func NewGame(seed int64) *Game {
	rng := rand.New(rand.NewSource(seed))
	return &Game{
		Players:     []string{},
		Hands:       map[string][]Card{},
		DrawPile:    NewDeck(rng),
		DiscardPile: []Card{},
		Direction:   1,
		rng:         rng,
	}
}

// random returns the game's random source, seeding one from the wall
// clock for games rebuilt from a snapshot.
func (g *Game) random() *rand.Rand {
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g.rng
}

// TopCard returns the visible top of the discard pile.
func (g *Game) TopCard() (Card, bool) {
	if len(g.DiscardPile) == 0 {
		return Card{}, false
	}
	return g.DiscardPile[len(g.DiscardPile)-1], true
}

// CurrentTurn returns the participant whose turn it is, or "" before setup.
func (g *Game) CurrentTurn() string {
	if len(g.Players) == 0 {
		return ""
	}
	return g.Players[mod(g.TurnIndex, len(g.Players))]
}

// CardCount sums every card in existence across all containers.
func (g *Game) CardCount() int {
	n := len(g.DrawPile) + len(g.DiscardPile)
	for _, hand := range g.Hands {
		n += len(hand)
	}
	return n
}

// Setup fixes the turn order, deals handSize cards to every participant
// and seeds the discard pile with the first non-wild card drawn; wild
// cards drawn as seed go back into the draw pile at a random position.
func (g *Game) Setup(players []string, handSize int) error {
	if handSize <= 0 {
		handSize = DefaultHandSize
	}
	g.Players = append([]string{}, players...)
	for _, p := range g.Players {
		for i := 0; i < handSize; i++ {
			card, ok := g.popDraw()
			if !ok {
				return ErrOutOfCards
			}
			g.Hands[p] = append(g.Hands[p], card)
		}
	}
	for {
		top, ok := g.popDraw()
		if !ok {
			return ErrOutOfCards
		}
		if !top.IsWild() {
			g.DiscardPile = append(g.DiscardPile, top)
			g.ActiveColor = top.Color
			return nil
		}
		idx := g.random().Intn(len(g.DrawPile) + 1)
		g.DrawPile = append(g.DrawPile, Card{})
		copy(g.DrawPile[idx+1:], g.DrawPile[idx:])
		g.DrawPile[idx] = top
	}
}

// Draw moves n cards from the draw pile into the participant's hand,
// recycling the discard pile (minus its top card) whenever the draw
// pile runs dry. It only fails if both piles are jointly exhausted,
// which the 108-card invariant makes unreachable in a live game.
func (g *Game) Draw(player string, n int) error {
	for i := 0; i < n; i++ {
		if len(g.DrawPile) == 0 {
			g.recycleDiscards()
		}
		card, ok := g.popDraw()
		if !ok {
			return ErrOutOfCards
		}
		g.Hands[player] = append(g.Hands[player], card)
	}
	return nil
}

// Validate decides whether a play would be legal right now. The checks
// are ordered: finished game, turn, possession, then compatibility.
// Either wild variant is unconditionally valid; chosenColor is not
// inspected at this stage.
func (g *Game) Validate(player string, card Card, chosenColor string) error {
	if g.Winner != "" {
		return ErrGameOver
	}
	if player != g.CurrentTurn() {
		return ErrNotYourTurn
	}
	if !g.holds(player, card) {
		return ErrCardNotHeld
	}
	if card.IsWild() {
		return nil
	}
	top, _ := g.TopCard()
	if !Compatible(card, top, g.ActiveColor) {
		return ErrIncompatible
	}
	return nil
}

// Apply mutates the game with an already-validated play: the card moves
// from hand to discard, the active color updates, special values take
// effect and the turn advances by one or two steps of the direction.
func (g *Game) Apply(player string, card Card, chosenColor string) {
	g.removeFromHand(player, card)
	g.DiscardPile = append(g.DiscardPile, card)

	if card.IsWild() {
		if !validColor(chosenColor) {
			chosenColor = Colors[g.random().Intn(len(Colors))]
		}
		g.ActiveColor = chosenColor
	} else {
		g.ActiveColor = card.Color
	}

	steps := 1
	switch card.Value {
	case ValueSkip:
		steps = 2
	case ValueReverse:
		g.Direction = -g.Direction
	case ValueDrawTwo:
		g.penalize(2)
		steps = 2
	case ValueDrawFour:
		g.penalize(4)
		steps = 2
	}

	if len(g.Hands[player]) == 0 && g.Winner == "" {
		g.Winner = player
	}
	g.advance(steps)
}

// penalize makes the next participant in turn order draw n cards.
func (g *Game) penalize(n int) {
	target := g.Players[mod(g.TurnIndex+g.Direction, len(g.Players))]
	// exhaustion is unreachable while the 108-card invariant holds
	_ = g.Draw(target, n)
}

func (g *Game) advance(steps int) {
	for i := 0; i < steps; i++ {
		g.TurnIndex = mod(g.TurnIndex+g.Direction, len(g.Players))
	}
}

func (g *Game) popDraw() (Card, bool) {
	if len(g.DrawPile) == 0 {
		return Card{}, false
	}
	card := g.DrawPile[len(g.DrawPile)-1]
	g.DrawPile = g.DrawPile[:len(g.DrawPile)-1]
	return card, true
}

// recycleDiscards shuffles everything below the discard top back into
// the draw pile, leaving only the top card behind.
func (g *Game) recycleDiscards() {
	if len(g.DiscardPile) <= 1 {
		return
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	rest := append([]Card{}, g.DiscardPile[:len(g.DiscardPile)-1]...)
	shuffle(rest, g.random())
	g.DrawPile = rest
	g.DiscardPile = []Card{top}
}

func (g *Game) holds(player string, card Card) bool {
	for _, c := range g.Hands[player] {
		if c == card {
			return true
		}
	}
	return false
}

func (g *Game) removeFromHand(player string, card Card) {
	hand := g.Hands[player]
	for i, c := range hand {
		if c == card {
			g.Hands[player] = append(hand[:i], hand[i+1:]...)
			return
		}
	}
}

func validColor(color string) bool {
	for _, c := range Colors {
		if c == color {
			return true
		}
	}
	return false
}

// mod is a floored modulo so descending turn order wraps correctly.
func mod(i, n int) int {
	return ((i % n) + n) % n
}
