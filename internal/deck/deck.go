package deck

import (
	rand "math/rand/v2"
)

// Size is the number of cards in a standard deck.
const Size = 52

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a standard 52-card deck shuffled with rng
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, Size),
		rng:   rng,
	}
	d.Reset()
	return d
}

// FromCards creates a deck that deals the given cards in order. It is never
// shuffled unless Shuffle or Reset is called, which requires an rng.
func FromCards(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle randomizes the order of cards in the deck (Fisher-Yates)
func (d *Deck) Shuffle() {
	if d.rng == nil {
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card from the deck. ok is false when the
// deck is exhausted.
func (d *Deck) Draw() (card Card, ok bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}

	card = d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Reset restores the deck to a full 52-card deck and shuffles it
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}

	d.Shuffle()
}
