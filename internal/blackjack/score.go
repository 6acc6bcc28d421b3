package blackjack

import "github.com/lox/blackjack/internal/deck"

const (
	// Blackjack is the best possible total.
	Blackjack = 21

	// DealerStandsOn is the total at which the dealer stops drawing.
	DealerStandsOn = 17
)

// Score returns the best total for hand. Aces count 11 and are downgraded to
// 1, one at a time, while the total is over 21.
func Score(hand []deck.Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}

	for total > Blackjack && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
