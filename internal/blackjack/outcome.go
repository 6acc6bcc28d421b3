package blackjack

import "strings"

// DealerWinsMessage is reported when no player wins or pushes.
const DealerWinsMessage = "Dealer Wins!"

// Result is a single player's outcome against the dealer.
type Result int

const (
	Lose Result = iota
	Win
	Push
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Push:
		return "push"
	default:
		return "lose"
	}
}

// Resolve compares a player against the dealer. A busted player loses even
// when the dealer also busts.
func Resolve(player, dealer Player) Result {
	switch {
	case player.IsBusted:
		return Lose
	case dealer.IsBusted:
		return Win
	case player.Score > dealer.Score:
		return Win
	case player.Score == dealer.Score:
		return Push
	default:
		return Lose
	}
}

// WinnerMessage builds the end-of-round message for players in seat order.
func WinnerMessage(players []Player, dealer Player) string {
	var winners []string
	for _, p := range players {
		if p.IsDealer {
			continue
		}
		switch Resolve(p, dealer) {
		case Win:
			winners = append(winners, p.Name)
		case Push:
			winners = append(winners, p.Name+" (Push)")
		}
	}

	if len(winners) == 0 {
		return DealerWinsMessage
	}
	return "Winners: " + strings.Join(winners, ", ")
}
