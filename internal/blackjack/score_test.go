package blackjack

import (
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
)

func TestScore(t *testing.T) {
	tests := []struct {
		hand string
		want int
	}{
		{"", 0},
		{"5s 6d", 11},
		{"As Kh", 21},
		{"As Ad", 12},
		{"As Ad Kh", 12},
		{"As 6d", 17},
		{"As 6d Kh", 17},
		{"As Ad Ah", 13},
		{"As Ad Ah Kh", 13},
		{"As Ad Ah Ac", 14},
		{"Kh Qd 5c", 25},
		{"Js Qh", 20},
		{"As 9d Ah", 21},
		{"10s 9d 2c", 21},
	}

	for _, tt := range tests {
		t.Run(tt.hand, func(t *testing.T) {
			if got := Score(deck.MustParseCards(tt.hand)); got != tt.want {
				t.Errorf("Score(%q) = %d, want %d", tt.hand, got, tt.want)
			}
		})
	}
}

func TestScoreIgnoresHidden(t *testing.T) {
	hand := deck.MustParseCards("Ks 7h")
	hand[1].Hidden = true

	if got := Score(hand); got != 17 {
		t.Errorf("hidden cards still count toward the score, got %d", got)
	}
}

func TestScoreDowngradesEveryUsableAce(t *testing.T) {
	rng := randutil.New(21)

	for i := 0; i < 5000; i++ {
		d := deck.New(rng)
		hand := make([]deck.Card, 2+rng.IntN(7))
		for j := range hand {
			hand[j], _ = d.Draw()
		}

		sum, aces := 0, 0
		for _, c := range hand {
			sum += c.Value()
			if c.IsAce() {
				aces++
			}
		}

		got := Score(hand)
		if got > Blackjack && got != sum-10*aces {
			t.Fatalf("Score(%v) = %d with an Ace left at 11 (sum %d, aces %d)", hand, got, sum, aces)
		}

		downgraded := (sum - got) / 10
		if (sum-got)%10 != 0 || downgraded < 0 || downgraded > aces {
			t.Fatalf("Score(%v) = %d is not reachable from sum %d with %d aces", hand, got, sum, aces)
		}
		if downgraded > 0 && got+10 <= Blackjack {
			t.Fatalf("Score(%v) = %d downgraded more Aces than needed", hand, got)
		}
	}
}
