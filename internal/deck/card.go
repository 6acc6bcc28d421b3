package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitNames = [...]string{"spades", "hearts", "diamonds", "clubs"}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Name returns the lower-case wire name of the suit ("hearts").
func (s Suit) Name() string {
	if s < Spades || s > Clubs {
		return "unknown"
	}
	return suitNames[s]
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

func (s Suit) MarshalText() ([]byte, error) {
	if s < Spades || s > Clubs {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(s.Name()), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	for i, name := range suitNames {
		if strings.EqualFold(string(text), name) {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", text)
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

func (r Rank) MarshalText() ([]byte, error) {
	if r < Two || r > Ace {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	rank, err := parseRank(string(text))
	if err != nil {
		return err
	}
	*r = rank
	return nil
}

// Card represents a playing card. Hidden is only ever set on the dealer's
// hole card while players are still acting.
type Card struct {
	Suit   Suit   `json:"suit"`
	Rank   Rank   `json:"rank"`
	Image  string `json:"image"`
	Hidden bool   `json:"hidden"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{
		Suit:  suit,
		Rank:  rank,
		Image: fmt.Sprintf("cards/%s_%s.png", suit.Name(), rank),
	}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Value returns the blackjack value of the card. Aces count 11 here; scoring
// downgrades them to 1 as needed.
func (c Card) Value() int {
	switch {
	case c.Rank >= Two && c.Rank <= Nine:
		return int(c.Rank)
	case c.Rank >= Ten && c.Rank <= King:
		return 10
	case c.Rank == Ace:
		return 11
	default:
		return 0
	}
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// ParseCards parses whitespace separated card notation.
// Format: "As Kh Td 10c 9s" where each card is [Rank][Suit]
// Ranks: A, K, Q, J, T or 10, 9 .. 2
// Suits: s (spades), h (hearts), d (diamonds), c (clubs)
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for i, field := range fields {
		if len(field) < 2 {
			return nil, fmt.Errorf("incomplete card %q at position %d", field, i)
		}

		rank, err := parseRank(field[:len(field)-1])
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}

		suit, err := parseSuit(field[len(field)-1])
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}

		cards = append(cards, NewCard(suit, rank))
	}
	return cards, nil
}

// MustParseCards parses cards and panics on error (for tests)
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse cards '%s': %v", s, err))
	}
	return cards
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "A":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "T", "10":
		return Ten, nil
	case "9":
		return Nine, nil
	case "8":
		return Eight, nil
	case "7":
		return Seven, nil
	case "6":
		return Six, nil
	case "5":
		return Five, nil
	case "4":
		return Four, nil
	case "3":
		return Three, nil
	case "2":
		return Two, nil
	default:
		return 0, fmt.Errorf("unknown rank %q", s)
	}
}

func parseSuit(c byte) (Suit, error) {
	switch c {
	case 's', 'S':
		return Spades, nil
	case 'h', 'H':
		return Hearts, nil
	case 'd', 'D':
		return Diamonds, nil
	case 'c', 'C':
		return Clubs, nil
	default:
		return 0, fmt.Errorf("unknown suit '%c'", c)
	}
}
