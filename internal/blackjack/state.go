package blackjack

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

// DealerID is the player identifier reserved for the house.
const DealerID = "dealer"

// DealerName is the display name of the house.
const DealerName = "Dealer"

// Status is the lifecycle state of a room.
type Status int

const (
	WaitingForPlayers Status = iota
	InProgress
	Finished
)

var statusNames = [...]string{"waiting_for_players", "in_progress", "finished"}

func (s Status) String() string {
	if s < WaitingForPlayers || s > Finished {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	if s < WaitingForPlayers || s > Finished {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(string(text), name) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Player is a seat at the table. ID is the caller's connection identifier and
// is unique within a room.
type Player struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Hand       []deck.Card `json:"hand"`
	Score      int         `json:"score"`
	IsDealer   bool        `json:"isDealer"`
	IsBusted   bool        `json:"isBusted"`
	IsStanding bool        `json:"isStanding"`
}

// State is the full authoritative view of a room. Every emission carries a
// complete State; there are no deltas.
type State struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Players       []Player `json:"players"`
	Status        Status   `json:"status"`
	CurrentTurn   string   `json:"currentTurn,omitempty"`
	WinnerMessage string   `json:"winnerMessage,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p
		out.Players[i].Hand = make([]deck.Card, len(p.Hand))
		copy(out.Players[i].Hand, p.Hand)
	}
	return out
}

// Player returns the player with the given id.
func (s State) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Dealer returns the dealer, if one is seated.
func (s State) Dealer() (Player, bool) {
	for _, p := range s.Players {
		if p.IsDealer {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerCount returns the number of non-dealer players.
func (s State) PlayerCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsDealer {
			n++
		}
	}
	return n
}

func (s *State) find(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *State) dealer() *Player {
	for i := range s.Players {
		if s.Players[i].IsDealer {
			return &s.Players[i]
		}
	}
	return nil
}
