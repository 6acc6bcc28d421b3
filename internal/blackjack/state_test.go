package blackjack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

func TestStatusText(t *testing.T) {
	for _, s := range []Status{WaitingForPlayers, InProgress, Finished} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var got Status
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("paused")))

	_, err := Status(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestStateJSON(t *testing.T) {
	s := State{
		ID:     "01",
		Name:   "Table",
		Status: InProgress,
		Players: []Player{
			{ID: "a", Name: "Alice", Hand: deck.MustParseCards("As Kd"), Score: 21},
		},
		CurrentTurn: "a",
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "in_progress", raw["status"])
	assert.Equal(t, "a", raw["currentTurn"])
	assert.NotContains(t, raw, "winnerMessage")

	players := raw["players"].([]any)
	alice := players[0].(map[string]any)
	assert.Equal(t, false, alice["isDealer"])
	assert.Len(t, alice["hand"], 2)
}

func TestStateCloneKeepsEmptyHands(t *testing.T) {
	s := State{Players: []Player{{ID: "a", Hand: []deck.Card{}}}}

	data, err := json.Marshal(s.Clone())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hand":[]`)
}
