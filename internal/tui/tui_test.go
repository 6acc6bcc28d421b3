package tui

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
)

func TestMain(m *testing.M) {
	SetColor(false)
	os.Exit(m.Run())
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// fakeActions records the requests made by the model
type fakeActions struct {
	id    string
	calls []string
	err   error
}

func (f *fakeActions) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeActions) CreateGame(playerName, roomName string) error {
	return f.record("create " + playerName + "|" + roomName)
}
func (f *fakeActions) JoinGame(gameID, playerName string) error {
	return f.record("join " + gameID + "|" + playerName)
}
func (f *fakeActions) LeaveGame() error { return f.record("leave") }
func (f *fakeActions) RestartGame() error { return f.record("restart") }
func (f *fakeActions) StartGame() error { return f.record("start") }
func (f *fakeActions) Hit() error { return f.record("hit") }
func (f *fakeActions) Stand() error { return f.record("stand") }
func (f *fakeActions) ListGames() error { return f.record("list") }
func (f *fakeActions) ConnectionID() string { return f.id }

func newModel(t *testing.T) (*TUIModel, *fakeActions) {
	t.Helper()
	actions := &fakeActions{id: "alice"}
	m := NewTUIModel(actions, "Alice", quietLogger())
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, actions
}

func typeLine(m *TUIModel, line string) tea.Cmd {
	m.actionInput.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func inProgress() blackjack.State {
	return blackjack.State{
		ID:     "g1",
		Name:   "Alice's table",
		Status: blackjack.InProgress,
		Players: []blackjack.Player{
			{ID: "alice", Name: "Alice", Hand: deck.MustParseCards("Ah 7c"), Score: 18},
			{ID: "bob", Name: "Bob", Hand: deck.MustParseCards("Td 5s"), Score: 15},
			{ID: blackjack.DealerID, Name: blackjack.DealerName, IsDealer: true,
				Hand: []deck.Card{deck.MustParseCards("Kh")[0], hidden(deck.MustParseCards("9s")[0])}, Score: 19},
		},
		CurrentTurn: "alice",
	}
}

func hidden(c deck.Card) deck.Card {
	c.Hidden = true
	return c
}

func TestCommands(t *testing.T) {
	m, actions := newModel(t)

	for _, line := range []string{
		"/create High Rollers",
		"/join g42",
		"/start",
		"hit",
		"/s",
		"/restart",
		"/leave",
		"/list",
		"",
	} {
		assert.Nil(t, typeLine(m, line), line)
	}

	assert.Equal(t, []string{
		"create Alice|High Rollers",
		"join g42|Alice",
		"start",
		"hit",
		"stand",
		"restart",
		"leave",
		"list",
	}, actions.calls)
	assert.Empty(t, m.actionInput.Value(), "input is cleared after submit")
}

func TestCommandErrorsAreLogged(t *testing.T) {
	m, actions := newModel(t)
	actions.err = errors.New("not in a game")

	typeLine(m, "/hit")
	typeLine(m, "/join")
	typeLine(m, "/double")

	logs := strings.Join(m.Log(), "\n")
	assert.Contains(t, logs, "hit: not in a game")
	assert.Contains(t, logs, "Usage: /join <game id>")
	assert.Contains(t, logs, `Unknown command "/double"`)
	assert.Equal(t, []string{"hit"}, actions.calls)
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)

	cmd := typeLine(m, "/quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestDisconnectQuits(t *testing.T) {
	m, _ := newModel(t)

	_, cmd := m.Update(DisconnectedMsg{Err: errors.New("connection lost")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRenderTableHidesDealerCard(t *testing.T) {
	m, _ := newModel(t)
	m.Update(StateMsg{State: inProgress()})

	table := m.RenderTable()
	assert.Contains(t, table, "Alice's table")
	assert.Contains(t, table, "In progress")
	assert.Contains(t, table, "> Alice (you)")
	assert.Contains(t, table, "[A♥ 7♣]  (18)")
	assert.Contains(t, table, "[K♥ ??]  (?)")
	assert.NotContains(t, table, "9♠")
	assert.NotContains(t, table, "(19)")

	view := m.View()
	assert.Contains(t, view, "Actions: [hit] [stand]")
	assert.Contains(t, strings.Join(m.Log(), "\n"), "Your turn")
}

func TestStateTransitionsAreLogged(t *testing.T) {
	m, _ := newModel(t)

	state := inProgress()
	m.Update(StateMsg{State: state})

	state.CurrentTurn = "bob"
	state.Players[0].IsStanding = true
	m.Update(StateMsg{State: state})

	state.Status = blackjack.Finished
	state.CurrentTurn = ""
	state.WinnerMessage = "Dealer wins with 19!"
	state.Players[2].Hand[1].Hidden = false
	m.Update(StateMsg{State: state})

	logs := strings.Join(m.Log(), "\n")
	assert.Contains(t, logs, `Joined "Alice's table" (g1)`)
	assert.Contains(t, logs, "New round")
	assert.Contains(t, logs, "Bob to act")
	assert.Contains(t, logs, "Dealer wins with 19!")

	table := m.RenderTable()
	assert.Contains(t, table, "[K♥ 9♠]  (19)")
	assert.Contains(t, table, "(18) stand")

	m.Update(GameLeftMsg{GameID: "g1"})
	_, ok := m.State()
	assert.False(t, ok)
	assert.Contains(t, m.RenderTable(), "Not at a table")
}

func TestGameListAndErrors(t *testing.T) {
	m, _ := newModel(t)

	m.Update(GameListMsg{})
	m.Update(GameListMsg{Games: []blackjack.Summary{
		{ID: "g1", Name: "One", Status: blackjack.WaitingForPlayers, Players: 2},
	}})
	m.Update(ServerErrorMsg{Code: "game_not_found", Message: "Game not found"})

	logs := strings.Join(m.Log(), "\n")
	assert.Contains(t, logs, "No games running")
	assert.Contains(t, logs, "1 game(s)")
	assert.Contains(t, logs, "g1")
	assert.Contains(t, logs, "Error: Game not found (game_not_found)")
}

func TestViewBeforeSizing(t *testing.T) {
	m := NewTUIModel(&fakeActions{}, "Alice", quietLogger())
	assert.Equal(t, "Loading...", m.View())
}
