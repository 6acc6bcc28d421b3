package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startServer(t *testing.T) string {
	t.Helper()

	logger := testLogger()
	srv := server.NewServer(logger)
	service := server.NewGameService(srv, logger, quartz.NewReal(), server.ServiceOptions{Seed: 7})
	srv.SetGameService(service)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		service.Close()
		ts.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.WaitForHealthy(ctx, ts.URL))
	return ts.URL
}

// connect dials the server and waits until the connection id is known.
func connect(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })

	require.Eventually(t, func() bool { return c.ConnectionID() != "" },
		3*time.Second, 10*time.Millisecond)
	return c
}

func decodeState(t *testing.T, msg *server.Message) blackjack.State {
	t.Helper()
	var state blackjack.State
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	return state
}

// roundTrip registers for want before send runs so the reply cannot be missed.
func roundTrip(t *testing.T, c *Client, want server.MessageType, send func() error) *server.Message {
	t.Helper()

	replies := make(chan *server.Message, 1)
	remove := c.AddEventHandler(want, func(msg *server.Message) {
		select {
		case replies <- msg:
		default:
		}
	})
	defer remove()

	require.NoError(t, send())
	select {
	case msg := <-replies:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for %s", want)
		return nil
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://cards.example.com/", want: "wss://cards.example.com/ws"},
		{in: "ws://localhost:8080/ws", want: "ws://localhost:8080/ws"},
		{in: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebSocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGameActionsRequireAGame(t *testing.T) {
	c := NewClient("http://localhost:0", testLogger())
	defer c.Disconnect()

	assert.ErrorIs(t, c.StartGame(), ErrNotInGame)
	assert.ErrorIs(t, c.Hit(), ErrNotInGame)
	assert.ErrorIs(t, c.Stand(), ErrNotInGame)
	assert.ErrorIs(t, c.RestartGame(), ErrNotInGame)
	assert.ErrorIs(t, c.LeaveGame(), ErrNotInGame)
}

func TestCreateGameTracksGameID(t *testing.T) {
	t.Parallel()
	url := startServer(t)
	c := connect(t, url)

	updates := make(chan *server.Message, 16)
	c.AddEventHandler(server.MessageTypeGameUpdated, func(msg *server.Message) {
		updates <- msg
	})

	created := roundTrip(t, c, server.MessageTypeGameCreated, func() error {
		return c.CreateGame("Alice", "Client Table")
	})

	var data server.GameCreatedData
	require.NoError(t, json.Unmarshal(created.Data, &data))
	assert.Equal(t, data.GameID, c.GameID())

	select {
	case msg := <-updates:
		state := decodeState(t, msg)
		assert.Equal(t, "Client Table", state.Name)
		_, seated := state.Player(c.ConnectionID())
		assert.True(t, seated)
	case <-time.After(3 * time.Second):
		t.Fatal("no game update after create")
	}

	roundTrip(t, c, server.MessageTypeGameLeft, c.LeaveGame)
	assert.Empty(t, c.GameID())
}

func TestHandlersRunInArrivalOrder(t *testing.T) {
	t.Parallel()
	url := startServer(t)
	c := connect(t, url)

	var (
		mu    sync.Mutex
		order []server.MessageType
	)
	record := func(msg *server.Message) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, msg.Type)
	}
	c.AddEventHandler(server.MessageTypeGameCreated, record)
	remove := c.AddEventHandler(server.MessageTypeGameUpdated, record)

	require.NoError(t, c.CreateGame("Alice", ""))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []server.MessageType{server.MessageTypeGameCreated, server.MessageTypeGameUpdated}, order)
	mu.Unlock()

	remove()
	roundTrip(t, c, server.MessageTypeGameUpdated, c.StartGame)

	mu.Lock()
	assert.Len(t, order, 2, "removed handler is not called")
	mu.Unlock()
}

func TestTwoClientsPlayARound(t *testing.T) {
	t.Parallel()
	url := startServer(t)
	alice := connect(t, url)
	bob := connect(t, url)

	var (
		mu     sync.Mutex
		latest blackjack.State
	)
	bob.AddEventHandler(server.MessageTypeGameUpdated, func(msg *server.Message) {
		var state blackjack.State
		if err := json.Unmarshal(msg.Data, &state); err == nil {
			mu.Lock()
			latest = state
			mu.Unlock()
		}
	})
	seen := func(match func(blackjack.State) bool) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return match(latest)
		}
	}
	turnOf := func(id string) func(blackjack.State) bool {
		return func(s blackjack.State) bool {
			return s.Status == blackjack.InProgress && s.CurrentTurn == id
		}
	}

	roundTrip(t, alice, server.MessageTypeGameCreated, func() error {
		return alice.CreateGame("Alice", "")
	})

	require.NoError(t, bob.JoinGame(alice.GameID(), "Bob"))
	require.Eventually(t, func() bool { return bob.GameID() == alice.GameID() },
		3*time.Second, 10*time.Millisecond)

	list := roundTrip(t, bob, server.MessageTypeGameList, bob.ListGames)
	var games server.GameListData
	require.NoError(t, json.Unmarshal(list.Data, &games))
	require.Len(t, games.Games, 1)
	assert.Equal(t, 2, games.Games[0].Players)

	require.NoError(t, alice.StartGame())
	require.Eventually(t, seen(turnOf(alice.ConnectionID())), 3*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Stand())
	require.Eventually(t, seen(turnOf(bob.ConnectionID())), 3*time.Second, 10*time.Millisecond)

	require.NoError(t, bob.Stand())
	require.Eventually(t, seen(func(s blackjack.State) bool {
		return s.Status == blackjack.Finished
	}), 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.NotEmpty(t, latest.WinnerMessage)
	mu.Unlock()
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	url := startServer(t)
	c := connect(t, url)

	assert.True(t, c.IsConnected())
	require.NoError(t, c.Disconnect())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("client not done after disconnect")
	}
	assert.NoError(t, c.Wait())
	assert.False(t, c.IsConnected())
}

func TestWaitForMessage(t *testing.T) {
	t.Parallel()
	url := startServer(t)
	c := connect(t, url)

	_, err := c.WaitForMessage(server.MessageTypeGameList, 50*time.Millisecond)
	assert.Error(t, err, "nothing was requested")

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = c.ListGames()
	}()
	msg, err := c.WaitForMessage(server.MessageTypeGameList, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, server.MessageTypeGameList, msg.Type)
}

func TestFetchGames(t *testing.T) {
	t.Parallel()
	url := startServer(t)

	games, err := FetchGames(context.Background(), url)
	require.NoError(t, err)
	assert.Empty(t, games)

	c := connect(t, url)
	roundTrip(t, c, server.MessageTypeGameCreated, func() error {
		return c.CreateGame("Alice", "Fetched")
	})

	wsURL, err := WebSocketURL(url)
	require.NoError(t, err)
	games, err = FetchGames(context.Background(), wsURL)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Fetched", games[0].Name)
	assert.Equal(t, c.GameID(), games[0].ID)
}
