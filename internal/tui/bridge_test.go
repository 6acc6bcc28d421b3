package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/server"
)

func TestAttachForwardsServerEvents(t *testing.T) {
	logger := quietLogger()
	srv := server.NewServer(logger)
	service := server.NewGameService(srv, logger, quartz.NewReal(), server.ServiceOptions{Seed: 1})
	srv.SetGameService(service)
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		_ = srv.Stop()
		service.Close()
		ts.Close()
	}()

	c := client.NewClient(ts.URL, logger)
	require.NoError(t, c.Connect(context.Background()))

	msgs := make(chan tea.Msg, 32)
	detach := Attach(c, func(msg tea.Msg) {
		select {
		case msgs <- msg:
		default:
		}
	})

	next := func() tea.Msg {
		t.Helper()
		select {
		case msg := <-msgs:
			return msg
		case <-time.After(3 * time.Second):
			t.Fatal("timeout waiting for message")
			return nil
		}
	}

	require.NoError(t, c.CreateGame("Alice", "Bridge"))
	created, ok := next().(GameCreatedMsg)
	require.True(t, ok)
	assert.NotEmpty(t, created.GameID)

	state, ok := next().(StateMsg)
	require.True(t, ok)
	assert.Equal(t, created.GameID, state.State.ID)
	assert.Equal(t, blackjack.WaitingForPlayers, state.State.Status)

	require.NoError(t, c.JoinGame("missing", "Alice"))
	serverErr, ok := next().(ServerErrorMsg)
	require.True(t, ok)
	assert.Equal(t, server.ErrorCodeGameNotFound, serverErr.Code)

	require.NoError(t, c.ListGames())
	list, ok := next().(GameListMsg)
	require.True(t, ok)
	require.Len(t, list.Games, 1)

	require.NoError(t, c.LeaveGame())
	left, ok := next().(GameLeftMsg)
	require.True(t, ok)
	assert.Equal(t, created.GameID, left.GameID)

	detach()
	require.NoError(t, c.Disconnect())
	disconnected, ok := next().(DisconnectedMsg)
	require.True(t, ok)
	assert.NoError(t, disconnected.Err)
}
