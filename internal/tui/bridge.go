package tui

import (
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/server"
)

// Attach forwards server events from c to send as tea messages, typically
// tea.Program.Send. It must be called after c.Connect. The returned function
// removes the handlers.
func Attach(c *client.Client, send func(tea.Msg)) func() {
	removers := []func(){
		c.AddEventHandler(server.MessageTypeGameUpdated, func(msg *server.Message) {
			var state blackjack.State
			if err := json.Unmarshal(msg.Data, &state); err != nil {
				return
			}
			send(StateMsg{State: state})
		}),
		c.AddEventHandler(server.MessageTypeGameList, func(msg *server.Message) {
			var data server.GameListData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			send(GameListMsg{Games: data.Games})
		}),
		c.AddEventHandler(server.MessageTypeGameCreated, func(msg *server.Message) {
			var data server.GameCreatedData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			send(GameCreatedMsg{GameID: data.GameID})
		}),
		c.AddEventHandler(server.MessageTypeGameLeft, func(msg *server.Message) {
			var data server.GameLeftData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			send(GameLeftMsg{GameID: data.GameID})
		}),
		c.AddEventHandler(server.MessageTypeError, func(msg *server.Message) {
			var data server.ErrorData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			send(ServerErrorMsg{Code: data.Code, Message: data.Message})
		}),
	}

	go func() {
		send(DisconnectedMsg{Err: c.Wait()})
	}()

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}
