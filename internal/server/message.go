package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjack/internal/blackjack"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Decode unmarshals the message payload into v. An absent payload decodes as
// an empty object.
func (m *Message) Decode(v interface{}) error {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(m.Data, v)
}

// Client → Server Messages

type CreateGameData struct {
	PlayerName string `json:"playerName"`
	RoomName   string `json:"roomName"`
}

type JoinGameData struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

// GameRequestData addresses leave_game, restart_game, start_game, hit and
// stand. An empty GameID means the game the connection is in.
type GameRequestData struct {
	GameID string `json:"gameId,omitempty"`
}

// Server → Client Messages

type ConnectedData struct {
	ConnectionID string `json:"connectionId"`
}

type GameCreatedData struct {
	GameID string `json:"gameId"`
}

type GameLeftData struct {
	GameID string `json:"gameId"`
}

type GameListData struct {
	Games []blackjack.Summary `json:"games"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
