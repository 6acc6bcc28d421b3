package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/blackjack"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	id          string
	conn        *websocket.Conn
	send        chan *Message
	roomID      string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:          id,
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn").With("conn", id),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// ID returns the connection identifier, which doubles as the player id
func (c *Connection) ID() string {
	return c.id
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
			err = ErrConnectionClosed
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetRoom associates this connection with a game
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// RoomID returns the associated game id
func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "Malformed message")
			continue
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "game", c.RoomID())

	switch msg.Type {
	case MessageTypeCreateGame:
		var data CreateGameData
		if err := msg.Decode(&data); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "Failed to parse create game data")
			return
		}
		c.handleCreateGame(data)

	case MessageTypeJoinGame:
		var data JoinGameData
		if err := msg.Decode(&data); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "Failed to parse join game data")
			return
		}
		c.handleJoinGame(data)

	case MessageTypeLeaveGame, MessageTypeRestartGame, MessageTypeStartGame, MessageTypeHit, MessageTypeStand:
		var data GameRequestData
		if err := msg.Decode(&data); err != nil {
			c.sendError(ErrorCodeInvalidMessage, "Failed to parse "+msg.Type.String()+" data")
			return
		}
		c.handleGameRequest(msg.Type, data)

	case MessageTypeListGames:
		c.handleListGames()

	default:
		c.sendError(ErrorCodeUnknownMessageType, "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

// sendServiceError maps service errors onto wire error codes
func (c *Connection) sendServiceError(err error) {
	if errors.Is(err, blackjack.ErrRoomNotFound) {
		c.sendError(ErrorCodeGameNotFound, "Game not found")
		return
	}
	c.logger.Error("Game service error", "error", err)
	c.sendError(ErrorCodeInvalidRequest, err.Error())
}

func (c *Connection) handleCreateGame(data CreateGameData) {
	c.logger.Info("Create game request", "player", data.PlayerName, "room", data.RoomName)

	if data.PlayerName == "" {
		c.sendError(ErrorCodeInvalidRequest, "Player name required")
		return
	}

	c.leaveCurrent("")

	state, err := c.gameService.CreateGame(c.id, data.PlayerName, data.RoomName)
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.SetRoom(state.ID)
}

func (c *Connection) handleJoinGame(data JoinGameData) {
	c.logger.Info("Join game request", "game", data.GameID, "player", data.PlayerName)

	if data.GameID == "" || data.PlayerName == "" {
		c.sendError(ErrorCodeInvalidRequest, "Game id and player name required")
		return
	}

	state, seated, err := c.gameService.JoinGame(data.GameID, c.id, data.PlayerName)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	if !seated {
		// Keep the current seat and show the caller the table as it stands
		update, err := NewMessage(MessageTypeGameUpdated, state)
		if err != nil {
			c.logger.Error("Failed to create game update", "error", err)
			return
		}
		_ = c.SendMessage(update) // Ignore send errors
		return
	}

	c.leaveCurrent(state.ID)
	c.SetRoom(state.ID)
}

func (c *Connection) handleGameRequest(msgType MessageType, data GameRequestData) {
	roomID := data.GameID
	if roomID == "" {
		roomID = c.RoomID()
	}
	if roomID == "" {
		c.sendError(ErrorCodeInvalidRequest, "Not in a game")
		return
	}

	if msgType != MessageTypeLeaveGame {
		state, err := c.gameService.GetGame(roomID)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		if _, seated := state.Player(c.id); !seated {
			c.sendError(ErrorCodeInvalidRequest, "Not seated in this game")
			return
		}
	}

	var err error
	switch msgType {
	case MessageTypeLeaveGame:
		err = c.gameService.LeaveGame(roomID, c.id)
		if err == nil {
			if c.RoomID() == roomID {
				c.SetRoom("")
			}
			c.sendGameLeft(roomID)
		}
	case MessageTypeRestartGame:
		err = c.gameService.RestartGame(roomID)
	case MessageTypeStartGame:
		err = c.gameService.StartGame(roomID)
	case MessageTypeHit:
		err = c.gameService.Hit(roomID, c.id)
	case MessageTypeStand:
		err = c.gameService.Stand(roomID, c.id)
	}

	if err != nil {
		c.sendServiceError(err)
	}
}

func (c *Connection) handleListGames() {
	response, _ := NewMessage(MessageTypeGameList, GameListData{
		Games: c.gameService.ListGames(),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

// leaveCurrent leaves the connection's current game unless it is keep.
func (c *Connection) leaveCurrent(keep string) {
	current := c.RoomID()
	if current == "" || current == keep {
		return
	}
	c.SetRoom("")
	if err := c.gameService.LeaveGame(current, c.id); err != nil {
		c.logger.Debug("Failed to leave previous game", "game", current, "error", err)
		return
	}
	c.sendGameLeft(current)
}

func (c *Connection) sendGameLeft(roomID string) {
	left, _ := NewMessage(MessageTypeGameLeft, GameLeftData{GameID: roomID})
	_ = c.SendMessage(left) // Ignore send errors
}
