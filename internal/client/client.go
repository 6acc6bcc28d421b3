package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/server" // Reuse message types
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 54 * time.Second
)

// ErrNotInGame is returned by game actions when no game has been joined.
var ErrNotInGame = errors.New("not in a game")

// Client represents a WebSocket client for the blackjack server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	mu        sync.RWMutex
	connected bool
	connID    string
	gameID    string
	closeOnce sync.Once

	// Event handlers
	eventHandlers map[server.MessageType][]handlerEntry
	nextHandlerID int
}

// EventHandler is a function that handles incoming events. Handlers run on
// the client's event goroutine in arrival order and must not block.
type EventHandler func(*server.Message)

type handlerEntry struct {
	id      int
	handler EventHandler
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]handlerEntry),
	}
}

// WebSocketURL converts a server URL into its /ws endpoint.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", serverURL, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path += "/ws"
	}
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	wsURL, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(c.ctx)
	c.group = g
	g.Go(func() error { return c.readPump(gctx) })
	g.Go(func() error { return c.writePump(gctx) })
	g.Go(func() error { return c.eventProcessor(gctx) })

	// Tear the socket down once any pump stops
	go func() {
		<-gctx.Done()
		_ = conn.Close()
	}()

	c.logger.Info("Connected to server")
	return nil
}

// Wait blocks until the connection's pumps have stopped and returns the
// first error that stopped them.
func (c *Client) Wait() error {
	if c.group == nil {
		return nil
	}
	err := c.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		c.cancel()

		if conn != nil {
			_ = conn.Close() // Ignore close errors during shutdown
		}

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed when the client is disconnected
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return fmt.Errorf("failed to write message: %w", err)
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("failed to ping: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor(ctx context.Context) error {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleMessage tracks session state and dispatches messages to handlers
func (c *Client) handleMessage(msg *server.Message) {
	c.track(msg)

	c.mu.RLock()
	entries := append([]handlerEntry(nil), c.eventHandlers[msg.Type]...)
	c.mu.RUnlock()

	if len(entries) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, e := range entries {
		e.handler(msg)
	}
}

// track follows the connection id and the game this client is seated in
func (c *Client) track(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeConnected:
		var data server.ConnectedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.mu.Lock()
			c.connID = data.ConnectionID
			c.mu.Unlock()
		}

	case server.MessageTypeGameCreated:
		var data server.GameCreatedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			c.SetGameID(data.GameID)
		}

	case server.MessageTypeGameUpdated:
		var state blackjack.State
		if err := json.Unmarshal(msg.Data, &state); err == nil {
			if _, seated := state.Player(c.ConnectionID()); seated {
				c.SetGameID(state.ID)
			}
		}

	case server.MessageTypeGameLeft:
		var data server.GameLeftData
		if err := json.Unmarshal(msg.Data, &data); err == nil && data.GameID == c.GameID() {
			c.SetGameID("")
		}
	}
}

// AddEventHandler adds an event handler for a specific message type and
// returns a function that removes it
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextHandlerID++
	id := c.nextHandlerID
	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handlerEntry{id: id, handler: handler})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.eventHandlers[messageType]
		for i, e := range entries {
			if e.id == id {
				c.eventHandlers[messageType] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) request(messageType server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

func (c *Client) gameRequest(messageType server.MessageType) error {
	gameID := c.GameID()
	if gameID == "" {
		return ErrNotInGame
	}
	return c.request(messageType, server.GameRequestData{GameID: gameID})
}

// CreateGame asks the server for a new game seated with playerName
func (c *Client) CreateGame(playerName, roomName string) error {
	return c.request(server.MessageTypeCreateGame, server.CreateGameData{
		PlayerName: playerName,
		RoomName:   roomName,
	})
}

// JoinGame joins an existing game
func (c *Client) JoinGame(gameID, playerName string) error {
	return c.request(server.MessageTypeJoinGame, server.JoinGameData{
		GameID:     gameID,
		PlayerName: playerName,
	})
}

// LeaveGame leaves the current game
func (c *Client) LeaveGame() error {
	return c.gameRequest(server.MessageTypeLeaveGame)
}

// RestartGame resets the current game for a new round
func (c *Client) RestartGame() error {
	return c.gameRequest(server.MessageTypeRestartGame)
}

// StartGame deals a new round in the current game
func (c *Client) StartGame() error {
	return c.gameRequest(server.MessageTypeStartGame)
}

// Hit asks for another card
func (c *Client) Hit() error {
	return c.gameRequest(server.MessageTypeHit)
}

// Stand ends this player's turn
func (c *Client) Stand() error {
	return c.gameRequest(server.MessageTypeStand)
}

// ListGames requests a list of live games
func (c *Client) ListGames() error {
	return c.request(server.MessageTypeListGames, struct{}{})
}

// SetGameID sets the current game ID
func (c *Client) SetGameID(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
}

// GameID returns the current game ID
func (c *Client) GameID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID
}

// ConnectionID returns the id the server assigned to this connection
func (c *Client) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	remove := c.AddEventHandler(messageType, func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-responseChan:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}
