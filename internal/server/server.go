package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/blackjack"
)

const shutdownTimeout = 5 * time.Second

// Server represents the WebSocket server
type Server struct {
	upgrader    websocket.Upgrader
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	gameService *GameService
	mux         *http.ServeMux
	runOnce     sync.Once
}

// NewServer creates a new WebSocket server
func NewServer(logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients are served from anywhere
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/games", s.handleGames)

	return s
}

// SetGameService sets the game service for the server
func (s *Server) SetGameService(gameService *GameService) {
	s.gameService = gameService
}

// Handler returns the HTTP handler and starts the connection lifecycle loop.
func (s *Server) Handler() http.Handler {
	s.runOnce.Do(func() { go s.run() })
	return s.mux
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down and closes
// every connection.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down WebSocket server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		_ = s.Stop()
		return err
	})

	return g.Wait()
}

// Stop closes every connection and stops the lifecycle loop
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for _, conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn.ID()] = conn
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "conn", conn.ID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn.ID()]
			delete(s.connections, conn.ID())
			total := len(s.connections)
			s.mu.Unlock()

			if !ok {
				continue
			}

			// Leave outside the lock; the room publishes through SendToConnection
			if roomID := conn.RoomID(); roomID != "" && s.gameService != nil {
				s.logger.Info("Cleaning up disconnected player", "conn", conn.ID(), "game", roomID)
				_ = s.gameService.LeaveGame(roomID, conn.ID()) // Room may already be gone
			}

			_ = conn.Close() // Ignore close errors during unregistration
			s.logger.Info("Client disconnected", "conn", conn.ID(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.gameService)

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}

	hello, _ := NewMessage(MessageTypeConnected, ConnectedData{ConnectionID: client.ID()})
	_ = client.SendMessage(hello)
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleGames lists live rooms as JSON
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	games := []blackjack.Summary{}
	if s.gameService != nil {
		games = s.gameService.ListGames()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(games); err != nil {
		s.logger.Error("Failed to encode game list", "error", err)
	}
}

// SendToConnection sends a message to a single connection
func (s *Server) SendToConnection(connID string, msg *Message) error {
	s.mu.RLock()
	conn, ok := s.connections[connID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("connection not found: %s", connID)
	}
	return conn.SendMessage(msg)
}

// ConnectionCount returns the number of registered connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
