package server

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/roomid"
)

// Broadcaster delivers messages to individual connections.
type Broadcaster interface {
	SendToConnection(connID string, msg *Message) error
}

// ServiceOptions configures the rooms a GameService creates.
type ServiceOptions struct {
	DealerDelay time.Duration
	MaxPlayers  int
	Seed        int64
}

// GameService manages blackjack rooms for connected clients
type GameService struct {
	rooms  *blackjack.Registry
	server Broadcaster
	logger *log.Logger
	clock  quartz.Clock
	rng    *randutil.Source
	opts   ServiceOptions
	newID  func() string
}

// NewGameService creates a new game service
func NewGameService(server Broadcaster, logger *log.Logger, clock quartz.Clock, opts ServiceOptions) *GameService {
	return &GameService{
		rooms:  blackjack.NewRegistry(),
		server: server,
		logger: logger.WithPrefix("game-service"),
		clock:  clock,
		rng:    randutil.NewSource(randutil.Seed(opts.Seed)),
		opts:   opts,
		newID:  roomid.Generate,
	}
}

// CreateGame creates a room, tells the creator its id and seats them. The
// creator receives game_created before the first game_updated.
func (gs *GameService) CreateGame(connID, playerName, roomName string) (blackjack.State, error) {
	if roomName == "" {
		roomName = playerName + "'s table"
	}

	room := blackjack.NewRoom(gs.newID(), roomName,
		blackjack.WithSink(blackjack.SinkFunc(gs.publish)),
		blackjack.WithClock(gs.clock),
		blackjack.WithDealerDelay(gs.opts.DealerDelay),
		blackjack.WithMaxPlayers(gs.opts.MaxPlayers),
		blackjack.WithRand(gs.rng.Next()),
		blackjack.WithLogger(gs.logger),
	)
	if !gs.rooms.Insert(room) {
		room.Close()
		return blackjack.State{}, fmt.Errorf("game %s already exists", room.ID())
	}

	msg, err := NewMessage(MessageTypeGameCreated, GameCreatedData{GameID: room.ID()})
	if err != nil {
		return blackjack.State{}, fmt.Errorf("failed to create message: %w", err)
	}
	if err := gs.server.SendToConnection(connID, msg); err != nil {
		gs.logger.Debug("Failed to notify creator", "conn", connID, "error", err)
	}

	if !room.AddPlayer(playerName, connID) {
		gs.rooms.Remove(room.ID())
		room.Close()
		return blackjack.State{}, fmt.Errorf("game %s: could not seat creator", room.ID())
	}
	gs.logger.Info("Created game", "id", room.ID(), "name", roomName, "creator", playerName)

	return room.Snapshot(), nil
}

// JoinGame seats a player. Joining a room that is not waiting for players is
// accepted as a no-op; the returned bool reports whether the player was seated.
func (gs *GameService) JoinGame(roomID, connID, playerName string) (blackjack.State, bool, error) {
	room, err := gs.room(roomID)
	if err != nil {
		return blackjack.State{}, false, err
	}

	if !room.AddPlayer(playerName, connID) {
		if room.Closed() {
			return blackjack.State{}, false, fmt.Errorf("game %s: %w", roomID, blackjack.ErrRoomNotFound)
		}
		gs.logger.Debug("Join ignored", "id", roomID, "conn", connID)
		return room.Snapshot(), false, nil
	}

	gs.logger.Info("Player joined game", "id", roomID, "player", playerName)
	return room.Snapshot(), true, nil
}

// LeaveGame removes a player and drops the room once nobody is left.
func (gs *GameService) LeaveGame(roomID, connID string) error {
	room, err := gs.room(roomID)
	if err != nil {
		return err
	}

	remaining, removed := room.RemovePlayer(connID)
	if !removed {
		gs.logger.Debug("Leave ignored", "id", roomID, "conn", connID)
		return nil
	}

	if remaining == 0 {
		gs.rooms.Remove(roomID)
		gs.logger.Info("Removed empty game", "id", roomID)
	}
	return nil
}

// RestartGame resets a room for a new round.
func (gs *GameService) RestartGame(roomID string) error {
	return gs.do(roomID, "restart", "", func(r *blackjack.Room) bool { return r.Restart() })
}

// StartGame deals a new round.
func (gs *GameService) StartGame(roomID string) error {
	return gs.do(roomID, "start", "", func(r *blackjack.Room) bool { return r.Start() })
}

// Hit draws a card for connID.
func (gs *GameService) Hit(roomID, connID string) error {
	return gs.do(roomID, "hit", connID, func(r *blackjack.Room) bool { return r.Hit(connID) })
}

// Stand ends connID's turn.
func (gs *GameService) Stand(roomID, connID string) error {
	return gs.do(roomID, "stand", connID, func(r *blackjack.Room) bool { return r.Stand(connID) })
}

// GetGame returns a snapshot of a room.
func (gs *GameService) GetGame(roomID string) (blackjack.State, error) {
	room, err := gs.room(roomID)
	if err != nil {
		return blackjack.State{}, err
	}
	return room.Snapshot(), nil
}

// ListGames returns summaries of every live room.
func (gs *GameService) ListGames() []blackjack.Summary {
	return gs.rooms.List()
}

// Close tears down every room.
func (gs *GameService) Close() {
	gs.rooms.Close()
}

func (gs *GameService) room(roomID string) (*blackjack.Room, error) {
	room, err := gs.rooms.Get(roomID)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", roomID, err)
	}
	return room, nil
}

// do runs an engine action. Rejected actions are not errors.
func (gs *GameService) do(roomID, action, connID string, fn func(*blackjack.Room) bool) error {
	room, err := gs.room(roomID)
	if err != nil {
		return err
	}
	if !fn(room) {
		gs.logger.Debug("Action ignored", "id", roomID, "action", action, "conn", connID)
	}
	return nil
}

// publish fans a room snapshot out to its seated players. It runs with the
// room locked.
func (gs *GameService) publish(state blackjack.State) {
	msg, err := NewMessage(MessageTypeGameUpdated, state)
	if err != nil {
		gs.logger.Error("Failed to create game update", "id", state.ID, "error", err)
		return
	}

	for _, p := range state.Players {
		if p.IsDealer {
			continue
		}
		if err := gs.server.SendToConnection(p.ID, msg); err != nil {
			gs.logger.Debug("Failed to deliver game update", "id", state.ID, "conn", p.ID, "error", err)
		}
	}
}
