package blackjack

import (
	"errors"
	"sort"
	"sync"
)

// ErrRoomNotFound is returned when a room id is not registered.
var ErrRoomNotFound = errors.New("game not found")

// Summary is the listing view of a room.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Players int    `json:"players"`
}

// Registry maps room ids to live rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Get returns the room with id, or ErrRoomNotFound.
func (g *Registry) Get(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	room, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Insert registers room. It refuses to replace an existing id.
func (g *Registry) Insert(room *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.rooms[room.ID()]; exists {
		return false
	}
	g.rooms[room.ID()] = room
	return true
}

// Remove unregisters the room with id, returning it if present.
func (g *Registry) Remove(id string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
	}
	return room, ok
}

// Len returns the number of registered rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// List returns summaries of all rooms ordered by id.
func (g *Registry) List() []Summary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close closes every room and waits for their dealer automation to exit.
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := g.rooms
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
	for _, room := range rooms {
		room.Wait()
	}
}
