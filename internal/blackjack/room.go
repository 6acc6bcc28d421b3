package blackjack

import (
	"context"
	rand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
)

// DefaultDealerDelay is the pause between dealer steps.
const DefaultDealerDelay = time.Second

// Sink receives the room's state after every accepted mutation. It is called
// with the room locked, so snapshots arrive in mutation order; implementations
// must not block or call back into the Room.
type Sink interface {
	RoomUpdated(State)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(State)

// RoomUpdated implements Sink.
func (f SinkFunc) RoomUpdated(s State) { f(s) }

// Option configures a Room.
type Option func(*Room)

// WithSink sets where snapshots are emitted.
func WithSink(s Sink) Option {
	return func(r *Room) { r.sink = s }
}

// WithLogger sets the room's logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Room) { r.logger = l }
}

// WithClock sets the clock that paces dealer automation.
func WithClock(c quartz.Clock) Option {
	return func(r *Room) { r.clock = c }
}

// WithDealerDelay sets the pause between dealer steps.
func WithDealerDelay(d time.Duration) Option {
	return func(r *Room) { r.dealerDelay = d }
}

// WithRand shuffles every new deck with rng.
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) {
		r.newDeck = func() *deck.Deck { return deck.New(rng) }
	}
}

// WithDeckFactory replaces deck construction; called once per Start.
func WithDeckFactory(fn func() *deck.Deck) Option {
	return func(r *Room) { r.newDeck = fn }
}

// WithMaxPlayers caps the number of seated players. Zero means no cap.
func WithMaxPlayers(n int) Option {
	return func(r *Room) { r.maxPlayers = n }
}

// Room is a single blackjack table. All mutations are serialized by mu;
// dealer automation runs in its own goroutine and takes the lock per step.
type Room struct {
	mu          sync.Mutex
	state       State
	deck        *deck.Deck
	newDeck     func() *deck.Deck
	sink        Sink
	clock       quartz.Clock
	dealerDelay time.Duration
	maxPlayers  int
	logger      *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	stopRound context.CancelFunc
	closed    bool
	wg        sync.WaitGroup
}

// NewRoom creates an empty room waiting for players.
func NewRoom(id, name string, opts ...Option) *Room {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Room{
		state: State{
			ID:      id,
			Name:    name,
			Players: []Player{},
			Status:  WaitingForPlayers,
		},
		sink:        SinkFunc(func(State) {}),
		clock:       quartz.NewReal(),
		dealerDelay: DefaultDealerDelay,
		logger:      log.Default(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.newDeck == nil {
		rng := randutil.New(randutil.Seed(0))
		r.newDeck = func() *deck.Deck { return deck.New(rng) }
	}
	r.logger = r.logger.WithPrefix("room").With("room", id)

	return r
}

// ID returns the room identifier.
func (r *Room) ID() string {
	return r.state.ID
}

// Snapshot returns a deep copy of the current state.
func (r *Room) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Summary returns lightweight metadata for listings.
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:      r.state.ID,
		Name:    r.state.Name,
		Status:  r.state.Status,
		Players: r.state.PlayerCount(),
	}
}

// AddPlayer seats a new player. Only allowed while waiting for players.
func (r *Room) AddPlayer(name, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state.Status != WaitingForPlayers {
		return false
	}
	if connID == "" || connID == DealerID || r.state.find(connID) != nil {
		return false
	}
	if r.maxPlayers > 0 && r.state.PlayerCount() >= r.maxPlayers {
		return false
	}

	r.state.Players = append(r.state.Players, Player{
		ID:   connID,
		Name: name,
		Hand: []deck.Card{},
	})
	r.logger.Debug("Player joined", "player", connID, "name", name, "players", r.state.PlayerCount())

	r.emitLocked()
	return true
}

// RemovePlayer removes a player in any status and returns the number of
// non-dealer players left. A room left without players closes itself and
// emits nothing. If the leaver held the turn, the turn advances immediately.
func (r *Room) RemovePlayer(connID string) (remaining int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false
	}

	idx := slices.IndexFunc(r.state.Players, func(p Player) bool {
		return p.ID == connID && !p.IsDealer
	})
	if idx < 0 {
		return r.state.PlayerCount(), false
	}

	heldTurn := r.state.Status == InProgress && r.state.CurrentTurn == connID
	r.state.Players = slices.Delete(r.state.Players, idx, idx+1)
	remaining = r.state.PlayerCount()
	r.logger.Debug("Player left", "player", connID, "remaining", remaining)

	if remaining == 0 {
		r.closeLocked()
		return 0, true
	}

	if heldTurn {
		r.advanceTurnLocked()
	} else {
		r.emitLocked()
	}
	return remaining, true
}

// Restart returns the room to WaitingForPlayers from any status, removing
// the dealer and clearing every hand. In-flight dealer automation is
// cancelled.
func (r *Room) Restart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	r.stopRoundLocked()
	r.state.Status = WaitingForPlayers
	r.state.WinnerMessage = ""
	r.state.CurrentTurn = ""
	r.state.Players = slices.DeleteFunc(r.state.Players, func(p Player) bool {
		return p.IsDealer
	})
	for i := range r.state.Players {
		p := &r.state.Players[i]
		p.Hand = []deck.Card{}
		p.Score = 0
		p.IsBusted = false
		p.IsStanding = false
	}
	r.logger.Debug("Room restarted")

	r.emitLocked()
	return true
}

// Start seats the dealer, deals two cards to everyone in seat order and hands
// the turn to the first player.
func (r *Room) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state.Status != WaitingForPlayers || r.state.PlayerCount() == 0 {
		return false
	}

	r.state.Players = append(r.state.Players, Player{
		ID:       DealerID,
		Name:     DealerName,
		Hand:     []deck.Card{},
		IsDealer: true,
	})
	r.deck = r.newDeck()

	for i := range r.state.Players {
		p := &r.state.Players[i]
		r.dealLocked(p)
		r.dealLocked(p)
		p.Score = Score(p.Hand)
	}

	if dealer := r.state.dealer(); len(dealer.Hand) > 1 {
		dealer.Hand[1].Hidden = true
	}

	r.state.Status = InProgress
	for _, p := range r.state.Players {
		if !p.IsDealer {
			r.state.CurrentTurn = p.ID
			break
		}
	}
	r.logger.Info("Round started", "players", r.state.PlayerCount(), "turn", r.state.CurrentTurn, "cards", r.deck.Remaining())

	r.emitLocked()
	return true
}

// Hit draws a card for the player whose turn it is. Busting does not end the
// turn; the player still has to stand.
func (r *Room) Hit(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.actingPlayerLocked(connID)
	if p == nil {
		return false
	}
	if !r.dealLocked(p) {
		r.logger.Warn("Deck exhausted, hit ignored", "player", connID)
		return false
	}

	p.Score = Score(p.Hand)
	if p.Score > Blackjack {
		p.IsBusted = true
	}
	r.logger.Debug("Player hit", "player", connID, "score", p.Score, "busted", p.IsBusted)

	r.emitLocked()
	return true
}

// Stand ends the acting player's turn.
func (r *Room) Stand(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.actingPlayerLocked(connID)
	if p == nil {
		return false
	}

	p.IsStanding = true
	r.logger.Debug("Player stood", "player", connID, "score", p.Score)

	r.advanceTurnLocked()
	return true
}

// Close tears the room down. Dealer automation stops before its next step
// and nothing is emitted afterwards.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

// Closed reports whether the room has been torn down.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Wait blocks until any dealer automation has exited.
func (r *Room) Wait() {
	r.wg.Wait()
}

func (r *Room) actingPlayerLocked(connID string) *Player {
	if r.closed || r.state.Status != InProgress || r.state.CurrentTurn != connID {
		return nil
	}
	p := r.state.find(connID)
	if p == nil || p.IsDealer {
		return nil
	}
	return p
}

// advanceTurnLocked hands the turn to the first player still to act, or to
// the dealer when everyone is standing.
func (r *Room) advanceTurnLocked() {
	for _, p := range r.state.Players {
		if !p.IsDealer && !p.IsStanding {
			r.state.CurrentTurn = p.ID
			r.emitLocked()
			return
		}
	}
	r.beginDealerTurnLocked()
}

func (r *Room) dealLocked(p *Player) bool {
	card, ok := r.deck.Draw()
	if !ok {
		return false
	}
	p.Hand = append(p.Hand, card)
	return true
}

func (r *Room) emitLocked() {
	r.sink.RoomUpdated(r.state.Clone())
}

func (r *Room) stopRoundLocked() {
	if r.stopRound != nil {
		r.stopRound()
		r.stopRound = nil
	}
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	r.stopRoundLocked()
	r.cancel()
	r.logger.Debug("Room closed")
}
