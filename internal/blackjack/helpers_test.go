package blackjack

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

const testDelay = time.Second

type recorder struct {
	ch chan State
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan State, 64)}
}

func (r *recorder) RoomUpdated(s State) {
	r.ch <- s
}

func (r *recorder) next(t *testing.T) State {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for room update")
		return State{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected room update: status=%s turn=%q", s.Status, s.CurrentTurn)
	case <-time.After(50 * time.Millisecond):
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type fixture struct {
	room  *Room
	rec   *recorder
	clock *quartz.Mock
}

// newFixture builds a room dealing cards in the given order and seats the
// named players, draining their join updates. Player ids are the lower-cased
// names.
func newFixture(t *testing.T, cards string, names ...string) *fixture {
	t.Helper()

	stacked := deck.MustParseCards(cards)
	f := &fixture{
		rec:   newRecorder(),
		clock: quartz.NewMock(t),
	}
	f.room = NewRoom("room-1", "Test Table",
		WithSink(f.rec),
		WithClock(f.clock),
		WithDealerDelay(testDelay),
		WithLogger(quietLogger()),
		WithDeckFactory(func() *deck.Deck { return deck.FromCards(stacked) }),
	)
	t.Cleanup(func() {
		f.room.Close()
		f.room.Wait()
	})

	for _, name := range names {
		require.True(t, f.room.AddPlayer(name, strings.ToLower(name)))
		f.rec.next(t)
	}
	return f
}

func (f *fixture) start(t *testing.T) State {
	t.Helper()
	require.True(t, f.room.Start())
	return f.rec.next(t)
}

// step advances the mock clock by one dealer pause and returns the update it
// produces.
func (f *fixture) step(t *testing.T) State {
	t.Helper()
	f.advance(t)
	return f.rec.next(t)
}

func mustPlayer(t *testing.T, s State, id string) Player {
	t.Helper()
	p, ok := s.Player(id)
	require.True(t, ok, "player %q not in state", id)
	return p
}

func mustDealer(t *testing.T, s State) Player {
	t.Helper()
	p, ok := s.Dealer()
	require.True(t, ok, "dealer not seated")
	return p
}

func (f *fixture) advance(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f.clock.Advance(testDelay).MustWait(ctx)
}
