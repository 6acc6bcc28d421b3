package blackjack

import (
	"context"
	"time"
)

// beginDealerTurnLocked reveals the hole card, hands the turn to the dealer
// and starts automation. The reveal is emitted before the first pause.
func (r *Room) beginDealerTurnLocked() {
	dealer := r.state.dealer()
	if dealer == nil {
		return
	}

	for i := range dealer.Hand {
		dealer.Hand[i].Hidden = false
	}
	r.state.CurrentTurn = DealerID
	r.logger.Debug("Dealer turn", "score", dealer.Score)

	ctx, cancel := context.WithCancel(r.ctx)
	r.stopRound = cancel

	// Arm the pause before emitting so a caller observing the reveal can
	// advance a mock clock without racing the timer.
	wake, stop := r.pause(r.dealerDelay)
	r.emitLocked()

	r.wg.Add(1)
	go r.playDealer(ctx, wake, stop)
}

// playDealer draws for the dealer until 17 or more, one card per pause, then
// settles the round. It stops without emitting once ctx is cancelled.
func (r *Room) playDealer(ctx context.Context, wake <-chan struct{}, stop func() bool) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-wake:
		}

		r.mu.Lock()
		if ctx.Err() != nil {
			r.mu.Unlock()
			return
		}

		dealer := r.state.dealer()
		if dealer == nil {
			r.mu.Unlock()
			return
		}

		if dealer.Score < DealerStandsOn && r.dealLocked(dealer) {
			dealer.Score = Score(dealer.Hand)
			r.logger.Debug("Dealer drew", "card", dealer.Hand[len(dealer.Hand)-1], "score", dealer.Score)

			wake, stop = r.pause(r.dealerDelay)
			r.emitLocked()
			r.mu.Unlock()
			continue
		}

		r.settleLocked()
		r.mu.Unlock()
		return
	}
}

// settleLocked finishes the dealer's hand and the round.
func (r *Room) settleLocked() {
	dealer := r.state.dealer()
	if dealer.Score > Blackjack {
		dealer.IsBusted = true
	}
	dealer.IsStanding = true

	r.state.Status = Finished
	r.state.CurrentTurn = ""
	r.state.WinnerMessage = WinnerMessage(r.state.Players, *dealer)
	r.stopRoundLocked()
	r.logger.Info("Round finished", "dealer", dealer.Score, "result", r.state.WinnerMessage)

	r.emitLocked()
}

// pause arms a timer on the room clock and returns a channel closed when it
// fires, along with the timer's Stop.
func (r *Room) pause(d time.Duration) (<-chan struct{}, func() bool) {
	fired := make(chan struct{})
	t := r.clock.AfterFunc(d, func() { close(fired) })
	return fired, t.Stop
}
