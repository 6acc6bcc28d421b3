// Package blackjack implements the room engine: seating, dealing, turn order,
// dealer automation and round settlement for a single shared dealer.
//
// A Room owns its State and serializes every mutation. After each accepted
// mutation it emits a full snapshot to its Sink. Rejected actions leave the
// state untouched and emit nothing.
package blackjack
