// Package choreo implements the choreography runtime of spec §4.1: a
// value-level witness that a participant is at a given protocol point.
// Each action (offer_one, select_one, offer_two, select_two) produces a
// single-use token for the next step, and consuming a token a second time is
// a runtime panic rather than a silent protocol violation. The actions take
// no token argument, so nothing here stops a caller from taking a step
// without having consumed the previous step's token.
//
// Go's type system cannot make a reused token a compile error (no affine or
// linear types), so this package takes the fallback spec §9 explicitly
// allows: tokens are single-use values, checked at the point of use, backed
// by an explicit state tag the driver in package engine dispatches on.
package choreo

import "fmt"

// Token witnesses that the holder may take the next step of a choreography
// continuing as state K (typically a tcp.State or a small recursion-handle
// enum). Calling Continue more than once on the same Token panics: tokens
// are moved, not copied, by convention (callers must not retain a Token
// after passing it to Continue).
type Token[K any] struct {
	used *bool
	next K
}

// New wraps the continuation value next in a fresh, unconsumed token.
func New[K any](next K) Token[K] {
	used := false
	return Token[K]{used: &used, next: next}
}

// Continue consumes the token and returns its continuation. Panics on the
// zero Token, and on any Token already consumed (copies of a Token share
// its consumed flag).
func (t Token[K]) Continue() K {
	if t.used == nil {
		panic("choreo: use of zero-value Token")
	}
	if *t.used {
		panic(fmt.Sprintf("choreo: token already consumed, continuation was %v", t.next))
	}
	*t.used = true
	return t.next
}
