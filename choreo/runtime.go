package choreo

import "time"

// End is the continuation value of a terminated choreography (spec §4.1
// "end"). A Token[End] can still be Continue()'d exactly once, by
// convention to release whatever resource the terminal step tears down
// (closing the peer channel, for instance); nothing continues after it.
type End struct{}

// OfferOne blocks for exactly one message of kind M via recv, then returns
// a single-use token witnessing the caller may now proceed as next (spec
// §4.1 offer_one).
func OfferOne[M any, K any](recv func() (M, error), next K) (M, Token[K], error) {
	msg, err := recv()
	if err != nil {
		return msg, Token[K]{}, err
	}
	return msg, New(next), nil
}

// SelectOne sends msg via send, then returns a single-use token witnessing
// the caller may now proceed as next (spec §4.1 select_one).
func SelectOne[M any, K any](send func(M) error, msg M, next K) (Token[K], error) {
	if err := send(msg); err != nil {
		return Token[K]{}, err
	}
	return New(next), nil
}

// Branch is the result of an offer_two: which of two variants was received
// (by caller-assigned Tag), the classified continuation, and whether the
// branch was taken because of a timeout (spec §4.1 offer_two, §5
// cancellation).
type Branch[M any, K any] struct {
	Tag       string
	Msg       M
	TimedOut  bool
	Token     Token[K]
}

// OfferTwo blocks on recv until deadline (zero deadline means block
// forever), then hands the raw message (or the zero M with timedOut=true,
// on expiry) to picker, which classifies it into a tagged branch and
// continuation (spec §4.1 offer_two: "picker(None) is invoked ... must
// choose a branch tagged Timeout").
//
// Both variants of a real offer_two here continue as the same Go type K
// (an engine phase/state value): the two protocol branches differ in which
// message shape was received, not in the shape of "where to go next", so a
// single continuation type parameter is sufficient and avoids an unused
// second type parameter that Go generics would otherwise force on callers.
func OfferTwo[M any, K any](
	recv func(deadline time.Time) (M, bool, error),
	deadline time.Time,
	picker func(msg M, timedOut bool) (tag string, next K),
) (Branch[M, K], error) {
	msg, timedOut, err := recv(deadline)
	if err != nil {
		return Branch[M, K]{}, err
	}
	tag, next := picker(msg, timedOut)
	return Branch[M, K]{Tag: tag, Msg: msg, TimedOut: timedOut, Token: New(next)}, nil
}

// SelectTwo sends whichever of two messages the caller already chose, then
// continues as next (spec §4.1 select_two). At the value level this is
// identical to SelectOne once the choice has been made by the caller; it
// exists as a distinct name so call sites read the same as the protocol
// text in spec §4.1.
func SelectTwo[M any, K any](send func(M) error, msg M, next K) (Token[K], error) {
	return SelectOne(send, msg, next)
}
