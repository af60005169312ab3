// Package transport implements the external interface of spec §6: a
// best-effort, deadline-aware datagram transport addressed by raw IPv4
// addresses, carrying already-framed IP+TCP bytes. Everything above this
// package (peerchan, engine) depends only on the [Transport] interface; the
// raw-socket implementation is the one concrete collaborator the spec calls
// out of scope ("The raw-IP I/O driver ... The core uses it only through a
// narrow transport interface").
package transport

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Recv when deadline elapses with nothing
// received. Distinguished from other errors so callers (the peer channel's
// offer_two_filtered) can route it to a Timeout branch instead of aborting.
var ErrTimeout = errors.New("transport: deadline exceeded")

// Transport is the narrow interface the connection engine uses to move
// bytes, independent of the underlying socket technology (spec §6).
type Transport interface {
	// Send delivers an already-checksummed IPv4 datagram to dst. The
	// datagram's IPv4 header is part of b (this system always sends
	// IP_HDRINCL-style, header and payload together).
	Send(dst [4]byte, b []byte) error
	// Recv blocks until an IPv4 datagram addressed to the bound local IP
	// arrives, or deadline elapses (zero deadline blocks forever). Returns
	// the peer's source IP and the full IPv4 datagram bytes (including the
	// IPv4 header; callers parse with wire.IPv4Frame). Malformed framing is
	// the caller's concern, not this layer's -- Recv surfaces whatever the
	// kernel handed back.
	Recv(deadline time.Time) (src [4]byte, datagram []byte, err error)
}
