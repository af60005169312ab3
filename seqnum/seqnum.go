// Package seqnum implements arithmetic over the cyclic group of 32-bit TCP
// sequence numbers, as required by RFC 9293 §3.4. All comparisons between
// two [Value]s are defined by the sign of their two's-complement difference,
// never by a plain numeric comparison, so that wraparound behaves correctly.
package seqnum

// Value is a TCP sequence or acknowledgment number. It wraps modulo 2^32.
type Value uint32

// Size is a segment length or window size, counted in octets.
type Size uint32

// Add returns v advanced by delta octets, wrapping modulo 2^32.
func Add(v Value, delta Size) Value {
	return v + Value(delta)
}

// Sizeof returns the number of octets from a up to (not including) b,
// wrapping modulo 2^32. Sizeof(a, a) is 0.
func Sizeof(a, b Value) Size {
	return Size(b - a)
}

// LessThan reports whether v precedes w in sequence-space order, i.e. w is
// reachable from v by advancing a positive (and at most 2^31) number of
// octets.
func (v Value) LessThan(w Value) bool {
	return int32(v-w) < 0
}

// LessThanEq reports whether v precedes or equals w in sequence-space order.
func (v Value) LessThanEq(w Value) bool {
	return v == w || v.LessThan(w)
}

// InWindow reports whether v lies in [start, start+size) under modular
// arithmetic. A zero-size window contains nothing.
func (v Value) InWindow(start Value, size Size) bool {
	if size == 0 {
		return false
	}
	return Sizeof(start, v) < size
}

// UpdateForward advances v by delta octets in place.
func (v *Value) UpdateForward(delta Size) {
	*v = Add(*v, delta)
}
