package tcp

// This file implements the peer-channel message alphabet of spec §3:
// Syn, SynAck, Ack, FinAck, Rst. Each type certifies, at construction time,
// that the wrapped Segment carries exactly the flag combination its name
// promises. Constructing one from a segment that doesn't match is a
// programmer error (the picker that dispatches segments to these
// constructors is supposed to be total and correct) and panics rather than
// returning an error, per spec §4.1's "pickers must be total... impossible
// cases are programmer errors and must panic".

// Syn wraps a pure SYN segment (SYN set, ACK/RST/FIN/PSH clear).
type Syn struct {
	Seg Segment
}

// NewSyn asserts seg is a pure SYN segment and wraps it.
func NewSyn(seg Segment) Syn {
	if seg.Flags.Mask() != FlagSYN {
		panic("tcp: NewSyn: segment is not a pure SYN: " + seg.Flags.String())
	}
	return Syn{Seg: seg}
}

// SynAck wraps a SYN+ACK segment (exactly SYN and ACK set).
type SynAck struct {
	Seg Segment
}

func NewSynAck(seg Segment) SynAck {
	if seg.Flags.Mask() != synack {
		panic("tcp: NewSynAck: segment is not SYN+ACK: " + seg.Flags.String())
	}
	return SynAck{Seg: seg}
}

// Ack wraps any segment whose only control bit is ACK (it may carry a
// payload; PSH is cosmetic in this implementation and is not required).
type Ack struct {
	Seg     Segment
	Payload []byte
}

func NewAck(seg Segment, payload []byte) Ack {
	if !seg.Flags.HasAll(FlagACK) || seg.Flags.HasAny(FlagSYN|FlagFIN|FlagRST) {
		panic("tcp: NewAck: segment is not a pure ACK: " + seg.Flags.String())
	}
	return Ack{Seg: seg, Payload: payload}
}

// FinAck wraps a FIN+ACK segment (exactly FIN and ACK set).
type FinAck struct {
	Seg Segment
}

func NewFinAck(seg Segment) FinAck {
	if seg.Flags.Mask() != finack {
		panic("tcp: NewFinAck: segment is not FIN+ACK: " + seg.Flags.String())
	}
	return FinAck{Seg: seg}
}

// Rst wraps a segment with the RST bit set.
type Rst struct {
	Seg Segment
}

func NewRst(seg Segment) Rst {
	if !seg.Flags.HasAny(FlagRST) {
		panic("tcp: NewRst: segment does not carry RST: " + seg.Flags.String())
	}
	return Rst{Seg: seg}
}
