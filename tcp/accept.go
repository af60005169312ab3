package tcp

import "github.com/soypat/tcpchoreo/seqnum"

// ReactionKind classifies the outcome of accept() (spec §4.3).
type ReactionKind uint8

const (
	// Acceptable: segment consumed, TCB updated. ResponseAck may be nil for
	// empty in-window ACKs carrying no data; Payload is the post-clip data.
	Acceptable ReactionKind = iota
	// NotAcceptable: segment out of window or semantically bad; ResponseAck,
	// if non-nil, is a challenge ACK to send. Connection state is preserved.
	NotAcceptable
	// Reset: either the peer cleanly reset the connection (Rst is nil, no
	// reply), or we must emit a defensive RST (Rst is non-nil).
	Reset
)

// Reaction is the result of accept().
type Reaction struct {
	Kind        ReactionKind
	ResponseAck *Segment
	Payload     []byte
	Rst         *Segment
}

// acceptanceTest implements the window test of RFC 9293 §3.10.7.4, quoted
// verbatim in spec §4.3. It is keyed on seg.LEN(), the RFC's SEG.LEN, which
// counts the SYN/FIN control octets in addition to any payload -- a bare
// FIN still consumes one sequence number and must be window-tested as such,
// even though its DATALEN is zero.
func acceptanceTest(tcb *TCB, seg Segment) bool {
	seglen := seg.LEN()
	if seglen == 0 {
		if tcb.RcvWnd == 0 {
			return seg.SEQ == tcb.RcvNxt
		}
		return seg.SEQ.InWindow(tcb.RcvNxt, tcb.RcvWnd)
	}
	if tcb.RcvWnd == 0 {
		return false
	}
	last := seqAdd(seg.SEQ, Size(seglen-1))
	return seg.SEQ.InWindow(tcb.RcvNxt, tcb.RcvWnd) || last.InWindow(tcb.RcvNxt, tcb.RcvWnd)
}

// Accept is the central routine of spec §4.3: accept(seg). state is the
// engine's current connection state (must satisfy state.CanAccept()).
// payload is the segment's raw application data (len == seg.DATALEN).
func Accept(tcb *TCB, state State, seg Segment, payload []byte) Reaction {
	tcb.traceSeg("tcb:accept", seg)

	if !acceptanceTest(tcb, seg) {
		if seg.Flags.HasAny(FlagRST) {
			// Out-of-window RST: drop silently, no challenge (spec §4.3
			// "send a challenge ACK unless it was a RST").
			return Reaction{Kind: NotAcceptable}
		}
		ack := buildChallengeAck(tcb)
		return Reaction{Kind: NotAcceptable, ResponseAck: &ack}
	}

	if seg.Flags.HasAny(FlagRST) {
		if seg.SEQ == tcb.RcvNxt && !seg.Flags.HasAny(FlagACK) {
			// Clean reset: peer demanded reset at the expected sequence.
			return Reaction{Kind: Reset}
		}
		// RST elsewhere in window: challenge, don't tear down.
		ack := buildChallengeAck(tcb)
		return Reaction{Kind: NotAcceptable, ResponseAck: &ack}
	}

	if seg.Flags.HasAny(FlagSYN) {
		// SYN inside an established connection: challenge ACK (RFC 5961
		// blind-attack mitigation policy is a deliberate TODO, spec §9).
		ack := buildChallengeAck(tcb)
		return Reaction{Kind: NotAcceptable, ResponseAck: &ack}
	}

	if !seg.Flags.HasAny(FlagACK) {
		return Reaction{Kind: NotAcceptable}
	}

	if state == StateSynRcvd {
		if tcb.SndUna.LessThan(seg.ACK) && seg.ACK.LessThanEq(tcb.SndNxt) {
			tcb.SndUna = seg.ACK
			tcb.SndWnd = seg.WND
			tcb.SndWL1 = seg.SEQ
			tcb.SndWL2 = seg.ACK
		} else {
			rst := buildRstAt(seg.ACK)
			return Reaction{Kind: Reset, Rst: &rst}
		}
	} else {
		switch {
		case seg.ACK.LessThanEq(tcb.SndUna):
			// Duplicate ACK: ignore for UNA-advancement purposes, but still
			// fall through to payload/gap handling below.
		case tcb.SndNxt.LessThan(seg.ACK):
			ack := buildChallengeAck(tcb)
			return Reaction{Kind: NotAcceptable, ResponseAck: &ack}
		default:
			tcb.SndUna = seg.ACK
		}
	}

	if !seg.ACK.LessThan(tcb.SndUna) && seg.ACK.LessThanEq(tcb.SndNxt) &&
		(tcb.SndWL1.LessThan(seg.SEQ) || (tcb.SndWL1 == seg.SEQ && tcb.SndWL2.LessThanEq(seg.ACK))) {
		tcb.SndWnd = seg.WND
		tcb.SndWL1 = seg.SEQ
		tcb.SndWL2 = seg.ACK
	}

	if tcb.RcvNxt.LessThan(seg.SEQ) {
		// Gap before segment: accepted for window purposes but payload
		// dropped, no response (spec §4.3).
		return Reaction{Kind: Acceptable}
	}

	clipFrom := seqnum.Sizeof(seg.SEQ, tcb.RcvNxt)
	var clipped []byte
	if int(clipFrom) < len(payload) {
		clipped = payload[clipFrom:]
	}
	seglen := seg.LEN()
	tcb.RcvNxt = seqAdd(seg.SEQ, seglen)

	var resp *Segment
	if seglen > 0 {
		ack := buildChallengeAck(tcb)
		resp = &ack
	}
	return Reaction{Kind: Acceptable, ResponseAck: resp, Payload: clipped}
}

// buildChallengeAck constructs an informational ACK at the current send/recv
// state without consuming sequence space (spec glossary: "Challenge ACK").
func buildChallengeAck(tcb *TCB) Segment {
	return Segment{
		SEQ:   tcb.SndNxt,
		ACK:   tcb.RcvNxt,
		WND:   tcb.RcvWnd,
		Flags: FlagACK,
	}
}

// buildRstAt constructs a bare RST (no ACK) at the given sequence number,
// used only from StateSynRcvd when the peer's ACK is out of range (spec
// §4.4 build_rst).
func buildRstAt(seq Value) Segment {
	return Segment{SEQ: seq, Flags: FlagRST}
}
