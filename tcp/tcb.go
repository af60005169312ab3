package tcp

import (
	"log/slog"

	"github.com/soypat/tcpchoreo/internal"
)

// recvWindow is the fixed advertised receive window (spec §3, §6): this
// implementation does no flow-control feedback, so it never changes.
const recvWindow Size = 1000

// TCB is the per-connection Transmission Control Block (spec §3). Unlike the
// teacher's ControlBlock, which restricts itself to strictly sequential
// segments, this TCB implements the full RFC 9293 §3.10.7.4 acceptance test
// including the "gap before segment" and "clip to rcv.nxt" cases the spec
// requires, because a real peer can legitimately retransmit data we've
// already seen.
type TCB struct {
	SndUna Value // oldest unacknowledged local sequence number.
	SndNxt Value // next local sequence number to send.
	SndWnd Size  // peer-advertised send window.
	SndWL1 Value // seg.SEQ of the segment that last updated the send window.
	SndWL2 Value // seg.ACK of the segment that last updated the send window.

	RcvNxt Value // next sequence number expected from the peer.
	RcvWnd Size  // our advertised receive window (constant, see recvWindow).

	ISS Value // our initial send sequence number.
	IRS Value // the peer's initial sequence number.

	internal.Logger
}

// Invariant checks testable property 1 of spec §8: SndUna <= SndNxt in
// modular order. Exposed for tests, not used on the hot path.
func (tcb *TCB) Invariant() bool {
	return tcb.SndUna.LessThanEq(tcb.SndNxt)
}

// initHandshake initializes the TCB at SYN reception per spec §4.5 steps 2-3.
func (tcb *TCB) initHandshake(iss Value, peerSeq Value, peerWnd Size) {
	tcb.IRS = peerSeq
	tcb.RcvNxt = seqAdd(peerSeq, 1)
	tcb.RcvWnd = recvWindow
	tcb.ISS = iss
	tcb.SndUna = iss
	tcb.SndNxt = iss
	tcb.SndWnd = peerWnd
	tcb.SndWL1 = peerSeq
	tcb.SndWL2 = iss
}

func seqAdd(v Value, n Size) Value { return Value(uint32(v) + uint32(n)) }

func (tcb *TCB) traceSeg(msg string, seg Segment) {
	if tcb.Enabled(internal.LevelTrace) {
		tcb.Trace(msg,
			slog.Uint64("seg.seq", uint64(seg.SEQ)),
			slog.Uint64("seg.ack", uint64(seg.ACK)),
			slog.Uint64("seg.wnd", uint64(seg.WND)),
			slog.String("seg.flags", seg.Flags.String()),
			slog.Uint64("seg.datalen", uint64(seg.DATALEN)),
		)
	}
}

func (tcb *TCB) traceState(msg string, state State) {
	tcb.Trace(msg,
		slog.String("state", state.String()),
		slog.Uint64("snd.una", uint64(tcb.SndUna)),
		slog.Uint64("snd.nxt", uint64(tcb.SndNxt)),
		slog.Uint64("rcv.nxt", uint64(tcb.RcvNxt)),
	)
}
