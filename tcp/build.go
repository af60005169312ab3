package tcp

// This file implements spec §4.4 Segment Construction: the three builders
// that turn TCB state into outgoing segments and, where the segment carries
// sequence-space-consuming data, advance snd_nxt and enqueue the segment for
// retransmission.

// BuildAck constructs an outgoing segment carrying payload (possibly empty)
// and the current cumulative ACK. If payload is non-empty it consumes
// sequence space: snd_nxt advances by len(payload) and the segment is pushed
// onto rtq for retransmission (spec §3 "Retransmission queue").
func BuildAck(tcb *TCB, rtq *RetransmitQueue, payload []byte) Segment {
	seg := Segment{
		SEQ:     tcb.SndNxt,
		ACK:     tcb.RcvNxt,
		WND:     tcb.RcvWnd,
		DATALEN: Size(len(payload)),
		Flags:   FlagACK,
	}
	if len(payload) > 0 {
		rtq.Push(tcb.SndNxt, payload)
		tcb.SndNxt = seqAdd(tcb.SndNxt, Size(len(payload)))
	}
	tcb.traceSeg("tcb:build_ack", seg)
	return seg
}

// BuildFin constructs the local half-close segment (spec §4.4 build_fin).
// FIN consumes one sequence number; snd_nxt advances accordingly. FIN is
// never retransmission-queued (spec §3: "Empty ACKs, SYN, and FIN are not
// queued"), and nothing in this module re-sends a FIN once it is emitted.
func BuildFin(tcb *TCB) Segment {
	seg := Segment{
		SEQ:   tcb.SndNxt,
		ACK:   tcb.RcvNxt,
		WND:   tcb.RcvWnd,
		Flags: FlagFIN | FlagACK,
	}
	tcb.SndNxt = seqAdd(tcb.SndNxt, 1)
	tcb.traceSeg("tcb:build_fin", seg)
	return seg
}

// BuildRst constructs a bare RST segment at the given sequence number (spec
// §4.4 build_rst). It does not consume sequence space and is never queued.
// The SynRcvd defensive RST in accept.go is built by the equivalent
// buildRstAt; nothing in this module calls BuildRst.
func BuildRst(seq Value) Segment {
	return Segment{SEQ: seq, Flags: FlagRST}
}
