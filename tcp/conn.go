package tcp

// Conn is the state-indexed connection engine of spec §3 "Connection
// state" / §9 "State-indexed connection type": rather than a phantom type
// parameter (Go has none strong enough to forbid calling an operation in
// the wrong state), each state transition is an explicit method that
// mutates State alongside the TCB, and the engine package's driver is
// responsible for only calling the operations its choreography's current
// step allows. Conn owns its TCB and retransmission queue exclusively, as
// required by spec §3 "Ownership".
type Conn struct {
	state State
	tcb   TCB
	rtq   RetransmitQueue
}

// NewConn returns a connection in StateClosed, as if no Open had yet been
// received (spec §3 Lifecycles: "Closed → Listen on open").
func NewConn() *Conn { return &Conn{state: StateClosed} }

// Open transitions Closed → Listen. Returns an error if the connection was
// not freshly closed.
func (c *Conn) Open() error {
	if c.state != StateClosed {
		return errTCBNotClosed
	}
	c.state = StateListen
	return nil
}

// State reports the current connection state.
func (c *Conn) State() State { return c.state }

// TCB exposes the transmission control block for read-only inspection
// (picker snapshots, tests). Mutating the returned pointer outside the
// methods of this type breaks the state/TCB coupling Conn exists to
// maintain; callers should treat it as borrow-only (spec §9 "Per-state
// picker capability").
func (c *Conn) TCB() *TCB { return &c.tcb }

// RetransmitQueue exposes the retransmission FIFO for read-only inspection
// and for the engine's timeout-driven retransmission path (spec §4.4).
func (c *Conn) RetransmitQueue() *RetransmitQueue { return &c.rtq }

// AcceptInitialSyn implements spec §4.5 (Listen → SynRcvd): seg must already
// have passed the Listen filter (a pure SYN). iss is the chosen initial
// send sequence number (see [ISSGenerator]). Returns the SYN+ACK segment to
// emit.
func (c *Conn) AcceptInitialSyn(seg Segment, iss Value) Segment {
	if c.state != StateListen {
		panic("tcp: AcceptInitialSyn called outside StateListen")
	}
	c.tcb.initHandshake(iss, seg.SEQ, seg.WND)
	c.state = StateSynRcvd
	synack := Segment{
		SEQ:   c.tcb.SndNxt,
		ACK:   c.tcb.RcvNxt,
		WND:   c.tcb.RcvWnd,
		Flags: FlagSYN | FlagACK,
	}
	c.tcb.SndNxt = seqAdd(c.tcb.SndNxt, 1)
	c.tcb.traceSeg("conn:synack", synack)
	return synack
}

// Accept runs the shared acceptance routine (spec §4.3) against this
// connection's TCB and current state, and applies whatever state
// transition the reaction implies (completion of the handshake; FIN
// handling in the close sub-protocol). It is the single place call sites in
// package engine route every post-handshake received segment through.
func (c *Conn) Accept(seg Segment, payload []byte) Reaction {
	wasSynRcvd := c.state == StateSynRcvd
	reaction := Accept(&c.tcb, c.state, seg, payload)

	if reaction.Kind == Reset {
		c.state = StateClosed
		return reaction
	}
	if reaction.Kind != Acceptable {
		return reaction
	}

	// snd_una may have just advanced (or stayed put, for a duplicate ACK);
	// either way draining against its current value retires whatever the
	// retransmission queue's head already covers (spec §3, testable
	// property 3).
	c.rtq.DrainAcked(c.tcb.SndUna)

	if wasSynRcvd {
		// First acceptable ACK in SynRcvd completes the handshake (spec §3
		// Lifecycles: "SynRcvd → Established on first acceptable ACK").
		c.state = StateEstablished
	}

	switch c.state {
	case StateEstablished:
		if seg.Flags.HasAny(FlagFIN) {
			c.state = StateCloseWait
		}
	case StateFinWait1:
		if seg.Flags.HasAny(FlagFIN) {
			// Simultaneous close is out of scope (spec §1 Non-goals); a FIN
			// arriving in FinWait1 is treated as if it carried the ACK of
			// our own FIN, advancing straight to the terminal step like
			// FinWait2 would. This is a deliberate simplification, not an
			// RFC 9293 CLOSING state.
			c.state = StateClosed
		} else if seg.ACK == c.tcb.SndNxt {
			c.state = StateFinWait2
		}
	case StateFinWait2:
		if seg.Flags.HasAny(FlagFIN) {
			c.state = StateClosed
		}
	case StateLastAck:
		if seg.ACK == c.tcb.SndNxt {
			c.state = StateClosed
		}
	}
	return reaction
}

// Send implements spec §4.4 "send(data)": builds an ACK carrying data and
// enqueues it for retransmission if non-empty.
func (c *Conn) Send(data []byte) Segment {
	return BuildAck(&c.tcb, &c.rtq, data)
}

// CloseLocal implements the local-close half of spec §3 Lifecycles:
// Established → FinWait1, or CloseWait → LastAck, each emitting a FIN+ACK.
func (c *Conn) CloseLocal() Segment {
	switch c.state {
	case StateEstablished:
		c.state = StateFinWait1
	case StateCloseWait:
		c.state = StateLastAck
	default:
		panic("tcp: CloseLocal called outside Established/CloseWait")
	}
	return BuildFin(&c.tcb)
}

// Retransmission returns the head of the retransmission queue without
// removing it, for re-emission on a peer-channel timeout (spec §4.4
// "retransmission()").
func (c *Conn) Retransmission() (Segment, bool) {
	entry, ok := c.rtq.Head()
	if !ok {
		return Segment{}, false
	}
	c.rtq.MarkHeadRetransmitted()
	return Segment{
		SEQ:     entry.Seq,
		ACK:     c.tcb.RcvNxt,
		WND:     c.tcb.RcvWnd,
		DATALEN: Size(len(entry.Payload)),
		Flags:   FlagACK,
	}, true
}

// RetransmissionPayload returns the payload bytes belonging to the head of
// the retransmission queue, matching the segment returned by
// Retransmission.
func (c *Conn) RetransmissionPayload() []byte {
	entry, ok := c.rtq.Head()
	if !ok {
		return nil
	}
	return entry.Payload
}
