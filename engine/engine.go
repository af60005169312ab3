// Package engine implements the core thread of spec §4.1/§5: it drives the
// peer-facing and user-facing choreographies against a single [tcp.Conn].
// The strictly-ordered prefix (Open? ; TcbCreated! ; Syn? ; SynAck!) and the
// handshake's one genuine two-way branch (accept vs. reject the completing
// ACK) are expressed with package choreo's tokens, since that's exactly the
// shape choreo exists for. Established/FinWait/CloseWait/LastAck dispatch
// is a plain switch over tcp.State instead: each of those states recurs
// into itself under a picker-classified reaction rather than stepping
// through a fixed sequence, and spec §9's design notes explicitly sanction
// "an explicit state enum with a driver dispatching on the tag" as the
// equivalent of a phantom-typed connection.
package engine

import (
	"encoding/binary"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/tcpchoreo/choreo"
	"github.com/soypat/tcpchoreo/internal"
	"github.com/soypat/tcpchoreo/peerchan"
	"github.com/soypat/tcpchoreo/tcp"
	"github.com/soypat/tcpchoreo/userchan"
)

// DefaultRetransmitTimeout is the deadline spec §8 scenario S6 measures
// against: no ACK within one second of an outbound data segment triggers a
// retransmission of the retransmission queue's head.
const DefaultRetransmitTimeout = 1 * time.Second

// issSource chooses the initial send sequence number for a new connection
// (spec §4.5 step 2, §9 open question). *tcp.ISSGenerator and fixedISS both
// satisfy it.
type issSource interface {
	Next(tuple []byte) tcp.Value
}

// fixedISS is the demonstration default the spec names explicitly: a
// constant, insecure ISS (spec §9 "demonstration uses a constant 123").
type fixedISS struct{}

func (fixedISS) Next([]byte) tcp.Value { return tcp.FixedISS }

// Core is the core thread: it owns the peer channel, the connection, and
// its half of the user channel exclusively (spec §5 "no mutable state
// shared" between threads).
type Core struct {
	peer   *peerchan.Peer
	user   userchan.Side
	conn   *tcp.Conn
	remote peerchan.RemoteAddr
	iss    issSource

	// RetransmitTimeout overrides DefaultRetransmitTimeout; exposed mainly
	// so tests don't have to wait a full second for S6.
	RetransmitTimeout time.Duration

	internal.Logger
}

// NewCore wires a Core over peer and user. iss may be nil, in which case
// every connection uses the insecure fixed ISS; pass a *tcp.ISSGenerator to
// draw from an unpredictable source instead.
func NewCore(peer *peerchan.Peer, user userchan.Side, iss *tcp.ISSGenerator) *Core {
	var src issSource = fixedISS{}
	if iss != nil {
		src = iss
	}
	return &Core{
		peer:              peer,
		user:              user,
		conn:              tcp.NewConn(),
		iss:               src,
		RetransmitTimeout: DefaultRetransmitTimeout,
	}
}

// Run drives the connection from Closed through to a terminal state and
// returns. A nil error covers every clean ending the spec recognizes,
// including a peer RST and a completed four-way close (spec §6 "exit code
// 0 on clean shutdown"); a non-nil error is either a transport failure
// (spec §7 "Transport I/O failure: propagated upward; terminates the core
// thread") or io.ErrClosedPipe when the user channel is shut down while the
// core is waiting on it. A shut-down user channel ends Run with that error;
// it is not handled as a Close from the user.
func (c *Core) Run() error {
	if err := c.awaitOpen(); err != nil {
		return err
	}
	if err := c.handshake(); err != nil {
		return err
	}
	return c.serve()
}

// awaitOpen implements the choreography's leading `Open? ; TcbCreated!`
// (spec §4.1) as a literal offer_one/select_one pair.
func (c *Core) awaitOpen() error {
	recvOpen := func() (userchan.Message, error) {
		msg, ok := c.user.Receive()
		if !ok {
			return userchan.Message{}, io.ErrClosedPipe
		}
		if msg.Kind != userchan.Open {
			// Not representable by the session type; spec §7 calls this a
			// hard failure, to be documented as a bug class rather than
			// silently handled.
			panic("engine: expected Open from user, got " + msg.Kind.String())
		}
		return msg, nil
	}
	_, tok, err := choreo.OfferOne(recvOpen, tcp.StateListen)
	if err != nil {
		return err
	}
	if err := c.conn.Open(); err != nil {
		return err
	}
	_ = tok.Continue() // choreography advances to StateListen

	_, err = choreo.SelectOne(func(m userchan.Message) error {
		c.user.Send(m)
		return nil
	}, userchan.Message{Kind: userchan.TcbCreated}, tcp.StateListen)
	return err
}

// connTuple derives the byte tuple an ISS generator keys its hash on: the
// peer's address and port, which is all that's known before the handshake
// completes.
func connTuple(remote peerchan.RemoteAddr) []byte {
	buf := make([]byte, 6)
	copy(buf, remote.IP[:])
	binary.BigEndian.PutUint16(buf[4:], remote.Port)
	return buf
}

// synMsg is the Syn? message of spec §4.1's peer-facing choreography,
// bundling the segment with the address it must be answered at.
type synMsg struct {
	remote peerchan.RemoteAddr
	seg    tcp.Segment
}

// handshake implements `Syn? ; SynAck! ; μ SynRcvd. Ack? & (...)` (spec
// §4.1): the initial SYN/SYN-ACK exchange via offer_one/select_one, then
// the SynRcvd retry loop as an offer_two classifying each received ACK into
// the branch the pseudocode names (accepted, a challengeable reject, or a
// defensive reset).
func (c *Core) handshake() error {
	recvSyn := func() (synMsg, error) {
		remote, seg, _, err := c.peer.OfferOneFiltered(peerchan.ListenFilter)
		if err != nil {
			return synMsg{}, err
		}
		return synMsg{remote: remote, seg: seg}, nil
	}
	syn, synTok, err := choreo.OfferOne(recvSyn, tcp.StateSynRcvd)
	if err != nil {
		return err
	}
	// ListenFilter already guarantees a pure SYN; NewSyn re-asserts that at
	// the choreography boundary instead of trusting the filter silently.
	synMessage := tcp.NewSyn(syn.seg)
	c.remote = syn.remote
	_ = synTok.Continue()

	iss := c.iss.Next(connTuple(syn.remote))
	synack := tcp.NewSynAck(c.conn.AcceptInitialSyn(synMessage.Seg, iss))
	_, err = choreo.SelectOne(func(s tcp.SynAck) error {
		return c.peer.SelectOne(syn.remote, s.Seg, nil)
	}, synack, tcp.StateSynRcvd)
	if err != nil {
		return err
	}

	for c.conn.State() == tcp.StateSynRcvd {
		branch, err := choreo.OfferTwo(
			func(time.Time) (tcp.Reaction, bool, error) {
				_, seg, payload, err := c.peer.OfferOneFiltered(peerchan.ConnFilter(c.remote))
				if err != nil {
					return tcp.Reaction{}, false, err
				}
				return c.conn.Accept(seg, payload), false, nil
			},
			time.Time{}, // no deadline: the handshake retry never times out
			func(r tcp.Reaction, _ bool) (string, tcp.State) {
				switch r.Kind {
				case tcp.Acceptable:
					return "accepted", tcp.StateEstablished
				case tcp.Reset:
					return "reset", tcp.StateClosed
				default:
					return "challenge", tcp.StateSynRcvd
				}
			},
		)
		if err != nil {
			return err
		}
		reaction := branch.Msg
		_ = branch.Token.Continue()

		switch branch.Tag {
		case "accepted":
			c.Info("engine: handshake complete", slog.Uint64("remote_port", uint64(c.remote.Port)))
			if reaction.ResponseAck != nil {
				if err := c.sendAck(c.remote, *reaction.ResponseAck, nil); err != nil {
					return err
				}
			}
			c.user.Send(userchan.Message{Kind: userchan.Connected})
		case "reset":
			if reaction.Rst != nil {
				if err := c.sendRst(c.remote, *reaction.Rst); err != nil {
					return err
				}
			}
			c.user.Send(userchan.Message{Kind: userchan.Close})
		case "challenge":
			if reaction.ResponseAck != nil {
				if err := c.sendAck(c.remote, *reaction.ResponseAck, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sendAck wraps seg as the alphabet's Ack message before handing it to the
// peer channel, re-asserting at the send boundary that every challenge/data
// ACK this engine emits really is flagged ACK-only.
func (c *Core) sendAck(remote peerchan.RemoteAddr, seg tcp.Segment, payload []byte) error {
	msg := tcp.NewAck(seg, payload)
	return c.peer.SelectOne(remote, msg.Seg, msg.Payload)
}

// sendFinAck wraps seg as the alphabet's FinAck message.
func (c *Core) sendFinAck(remote peerchan.RemoteAddr, seg tcp.Segment) error {
	msg := tcp.NewFinAck(seg)
	return c.peer.SelectOne(remote, msg.Seg, nil)
}

// sendRst wraps seg as the alphabet's Rst message.
func (c *Core) sendRst(remote peerchan.RemoteAddr, seg tcp.Segment) error {
	msg := tcp.NewRst(seg)
	return c.peer.SelectOne(remote, msg.Seg, nil)
}

// serve implements the post-handshake choreography: Loop_body in
// Established, the two FinWait states, CloseWait, and LastAck (spec §4.1).
func (c *Core) serve() error {
	for {
		switch c.conn.State() {
		case tcp.StateEstablished:
			if err := c.serveEstablished(); err != nil {
				return err
			}
		case tcp.StateFinWait1, tcp.StateFinWait2:
			if err := c.serveFinWait(); err != nil {
				return err
			}
		case tcp.StateCloseWait:
			if err := c.serveCloseWait(); err != nil {
				return err
			}
		case tcp.StateLastAck:
			if err := c.serveLastAck(); err != nil {
				return err
			}
		case tcp.StateClosed:
			return nil
		default:
			panic("engine: serve reached an unrepresentable state " + c.conn.State().String())
		}
	}
}

// serveEstablished runs one iteration of Loop_body (spec §4.1): one
// offer_two_filtered against the peer, with the retransmission deadline
// active, followed by whichever response the reaction calls for. The
// nested `offer user { Data | Close }` only happens on the literal branch
// the spec gives it: right after a peer segment carrying payload has been
// forwarded to the user as Data. A peer that never sends data gives the
// user no other opportunity to speak while Established; that asymmetry is
// the spec's choreography exactly as written (§4.1), not a simplification
// added here.
func (c *Core) serveEstablished() error {
	remote := c.remote
	deadline := time.Now().Add(c.retransmitTimeout())

	_, seg, payload, timedOut, err := c.peer.OfferTwoFiltered(peerchan.ConnFilter(remote), deadline)
	if err != nil {
		return err
	}
	if timedOut {
		if rseg, ok := c.conn.Retransmission(); ok {
			rpayload := c.conn.RetransmissionPayload()
			c.Info("engine: retransmission timeout, re-emitting queue head")
			return c.peer.SelectOne(remote, rseg, rpayload)
		}
		return nil
	}

	reaction := c.conn.Accept(seg, payload)
	switch reaction.Kind {
	case tcp.Reset:
		c.user.Send(userchan.Message{Kind: userchan.Close})
		return nil
	case tcp.NotAcceptable:
		if reaction.ResponseAck != nil {
			return c.sendAck(remote, *reaction.ResponseAck, nil)
		}
		return nil
	}

	if reaction.ResponseAck != nil {
		if err := c.sendAck(remote, *reaction.ResponseAck, nil); err != nil {
			return err
		}
	}
	if c.conn.State() == tcp.StateCloseWait {
		// FinAck branch: `Ack! ; Close! (to user) ; CloseWait`.
		c.user.Send(userchan.Message{Kind: userchan.Close})
		return nil
	}
	if len(reaction.Payload) == 0 {
		// Ack(empty, acceptable) -> Loop.
		return nil
	}

	// Ack(with payload) -> Data! (to user) ; offer user { Data | Close }.
	c.user.Send(userchan.Message{Kind: userchan.Data, Payload: reaction.Payload})
	msg, ok := c.user.Receive()
	if !ok {
		return io.ErrClosedPipe
	}
	switch msg.Kind {
	case userchan.Data:
		out := c.conn.Send(msg.Payload)
		return c.sendAck(remote, out, msg.Payload)
	case userchan.Close:
		fin := c.conn.CloseLocal() // Established -> FinWait1
		return c.sendFinAck(remote, fin)
	default:
		panic("engine: unexpected user message in Established: " + msg.Kind.String())
	}
}

func (c *Core) retransmitTimeout() time.Duration {
	if c.RetransmitTimeout > 0 {
		return c.RetransmitTimeout
	}
	return DefaultRetransmitTimeout
}

// serveFinWait implements both `FinWait1 = offer peer {...}` and
// `FinWait2 = offer peer {...}` (spec §4.1): neither branches on the user
// channel, so a single loop handles both until the state leaves either.
func (c *Core) serveFinWait() error {
	remote := c.remote
	for c.conn.State() == tcp.StateFinWait1 || c.conn.State() == tcp.StateFinWait2 {
		_, seg, payload, err := c.peer.OfferOneFiltered(peerchan.ConnFilter(remote))
		if err != nil {
			return err
		}
		reaction := c.conn.Accept(seg, payload)
		if reaction.Kind == tcp.Reset {
			c.user.Send(userchan.Message{Kind: userchan.Close})
			return nil
		}
		if reaction.ResponseAck != nil {
			if err := c.sendAck(remote, *reaction.ResponseAck, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// serveCloseWait implements `CloseWait = offer user {...}` (spec §4.1): the
// Data branch explicitly waits for the peer's ack of that data (`Ack?`)
// before looping back to offering the user again.
func (c *Core) serveCloseWait() error {
	remote := c.remote
	for c.conn.State() == tcp.StateCloseWait {
		msg, ok := c.user.Receive()
		if !ok {
			return io.ErrClosedPipe
		}
		switch msg.Kind {
		case userchan.Data:
			seg := c.conn.Send(msg.Payload)
			if err := c.sendAck(remote, seg, msg.Payload); err != nil {
				return err
			}
			if err := c.awaitPeerAck(); err != nil {
				return err
			}
		case userchan.Close:
			fin := c.conn.CloseLocal() // CloseWait -> LastAck
			if err := c.sendFinAck(remote, fin); err != nil {
				return err
			}
		default:
			panic("engine: unexpected user message in CloseWait: " + msg.Kind.String())
		}
	}
	return nil
}

// serveLastAck implements `LastAck` awaiting the ACK of our FIN (spec §3
// Lifecycles "LastAck -> terminal on ACK of our FIN").
func (c *Core) serveLastAck() error {
	remote := c.remote
	for c.conn.State() == tcp.StateLastAck {
		_, seg, payload, err := c.peer.OfferOneFiltered(peerchan.ConnFilter(remote))
		if err != nil {
			return err
		}
		reaction := c.conn.Accept(seg, payload)
		if reaction.Kind == tcp.Reset {
			return nil
		}
		if reaction.ResponseAck != nil {
			if err := c.sendAck(remote, *reaction.ResponseAck, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// awaitPeerAck blocks for exactly one segment from the latched peer and
// applies whatever response it calls for, without otherwise touching
// engine state. Used by serveCloseWait's `Ack?` step.
func (c *Core) awaitPeerAck() error {
	_, seg, payload, err := c.peer.OfferOneFiltered(peerchan.ConnFilter(c.remote))
	if err != nil {
		return err
	}
	reaction := c.conn.Accept(seg, payload)
	if reaction.ResponseAck != nil {
		return c.sendAck(c.remote, *reaction.ResponseAck, nil)
	}
	return nil
}
