package tcp

//go:generate stringer -type=State -linecomment -output state_string.go .

// State enumerates the states a connection progresses through. This is the
// reduced set relevant to a passive-open, single-peer server: there is no
// SYN-SENT (no active open), no CLOSING (no simultaneous close), and no
// TIME-WAIT (explicitly out of scope — see spec §1 Non-goals). FIN-WAIT-2
// terminates directly on the peer's FIN instead of lingering.
type State uint8

const (
	// StateClosed is the state of a fresh Conn before Open, and the terminal
	// state after teardown.
	StateClosed State = iota // CLOSED
	// StateListen awaits a SYN from any peer on the bound port.
	StateListen // LISTEN
	// StateSynRcvd awaits the ACK that completes the three-way handshake.
	StateSynRcvd // SYN-RECEIVED
	// StateEstablished is the open data-transfer state.
	StateEstablished // ESTABLISHED
	// StateFinWait1 awaits an ACK of our FIN, or a simultaneous FIN from the peer.
	StateFinWait1 // FIN-WAIT-1
	// StateFinWait2 awaits the peer's FIN having already had ours ACKed.
	StateFinWait2 // FIN-WAIT-2
	// StateCloseWait awaits a local Close after having received the peer's FIN.
	StateCloseWait // CLOSE-WAIT
	// StateLastAck awaits the ACK of our FIN sent in response to the peer's.
	StateLastAck // LAST-ACK
)

var stateNames = [...]string{
	StateClosed:      "CLOSED",
	StateListen:       "LISTEN",
	StateSynRcvd:      "SYN-RECEIVED",
	StateEstablished:  "ESTABLISHED",
	StateFinWait1:     "FIN-WAIT-1",
	StateFinWait2:     "FIN-WAIT-2",
	StateCloseWait:    "CLOSE-WAIT",
	StateLastAck:      "LAST-ACK",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// IsClosed reports whether the state represents a fully torn down connection.
func (s State) IsClosed() bool { return s == StateClosed }

// IsPreestablished reports whether the state precedes StateEstablished.
func (s State) IsPreestablished() bool {
	return s == StateListen || s == StateSynRcvd
}

// CanAccept reports whether accept() (§4.3) applies in this state. Listen is
// handled separately by the initial-SYN path (§4.5).
func (s State) CanAccept() bool {
	switch s {
	case StateSynRcvd, StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait, StateLastAck:
		return true
	default:
		return false
	}
}
