package tcp

import (
	"fmt"

	"github.com/soypat/tcpchoreo/seqnum"
)

type Value = seqnum.Value
type Size = seqnum.Size

// Segment is the sequence-space view of a TCP header plus payload length,
// stripped of anything accept() and the choreography don't need (ports and
// addresses live one layer up, in the peer channel).
type Segment struct {
	SEQ     Value // sequence number of the first payload octet, or the ISN if SYN is set.
	ACK     Value // acknowledgment number, meaningful only if Flags has FlagACK.
	DATALEN Size  // payload length, not counting SYN/FIN control octets.
	WND     Size  // advertised window.
	Flags   Flags
}

// LEN returns the number of octets of sequence space the segment consumes,
// including the SYN and FIN control octets.
func (seg Segment) LEN() Size {
	n := seg.DATALEN
	if seg.Flags.HasAny(FlagSYN) {
		n++
	}
	if seg.Flags.HasAny(FlagFIN) {
		n++
	}
	return n
}

// Last returns the sequence number of the last octet occupied by the segment.
// For a zero-length segment this is SEQ itself (RFC 9293 §3.4 treats a
// zero-length segment as occupying its SEQ for window-test purposes only).
func (seg Segment) Last() Value {
	n := seg.LEN()
	if n == 0 {
		return seg.SEQ
	}
	return seqnum.Add(seg.SEQ, n) - 1
}

func (seg Segment) String() string {
	return fmt.Sprintf("<SEQ=%d><ACK=%d><WND=%d>%s len=%d", seg.SEQ, seg.ACK, seg.WND, seg.Flags, seg.DATALEN)
}
