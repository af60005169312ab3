package tcp

import "github.com/soypat/tcpchoreo/internal"

// retransmitEntry is one outstanding data-bearing segment awaiting
// cumulative acknowledgment (spec §3 "Retransmission queue").
type retransmitEntry struct {
	Seq     Value
	Payload []byte
	// Retransmitted counts how many times this entry has been resent. It has
	// no behavioral effect (there is no give-up envelope, spec §7) and exists
	// purely for diagnostics, ported from the original Rust implementation's
	// per-segment retransmit counter (see SPEC_FULL.md §12).
	Retransmitted int
}

func (e *retransmitEntry) endSeq() Value { return seqAdd(e.Seq, Size(len(e.Payload))) }

// RetransmitQueue is a FIFO of emitted data-bearing segments. Empty ACKs,
// SYN, and FIN are never queued (spec §3).
type RetransmitQueue struct {
	entries []retransmitEntry
	internal.Logger
}

// Push enqueues a newly sent data-bearing segment. payload is copied so the
// caller's buffer can be reused.
func (q *RetransmitQueue) Push(seq Value, payload []byte) {
	if len(payload) == 0 {
		return
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	q.entries = append(q.entries, retransmitEntry{Seq: seq, Payload: cp})
}

// Head returns the oldest unacknowledged entry, for retransmission on
// timeout (spec §4.4, S6). ok is false if the queue is empty.
func (q *RetransmitQueue) Head() (entry retransmitEntry, ok bool) {
	if len(q.entries) == 0 {
		return retransmitEntry{}, false
	}
	return q.entries[0], true
}

// MarkHeadRetransmitted bumps the diagnostic retransmit counter of the head
// entry. No-op if the queue is empty.
func (q *RetransmitQueue) MarkHeadRetransmitted() {
	if len(q.entries) > 0 {
		q.entries[0].Retransmitted++
	}
}

// DrainAcked pops every entry fully covered by una (entry.seq+len <= una),
// per spec §3 / testable property 3. Returns the number of entries removed.
func (q *RetransmitQueue) DrainAcked(una Value) int {
	n := 0
	for n < len(q.entries) && q.entries[n].endSeq().LessThanEq(una) {
		n++
	}
	if n > 0 {
		q.entries = append(q.entries[:0], q.entries[n:]...)
	}
	return n
}

// Len returns the number of entries currently queued.
func (q *RetransmitQueue) Len() int { return len(q.entries) }

// Invariant checks testable property 3: the head's span must extend past
// una, i.e. it has not actually been fully acknowledged.
func (q *RetransmitQueue) Invariant(una Value) bool {
	if len(q.entries) == 0 {
		return true
	}
	return una.LessThan(q.entries[0].endSeq())
}
