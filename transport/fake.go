package transport

import (
	"sync"
	"time"
)

// Fake is an in-memory [Transport] for tests: Send appends to an Outbox a
// test can assert against, and Recv drains a queue a test feeds via
// Deliver. Not used by cmd/tcpchoreosrv; grounded purely in engine/peerchan
// test needs.
type Fake struct {
	mu     sync.Mutex
	inbox  []Datagram
	Outbox []Datagram
	closed bool
}

// Datagram is one recorded or queued unit of traffic through a [Fake].
type Datagram struct {
	Addr  [4]byte
	Bytes []byte
}

// NewFake returns a ready-to-use Fake transport.
func NewFake() *Fake { return &Fake{} }

// Deliver makes a datagram available to a subsequent Recv, as if it had
// arrived from src.
func (f *Fake) Deliver(src [4]byte, b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.inbox = append(f.inbox, Datagram{Addr: src, Bytes: cp})
}

// Send implements [Transport] by recording to Outbox.
func (f *Fake) Send(dst [4]byte, b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.Outbox = append(f.Outbox, Datagram{Addr: dst, Bytes: cp})
	return nil
}

// Recv implements [Transport]. With a zero deadline it blocks until Deliver
// or Close is called.
func (f *Fake) Recv(deadline time.Time) ([4]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.inbox) == 0 && !f.closed {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return [4]byte{}, nil, ErrTimeout
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		f.mu.Lock()
	}
	if len(f.inbox) == 0 {
		return [4]byte{}, nil, ErrTimeout
	}
	d := f.inbox[0]
	f.inbox = f.inbox[1:]
	return d.Addr, d.Bytes, nil
}

// Close marks the fake shut down, unblocking any pending Recv.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
