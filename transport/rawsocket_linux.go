//go:build linux

package transport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// RawSocket is a [Transport] backed by an AF_INET/SOCK_RAW/IP_HDRINCL
// socket: the kernel neither builds nor strips the IPv4 header, so every
// Send/Recv moves the whole IPv4 datagram (spec §1 "the raw-IP I/O driver
// ... is out of scope" -- this is the concrete collaborator behind that
// boundary, generalized from a link-layer tap/tun driver to an L3 raw-IP
// socket since this system terminates one IPv4 peer directly, with no
// Ethernet framing to manage).
type RawSocket struct {
	fd      int
	localIP [4]byte
}

// NewRawSocket opens a raw IPv4 socket bound for traffic to/from localIP.
// IP_HDRINCL means the caller is responsible for building the IPv4 header
// on send and parsing it on receive (see wire.IPv4Frame).
func NewRawSocket(localIP [4]byte) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("transport: open raw socket: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		return nil, fmt.Errorf("transport: set IP_HDRINCL: %w", err)
	}
	addr := unix.SockaddrInet4{Addr: localIP}
	if err := unix.Bind(fd, &addr); err != nil {
		return nil, fmt.Errorf("transport: bind %v: %w", localIP, err)
	}
	ok = true
	return &RawSocket{fd: fd, localIP: localIP}, nil
}

// Send implements [Transport].
func (s *RawSocket) Send(dst [4]byte, b []byte) error {
	addr := unix.SockaddrInet4{Addr: dst}
	return unix.Sendto(s.fd, b, 0, &addr)
}

// maxPoll caps each blocking Recvfrom so a long or absent deadline doesn't
// prevent the process from reacting to, e.g., a signal-driven shutdown;
// Recv re-applies the timeout and loops until the real deadline passes.
const maxPoll = 200 * time.Millisecond

// Recv implements [Transport]. A zero deadline blocks until a datagram
// arrives; a non-zero deadline returns [ErrTimeout] once it elapses.
func (s *RawSocket) Recv(deadline time.Time) ([4]byte, []byte, error) {
	buf := make([]byte, 65535)
	for {
		slice := maxPoll
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return [4]byte{}, nil, ErrTimeout
			}
			if remaining < slice {
				slice = remaining
			}
		}
		if err := s.setRecvTimeout(slice); err != nil {
			return [4]byte{}, nil, err
		}
		n, from, err := unix.Recvfrom(s.fd, buf, 0)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if deadline.IsZero() {
				continue
			}
			continue // outer loop re-checks the real deadline.
		}
		if err != nil {
			return [4]byte{}, nil, fmt.Errorf("transport: recvfrom: %w", err)
		}
		sa4, ok := from.(*unix.SockaddrInet4)
		if !ok {
			continue
		}
		return sa4.Addr, buf[:n], nil
	}
}

func (s *RawSocket) setRecvTimeout(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Close releases the underlying file descriptor.
func (s *RawSocket) Close() error { return unix.Close(s.fd) }
