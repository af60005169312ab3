//go:build !linux

package transport

import (
	"errors"
	"time"
)

// RawSocket is unavailable outside Linux: IP_HDRINCL raw sockets are a
// Linux-specific facility this system relies on (spec §1 "the raw-IP I/O
// driver" is a narrow, swappable boundary -- a BSD/Darwin implementation
// would need its own file here).
type RawSocket struct{}

// NewRawSocket always fails on non-Linux platforms.
func NewRawSocket(localIP [4]byte) (*RawSocket, error) {
	return nil, errors.New("transport: raw IP_HDRINCL sockets are only implemented on linux")
}

func (s *RawSocket) Send(dst [4]byte, b []byte) error { return errUnsupported }
func (s *RawSocket) Recv(deadline time.Time) ([4]byte, []byte, error) {
	return [4]byte{}, nil, errUnsupported
}
func (s *RawSocket) Close() error { return errUnsupported }

var errUnsupported = errors.New("transport: unsupported platform")
