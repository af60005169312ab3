// Package peerchan implements the peer channel of spec §4.2: it filters
// and dispatches incoming IPv4+TCP datagrams into the typed segment
// messages of package tcp, and serializes outgoing typed messages back
// into wire bytes. It is the one place that bridges the byte-level [wire]
// codec and [transport.Transport] up to the tcp package's sequence-space
// view.
package peerchan

import (
	"log/slog"
	"time"

	"github.com/soypat/tcpchoreo/internal"
	"github.com/soypat/tcpchoreo/tcp"
	"github.com/soypat/tcpchoreo/transport"
	"github.com/soypat/tcpchoreo/wire"
)

// LocalAddr is the bound endpoint (spec §3 "Addresses"). ChecksumOffload
// records whether the transport is known to compute the TCP checksum in
// hardware; this implementation always computes it in software (see
// [wire.TCPFrame.ComputeChecksum]) regardless, since the raw-IP socket
// transport gives no such guarantee.
type LocalAddr struct {
	IP              [4]byte
	Port            uint16
	ChecksumOffload bool
}

// RemoteAddr is a peer endpoint.
type RemoteAddr struct {
	IP   [4]byte
	Port uint16
}

// Filter decides whether a received segment should be handed to the
// engine or silently dropped (spec §4.2 "Filter contract").
type Filter func(remote RemoteAddr, seg tcp.Segment) bool

// ListenFilter accepts only a pure SYN (spec §4.2 "Listen accepts only
// pure SYN").
func ListenFilter(remote RemoteAddr, seg tcp.Segment) bool {
	return seg.Flags.Mask() == tcp.FlagSYN
}

// ConnFilter accepts only segments from the latched peer (spec §4.2
// "Post-Listen states accept only segments whose (dst_port, src_port) ==
// (local.port, remote.port) and whose source IP equals the latched peer").
// The bound local port is already enforced by parse (every datagram handed
// up from the transport is addressed to the bound port), so this filter
// only needs to check the peer half of the tuple.
func ConnFilter(remote RemoteAddr) Filter {
	return func(src RemoteAddr, seg tcp.Segment) bool {
		return src == remote
	}
}

// Peer is the peer channel: owns the transport and the bound local
// address, and implements offer_one_filtered / offer_two_filtered /
// select_one (spec §4.2).
type Peer struct {
	tr     transport.Transport
	local  LocalAddr
	idSeed uint16
	internal.Logger
}

// New wraps tr as a peer channel bound to local. The IPv4 ID generator
// seeds off the local port so distinct listeners don't start from the same
// xorshift state.
func New(tr transport.Transport, local LocalAddr) *Peer {
	seed := local.Port ^ 0xace1
	if seed == 0 {
		seed = 0xace1 // xorshift has a fixed point at zero
	}
	return &Peer{tr: tr, local: local, idSeed: seed}
}

// parse decodes an IPv4 datagram into its peer address, sequence-space
// segment view, and payload. ok is false for anything this layer can't or
// shouldn't hand to the engine: non-TCP protocol, truncated framing, or a
// datagram not addressed to the bound port.
func (p *Peer) parse(datagram []byte) (RemoteAddr, tcp.Segment, []byte, bool) {
	ipf, ok := wire.NewIPv4Frame(datagram)
	if !ok || ipf.Protocol() != wire.ProtoTCP {
		return RemoteAddr{}, tcp.Segment{}, nil, false
	}
	tfrm, ok := wire.NewTCPFrame(ipf.Payload())
	if !ok {
		return RemoteAddr{}, tcp.Segment{}, nil, false
	}
	if tfrm.DestinationPort() != p.local.Port {
		return RemoteAddr{}, tcp.Segment{}, nil, false
	}
	remote := RemoteAddr{IP: *ipf.SourceAddr(), Port: tfrm.SourcePort()}
	return remote, tfrm.Segment(), tfrm.Payload(), true
}

// OfferOneFiltered blocks on the transport until a segment passes filter,
// silently dropping (at info level) everything that doesn't, including
// malformed framing (spec §4.2, §7 "Filter mismatch"). There is no
// deadline variant here; see OfferTwoFiltered.
func (p *Peer) OfferOneFiltered(filter Filter) (RemoteAddr, tcp.Segment, []byte, error) {
	for {
		_, datagram, err := p.tr.Recv(time.Time{})
		if err != nil {
			return RemoteAddr{}, tcp.Segment{}, nil, err
		}
		remote, seg, payload, ok := p.parse(datagram)
		if !ok {
			p.Info("peerchan: malformed or misaddressed datagram dropped")
			continue
		}
		if !filter(remote, seg) {
			p.Info("peerchan: filter mismatch, dropped", internal.SlogAddr4("remote_ip", &remote.IP), slog.String("seg", seg.String()))
			continue
		}
		return remote, seg, payload, nil
	}
}

// OfferTwoFiltered is OfferOneFiltered with an optional deadline. When
// deadline elapses before any passing segment arrives, timedOut is true and
// the caller (the engine's picker) must classify this as the Timeout
// branch (spec §4.2, §5).
func (p *Peer) OfferTwoFiltered(filter Filter, deadline time.Time) (remote RemoteAddr, seg tcp.Segment, payload []byte, timedOut bool, err error) {
	for {
		_, datagram, recvErr := p.tr.Recv(deadline)
		if recvErr == transport.ErrTimeout {
			return RemoteAddr{}, tcp.Segment{}, nil, true, nil
		}
		if recvErr != nil {
			return RemoteAddr{}, tcp.Segment{}, nil, false, recvErr
		}
		remote, seg, payload, ok := p.parse(datagram)
		if !ok {
			p.Info("peerchan: malformed or misaddressed datagram dropped")
			continue
		}
		if !filter(remote, seg) {
			p.Info("peerchan: filter mismatch, dropped", internal.SlogAddr4("remote_ip", &remote.IP), slog.String("seg", seg.String()))
			continue
		}
		return remote, seg, payload, false, nil
	}
}

// SelectOne serializes seg (and payload, if any) addressed to remote and
// hands the bytes to the transport (spec §4.2 select_one).
func (p *Peer) SelectOne(remote RemoteAddr, seg tcp.Segment, payload []byte) error {
	tcpLen := 20 + len(payload)
	buf := make([]byte, 20+tcpLen)
	ipf, _ := wire.NewIPv4Frame(buf)
	p.idSeed = internal.Prand16(p.idSeed)
	ipf.InitHeader(p.local.IP, remote.IP, p.idSeed, 64, uint16(tcpLen))

	tfrm, _ := wire.NewTCPFrame(ipf.Payload())
	copy(tfrm.RawData()[20:], payload)
	tfrm.InitSegment(p.local.Port, remote.Port, seg)

	var pseudo wire.CRC791
	ipf.WriteTCPPseudoHeader(&pseudo, uint16(tcpLen))
	tfrm.SetCRC(tfrm.ComputeChecksum(pseudo))

	p.traceOut(remote, seg)
	return p.tr.Send(remote.IP, buf)
}

func (p *Peer) traceOut(remote RemoteAddr, seg tcp.Segment) {
	if p.Enabled(internal.LevelTrace) {
		p.Trace("peerchan: send", internal.SlogAddr4("remote_ip", &remote.IP), slog.Uint64("remote_port", uint64(remote.Port)), slog.String("seg", seg.String()))
	}
}
