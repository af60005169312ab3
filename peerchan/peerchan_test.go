package peerchan

import (
	"testing"
	"time"

	"github.com/soypat/tcpchoreo/tcp"
	"github.com/soypat/tcpchoreo/transport"
	"github.com/soypat/tcpchoreo/wire"
)

func buildDatagram(t *testing.T, srcIP, dstIP [4]byte, srcPort, dstPort uint16, seg tcp.Segment, payload []byte) []byte {
	t.Helper()
	tcpLen := 20 + len(payload)
	buf := make([]byte, 20+tcpLen)
	ipf, ok := wire.NewIPv4Frame(buf)
	if !ok {
		t.Fatal("short buffer")
	}
	ipf.InitHeader(srcIP, dstIP, 1, 64, uint16(tcpLen))
	tfrm, ok := wire.NewTCPFrame(ipf.Payload())
	if !ok {
		t.Fatal("short buffer")
	}
	copy(tfrm.RawData()[20:], payload)
	tfrm.InitSegment(srcPort, dstPort, seg)
	var pseudo wire.CRC791
	ipf.WriteTCPPseudoHeader(&pseudo, uint16(tcpLen))
	tfrm.SetCRC(tfrm.ComputeChecksum(pseudo))
	return buf
}

func TestOfferOneFilteredDropsNonMatching(t *testing.T) {
	ft := transport.NewFake()
	local := LocalAddr{IP: [4]byte{10, 0, 0, 1}, Port: 555}
	p := New(ft, local)

	wrongPort := buildDatagram(t, [4]byte{10, 0, 0, 2}, local.IP, 6000, 9999, tcp.Segment{SEQ: 1000, Flags: tcp.FlagSYN}, nil)
	ft.Deliver([4]byte{10, 0, 0, 2}, wrongPort)

	nonSyn := buildDatagram(t, [4]byte{10, 0, 0, 2}, local.IP, 6000, local.Port, tcp.Segment{SEQ: 1000, ACK: 1, Flags: tcp.FlagACK}, nil)
	ft.Deliver([4]byte{10, 0, 0, 2}, nonSyn)

	good := buildDatagram(t, [4]byte{10, 0, 0, 2}, local.IP, 6000, local.Port, tcp.Segment{SEQ: 1000, Flags: tcp.FlagSYN}, nil)
	ft.Deliver([4]byte{10, 0, 0, 2}, good)

	remote, seg, _, err := p.OfferOneFiltered(ListenFilter)
	if err != nil {
		t.Fatal(err)
	}
	if remote.Port != 6000 || seg.SEQ != 1000 || seg.Flags != tcp.FlagSYN {
		t.Fatalf("got remote=%+v seg=%+v", remote, seg)
	}
}

func TestOfferTwoFilteredTimeout(t *testing.T) {
	ft := transport.NewFake()
	local := LocalAddr{IP: [4]byte{10, 0, 0, 1}, Port: 555}
	p := New(ft, local)

	_, _, _, timedOut, err := p.OfferTwoFiltered(ListenFilter, time.Now().Add(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !timedOut {
		t.Fatal("expected timeout")
	}
}

func TestSelectOneChecksum(t *testing.T) {
	ft := transport.NewFake()
	local := LocalAddr{IP: [4]byte{10, 0, 0, 1}, Port: 555}
	p := New(ft, local)
	remote := RemoteAddr{IP: [4]byte{10, 0, 0, 2}, Port: 6000}

	seg := tcp.Segment{SEQ: 123, ACK: 1001, WND: 1000, Flags: tcp.FlagACK | tcp.FlagSYN}
	if err := p.SelectOne(remote, seg, nil); err != nil {
		t.Fatal(err)
	}
	if len(ft.Outbox) != 1 {
		t.Fatalf("expected one outbound datagram, got %d", len(ft.Outbox))
	}
	// parse only accepts datagrams addressed to its own bound port, so the
	// output is decoded from the receiving peer's point of view.
	rx := New(ft, LocalAddr{IP: remote.IP, Port: remote.Port})
	gotRemote, gotSeg, _, ok := rx.parse(ft.Outbox[0].Bytes)
	_ = gotRemote
	if !ok {
		t.Fatal("could not parse own output")
	}
	if gotSeg.SEQ != seg.SEQ || gotSeg.ACK != seg.ACK || gotSeg.Flags != seg.Flags {
		t.Fatalf("got %+v want %+v", gotSeg, seg)
	}

	ipf, _ := wire.NewIPv4Frame(ft.Outbox[0].Bytes)
	tfrm, _ := wire.NewTCPFrame(ipf.Payload())
	sent := tfrm.CRC()
	tfrm.SetCRC(0)
	var pseudo wire.CRC791
	ipf.WriteTCPPseudoHeader(&pseudo, uint16(len(ipf.Payload())))
	if want := tfrm.ComputeChecksum(pseudo); sent != want {
		t.Fatalf("tcp checksum = %#04x, want %#04x", sent, want)
	}
}
