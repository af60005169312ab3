package engine

import (
	"testing"
	"time"

	"github.com/soypat/tcpchoreo/peerchan"
	"github.com/soypat/tcpchoreo/tcp"
	"github.com/soypat/tcpchoreo/transport"
	"github.com/soypat/tcpchoreo/userchan"
	"github.com/soypat/tcpchoreo/wire"
)

var (
	localAddr  = peerchan.LocalAddr{IP: [4]byte{10, 0, 0, 1}, Port: 555}
	remoteIP   = [4]byte{10, 0, 0, 2}
	remotePort = uint16(6000)
)

func buildDatagram(t *testing.T, seg tcp.Segment, payload []byte) []byte {
	t.Helper()
	tcpLen := 20 + len(payload)
	buf := make([]byte, 20+tcpLen)
	ipf, ok := wire.NewIPv4Frame(buf)
	if !ok {
		t.Fatal("short buffer")
	}
	ipf.InitHeader(remoteIP, localAddr.IP, 1, 64, uint16(tcpLen))
	tfrm, ok := wire.NewTCPFrame(ipf.Payload())
	if !ok {
		t.Fatal("short buffer")
	}
	copy(tfrm.RawData()[20:], payload)
	tfrm.InitSegment(remotePort, localAddr.Port, seg)
	var pseudo wire.CRC791
	ipf.WriteTCPPseudoHeader(&pseudo, uint16(tcpLen))
	tfrm.SetCRC(tfrm.ComputeChecksum(pseudo))
	return buf
}

// parseDatagram decodes one of the Core's own outbound datagrams, for
// assertions; it mirrors peerchan's internal parse since that is
// unexported.
func parseDatagram(t *testing.T, b []byte) tcp.Segment {
	t.Helper()
	ipf, ok := wire.NewIPv4Frame(b)
	if !ok {
		t.Fatal("short ip frame")
	}
	tfrm, ok := wire.NewTCPFrame(ipf.Payload())
	if !ok {
		t.Fatal("short tcp frame")
	}
	return tfrm.Segment()
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestEngineHandshakeThenPeerClose drives spec §8 scenarios S1 and S4
// end-to-end through Core.Run, a fake transport, and the real userchan
// queues.
func TestEngineHandshakeThenPeerClose(t *testing.T) {
	ft := transport.NewFake()
	peer := peerchan.New(ft, localAddr)
	ch := userchan.NewChannel()
	core := NewCore(peer, ch.CoreSide(), nil)
	user := ch.UserSide()

	done := make(chan error, 1)
	go func() { done <- core.Run() }()

	user.Send(userchan.Message{Kind: userchan.Open})
	msg, ok := user.Receive()
	if !ok || msg.Kind != userchan.TcbCreated {
		t.Fatalf("expected TcbCreated, got %+v ok=%v", msg, ok)
	}

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1000, WND: 4096, Flags: tcp.FlagSYN}, nil))

	waitFor(t, func() bool { return len(ft.Outbox) >= 1 })
	synack := parseDatagram(t, ft.Outbox[0].Bytes)
	if synack.Flags.Mask() != tcp.FlagSYN|tcp.FlagACK || synack.ACK != 1001 {
		t.Fatalf("unexpected syn+ack: %+v", synack)
	}
	iss := synack.SEQ

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1001, ACK: iss + 1, WND: 4096, Flags: tcp.FlagACK}, nil))

	msg, ok = user.Receive()
	if !ok || msg.Kind != userchan.Connected {
		t.Fatalf("expected Connected, got %+v ok=%v", msg, ok)
	}

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1001, ACK: iss + 1, WND: 4096, Flags: tcp.FlagFIN | tcp.FlagACK}, nil))

	msg, ok = user.Receive()
	if !ok || msg.Kind != userchan.Close {
		t.Fatalf("expected Close, got %+v ok=%v", msg, ok)
	}

	waitFor(t, func() bool { return len(ft.Outbox) >= 2 })
	closeAck := parseDatagram(t, ft.Outbox[1].Bytes)
	if closeAck.Flags.Mask() != tcp.FlagACK || closeAck.ACK != 1002 {
		t.Fatalf("unexpected ack of peer fin: %+v", closeAck)
	}

	user.Send(userchan.Message{Kind: userchan.Close})

	waitFor(t, func() bool { return len(ft.Outbox) >= 3 })
	fin := parseDatagram(t, ft.Outbox[2].Bytes)
	if fin.Flags.Mask() != tcp.FlagFIN|tcp.FlagACK {
		t.Fatalf("expected our FIN+ACK, got %+v", fin)
	}

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1002, ACK: fin.SEQ + 1, WND: 4096, Flags: tcp.FlagACK}, nil))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Core.Run did not terminate")
	}
}

// TestEngineRetransmission drives spec §8 scenario S6: a sent data segment
// goes unacknowledged past the deadline, and the engine re-emits it
// unchanged.
func TestEngineRetransmission(t *testing.T) {
	ft := transport.NewFake()
	peer := peerchan.New(ft, localAddr)
	ch := userchan.NewChannel()
	core := NewCore(peer, ch.CoreSide(), nil)
	core.RetransmitTimeout = 20 * time.Millisecond
	user := ch.UserSide()

	go func() { _ = core.Run() }()

	user.Send(userchan.Message{Kind: userchan.Open})
	user.Receive() // TcbCreated

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1000, WND: 4096, Flags: tcp.FlagSYN}, nil))
	waitFor(t, func() bool { return len(ft.Outbox) >= 1 })
	iss := parseDatagram(t, ft.Outbox[0].Bytes).SEQ

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1001, ACK: iss + 1, WND: 4096, Flags: tcp.FlagACK}, nil))
	user.Receive() // Connected

	ft.Deliver(remoteIP, buildDatagram(t, tcp.Segment{SEQ: 1001, ACK: iss + 1, WND: 4096, DATALEN: 3, Flags: tcp.FlagACK}, []byte("hi\n")))
	msg, ok := user.Receive()
	if !ok || msg.Kind != userchan.Data || string(msg.Payload) != "hi\n" {
		t.Fatalf("expected Data(hi), got %+v ok=%v", msg, ok)
	}

	user.Send(userchan.Message{Kind: userchan.Data, Payload: []byte("ih\n")})

	waitFor(t, func() bool { return len(ft.Outbox) >= 3 })
	first := parseDatagram(t, ft.Outbox[2].Bytes)

	waitFor(t, func() bool { return len(ft.Outbox) >= 4 })
	retransmitted := parseDatagram(t, ft.Outbox[3].Bytes)
	if retransmitted.SEQ != first.SEQ {
		t.Fatalf("retransmission seq mismatch: first=%d retransmitted=%d", first.SEQ, retransmitted.SEQ)
	}
}
