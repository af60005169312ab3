package wire

import (
	"testing"

	"github.com/soypat/tcpchoreo/tcp"
)

func TestTCPFrameRoundTrip(t *testing.T) {
	payload := []byte("hi\n")
	buf := make([]byte, sizeHeaderTCP+len(payload))
	copy(buf[sizeHeaderTCP:], payload)
	frm, ok := NewTCPFrame(buf)
	if !ok {
		t.Fatal("buffer too short")
	}
	seg := tcp.Segment{SEQ: 1001, ACK: 124, WND: 1000, DATALEN: tcp.Size(len(payload)), Flags: tcp.FlagACK}
	frm.InitSegment(555, 5000, seg)

	got := frm.Segment()
	if got != seg {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, seg)
	}
	if string(frm.Payload()) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", frm.Payload(), payload)
	}
}

func TestChecksumNeverZero(t *testing.T) {
	if NeverZero(0) != 0xffff {
		t.Fatal("zero checksum must map to 0xffff")
	}
	if NeverZero(0x1234) != 0x1234 {
		t.Fatal("non-zero checksum must pass through unchanged")
	}
}

func TestIPv4TCPChecksumDeterministic(t *testing.T) {
	payload := []byte("ih\n")
	buf := make([]byte, sizeHeaderIPv4+sizeHeaderTCP+len(payload))
	ipf, ok := NewIPv4Frame(buf)
	if !ok {
		t.Fatal("short ipv4 buffer")
	}
	tcpLen := uint16(sizeHeaderTCP + len(payload))
	ipf.InitHeader([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 1, 64, tcpLen)

	tfrm, ok := NewTCPFrame(ipf.Payload())
	if !ok {
		t.Fatal("short tcp buffer")
	}
	copy(tfrm.RawData()[sizeHeaderTCP:], payload)
	seg := tcp.Segment{SEQ: 1, ACK: 2, WND: 1000, DATALEN: tcp.Size(len(payload)), Flags: tcp.FlagACK}
	tfrm.InitSegment(555, 5000, seg)

	var pseudo CRC791
	ipf.WriteTCPPseudoHeader(&pseudo, tcpLen)
	sum := tfrm.ComputeChecksum(pseudo)
	tfrm.SetCRC(sum)

	if tfrm.CRC() == 0 {
		t.Fatal("checksum field must never be left at zero")
	}

	// Recomputing over the now-populated checksum field, after zeroing it
	// again, must reproduce the same value (testable property 5).
	tfrm.SetCRC(0)
	var pseudo2 CRC791
	ipf.WriteTCPPseudoHeader(&pseudo2, tcpLen)
	sum2 := tfrm.ComputeChecksum(pseudo2)
	if sum != sum2 {
		t.Fatalf("checksum not reproducible: %x != %x", sum, sum2)
	}
}
