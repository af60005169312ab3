package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/soypat/tcpchoreo/tcp"
)

const sizeHeaderTCP = 20

// TCPFrame is a byte-level view over a TCP header plus payload (RFC 9293
// §3.1). This system emits no options, so HeaderLength is always 20.
type TCPFrame struct {
	buf []byte
}

// NewTCPFrame wraps buf, which must be at least 20 bytes.
func NewTCPFrame(buf []byte) (TCPFrame, bool) {
	if len(buf) < sizeHeaderTCP {
		return TCPFrame{}, false
	}
	return TCPFrame{buf: buf}, true
}

func (f TCPFrame) RawData() []byte { return f.buf }

func (f TCPFrame) SourcePort() uint16 { return binary.BigEndian.Uint16(f.buf[0:2]) }
func (f TCPFrame) SetSourcePort(v uint16) {
	binary.BigEndian.PutUint16(f.buf[0:2], v)
}

func (f TCPFrame) DestinationPort() uint16 { return binary.BigEndian.Uint16(f.buf[2:4]) }
func (f TCPFrame) SetDestinationPort(v uint16) {
	binary.BigEndian.PutUint16(f.buf[2:4], v)
}

func (f TCPFrame) Seq() tcp.Value { return tcp.Value(binary.BigEndian.Uint32(f.buf[4:8])) }
func (f TCPFrame) SetSeq(v tcp.Value) {
	binary.BigEndian.PutUint32(f.buf[4:8], uint32(v))
}

func (f TCPFrame) Ack() tcp.Value { return tcp.Value(binary.BigEndian.Uint32(f.buf[8:12])) }
func (f TCPFrame) SetAck(v tcp.Value) {
	binary.BigEndian.PutUint32(f.buf[8:12], uint32(v))
}

// OffsetAndFlags returns the data-offset (in 32-bit words) and the 9-bit
// control flags.
func (f TCPFrame) OffsetAndFlags() (offset uint8, flags tcp.Flags) {
	v := binary.BigEndian.Uint16(f.buf[12:14])
	return uint8(v >> 12), tcp.Flags(v).Mask()
}

func (f TCPFrame) SetOffsetAndFlags(offset uint8, flags tcp.Flags) {
	v := uint16(offset)<<12 | uint16(flags.Mask())
	binary.BigEndian.PutUint16(f.buf[12:14], v)
}

// HeaderLength returns the data-offset field translated to bytes.
func (f TCPFrame) HeaderLength() int {
	offset, _ := f.OffsetAndFlags()
	return int(offset) * 4
}

func (f TCPFrame) WindowSize() uint16 { return binary.BigEndian.Uint16(f.buf[14:16]) }
func (f TCPFrame) SetWindowSize(v uint16) {
	binary.BigEndian.PutUint16(f.buf[14:16], v)
}

func (f TCPFrame) CRC() uint16     { return binary.BigEndian.Uint16(f.buf[16:18]) }
func (f TCPFrame) SetCRC(v uint16) { binary.BigEndian.PutUint16(f.buf[16:18], v) }

func (f TCPFrame) UrgentPtr() uint16 { return binary.BigEndian.Uint16(f.buf[18:20]) }

// Payload returns the application data following the (option-free) header.
func (f TCPFrame) Payload() []byte { return f.buf[f.HeaderLength():] }

// Segment decodes the sequence-space view used throughout the tcp package.
func (f TCPFrame) Segment() tcp.Segment {
	_, flags := f.OffsetAndFlags()
	return tcp.Segment{
		SEQ:     f.Seq(),
		ACK:     f.Ack(),
		WND:     tcp.Size(f.WindowSize()),
		DATALEN: tcp.Size(len(f.Payload())),
		Flags:   flags,
	}
}

// InitSegment writes seg's fields into the fixed header (offset fixed at 5
// words: no options) and zeroes the checksum field. payload, if non-empty,
// must already be copied into f.buf at f.Payload(); InitSegment does not
// move bytes, only header fields.
func (f TCPFrame) InitSegment(srcPort, dstPort uint16, seg tcp.Segment) {
	f.SetSourcePort(srcPort)
	f.SetDestinationPort(dstPort)
	f.SetSeq(seg.SEQ)
	f.SetAck(seg.ACK)
	f.SetOffsetAndFlags(sizeHeaderTCP/4, seg.Flags)
	f.SetWindowSize(uint16(seg.WND))
	binary.BigEndian.PutUint16(f.buf[18:20], 0)
	f.SetCRC(0)
}

// ComputeChecksum folds the IPv4 pseudo-header (already accumulated into
// pseudo by the caller via [IPv4Frame.WriteTCPPseudoHeader]) together with
// the TCP header and payload, per RFC 9293 §3.1.
func (f TCPFrame) ComputeChecksum(pseudo CRC791) uint16 {
	pseudo.Write(f.buf[:sizeHeaderTCP]) // checksum field must already be zeroed.
	return NeverZero(pseudo.PayloadSum16(f.Payload()))
}

func (f TCPFrame) String() string {
	seg := f.Segment()
	return fmt.Sprintf("TCP :%d -> :%d %s", f.SourcePort(), f.DestinationPort(), seg.String())
}
