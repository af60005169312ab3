package wire

import "encoding/binary"

const sizeHeaderIPv4 = 20

// ProtoTCP is the IPv4 protocol number for TCP (RFC 9293).
const ProtoTCP = 6

// IPv4Frame is a byte-level view over an IPv4 header plus payload. It never
// copies; all accessors read/write directly into buf. Matches the default
// configuration this system emits: no options, hop limit 64 (spec §6).
type IPv4Frame struct {
	buf []byte
}

// NewIPv4Frame wraps buf, which must be at least 20 bytes (the fixed
// header; this system never emits IP options).
func NewIPv4Frame(buf []byte) (IPv4Frame, bool) {
	if len(buf) < sizeHeaderIPv4 {
		return IPv4Frame{}, false
	}
	return IPv4Frame{buf: buf}, true
}

func (f IPv4Frame) RawData() []byte { return f.buf }

func (f IPv4Frame) ihl() uint8 { return f.buf[0] & 0xf }

// HeaderLength returns the IHL-derived header length in bytes.
func (f IPv4Frame) HeaderLength() int { return int(f.ihl()) * 4 }

// SetVersionAndIHL writes the version (always 4 here) and IHL (in 32-bit
// words) nibbles.
func (f IPv4Frame) SetVersionAndIHL(version, ihl uint8) { f.buf[0] = version<<4 | ihl&0xf }

func (f IPv4Frame) TotalLength() uint16 { return binary.BigEndian.Uint16(f.buf[2:4]) }
func (f IPv4Frame) SetTotalLength(v uint16) {
	binary.BigEndian.PutUint16(f.buf[2:4], v)
}

func (f IPv4Frame) SetID(id uint16) { binary.BigEndian.PutUint16(f.buf[4:6], id) }

// SetFlagsFragOffset writes the 3-bit flags + 13-bit fragment offset field.
// This system never fragments, so callers always pass offset 0.
func (f IPv4Frame) SetFlagsFragOffset(flags uint8, fragOffset uint16) {
	v := uint16(flags&0x7)<<13 | fragOffset&0x1fff
	binary.BigEndian.PutUint16(f.buf[6:8], v)
}

func (f IPv4Frame) TTL() uint8     { return f.buf[8] }
func (f IPv4Frame) SetTTL(v uint8) { f.buf[8] = v }

func (f IPv4Frame) Protocol() uint8     { return f.buf[9] }
func (f IPv4Frame) SetProtocol(v uint8) { f.buf[9] = v }

func (f IPv4Frame) CRC() uint16     { return binary.BigEndian.Uint16(f.buf[10:12]) }
func (f IPv4Frame) SetCRC(v uint16) { binary.BigEndian.PutUint16(f.buf[10:12], v) }

func (f IPv4Frame) SourceAddr() *[4]byte      { return (*[4]byte)(f.buf[12:16]) }
func (f IPv4Frame) DestinationAddr() *[4]byte { return (*[4]byte)(f.buf[16:20]) }

// Payload returns the bytes after the (option-free) header.
func (f IPv4Frame) Payload() []byte { return f.buf[f.HeaderLength():] }

// ComputeHeaderCRC calculates the header checksum over the fixed fields,
// excluding the CRC field itself.
func (f IPv4Frame) ComputeHeaderCRC() uint16 {
	var crc CRC791
	crc.Write(f.buf[0:10])
	crc.Write(f.buf[12:f.HeaderLength()])
	return crc.Sum16()
}

// WriteTCPPseudoHeader folds the IPv4 pseudo-header (RFC 9293 §3.1) that
// TCP's checksum covers into crc: source/destination address, zero byte,
// protocol, and TCP segment length.
func (f IPv4Frame) WriteTCPPseudoHeader(crc *CRC791, tcpLen uint16) {
	crc.Write(f.SourceAddr()[:])
	crc.Write(f.DestinationAddr()[:])
	crc.AddUint16(uint16(ProtoTCP))
	crc.AddUint16(tcpLen)
}

// InitHeader fills in the fixed IPv4 header fields for an option-free
// outgoing datagram addressed src->dst carrying a TCP segment of tcpLen
// bytes, then writes the header checksum. id is the IPv4 identification
// field; this system has no fragmentation so any monotonically increasing
// counter suffices.
func (f IPv4Frame) InitHeader(src, dst [4]byte, id uint16, ttl uint8, tcpLen uint16) {
	f.SetVersionAndIHL(4, sizeHeaderIPv4/4)
	f.buf[1] = 0 // ToS: unused.
	f.SetTotalLength(sizeHeaderIPv4 + tcpLen)
	f.SetID(id)
	f.SetFlagsFragOffset(0, 0)
	f.SetTTL(ttl)
	f.SetProtocol(ProtoTCP)
	*f.SourceAddr() = src
	*f.DestinationAddr() = dst
	f.SetCRC(0)
	f.SetCRC(f.ComputeHeaderCRC())
}
