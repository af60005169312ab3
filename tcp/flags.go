package tcp

import "math/bits"

// Flags is the 9-bit control field of a TCP header. See RFC 9293 §3.1.
type Flags uint16

const (
	FlagFIN Flags = 1 << iota // FlagFIN - no more data from sender.
	FlagSYN                   // FlagSYN - synchronize sequence numbers.
	FlagRST                   // FlagRST - reset the connection.
	FlagPSH                   // FlagPSH - push function.
	FlagACK                   // FlagACK - acknowledgment field significant.
	FlagURG                   // FlagURG - urgent pointer field significant. Not processed; see Non-goals.
	FlagECE
	FlagCWR
	FlagNS
)

const flagMask = 0x01ff

// HasAll reports whether all bits in mask are set in flags.
func (f Flags) HasAll(mask Flags) bool { return f&mask == mask }

// HasAny reports whether one or more bits in mask are set in flags.
func (f Flags) HasAny(mask Flags) bool { return f&mask != 0 }

// Mask clears any bits outside the 9 defined control bits.
func (f Flags) Mask() Flags { return f & flagMask }

const (
	synack = FlagSYN | FlagACK
	finack = FlagFIN | FlagACK
)

// String returns a human readable representation, e.g. "[SYN,ACK]".
func (f Flags) String() string {
	switch f {
	case 0:
		return "[]"
	case synack:
		return "[SYN,ACK]"
	case finack:
		return "[FIN,ACK]"
	case FlagACK:
		return "[ACK]"
	case FlagSYN:
		return "[SYN]"
	case FlagFIN:
		return "[FIN]"
	case FlagRST:
		return "[RST]"
	}
	buf := make([]byte, 0, 2+4*bits.OnesCount16(uint16(f)))
	buf = append(buf, '[')
	buf = f.AppendFormat(buf)
	buf = append(buf, ']')
	return string(buf)
}

// AppendFormat appends the comma separated flag names set in f to b.
func (f Flags) AppendFormat(b []byte) []byte {
	const flaglen = 3
	const names = "FINSYNRSTPSHACKURGECECWRNS "
	flags := f
	first := true
	for flags != 0 {
		i := bits.TrailingZeros16(uint16(flags))
		if !first {
			b = append(b, ',')
		}
		first = false
		b = append(b, names[i*flaglen:i*flaglen+flaglen]...)
		flags &= ^(1 << i)
	}
	return b
}
