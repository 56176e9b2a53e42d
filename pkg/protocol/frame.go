// Package protocol defines the datagram framing used between gamelink peers
// and the format-prefixed message bodies carried inside data frames.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed header layout (32 bytes). All integers are little-endian.
//
//	0  ..1   Magic      'G''L' (0x4c47)
//	2        Version    u8
//	3        Type       u8
//	4        Category   u8
//	5        Flags      u8
//	6  ..7   Reserved   u16
//	8  ..11  Seq        u32
//	12 ..15  PayloadLen u32
//	16 ..31  Sender     [16]byte
const (
	HeaderSize = 32
	magicWord  = uint16(0x4c47)

	// Version is the only frame version this package writes or accepts.
	Version = 1

	// MaxPayload keeps a frame inside a single UDP datagram.
	MaxPayload = 64*1024 - 8 - 20 - HeaderSize
)

var (
	ErrShortFrame  = errors.New("short frame")
	ErrBadMagic    = errors.New("bad magic")
	ErrBadVersion  = errors.New("unsupported frame version")
	ErrTooLarge    = errors.New("payload too large")
	ErrLenMismatch = errors.New("payload length mismatch")
)

// FrameType distinguishes link control frames from data.
type FrameType uint8

const (
	FrameUnknown FrameType = iota
	FrameData
	FrameConnect
	FrameConnectAck
	FrameClose
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "data"
	case FrameConnect:
		return "connect"
	case FrameConnectAck:
		return "connect-ack"
	case FrameClose:
		return "close"
	default:
		return fmt.Sprintf("frame(%d)", uint8(t))
	}
}

// Header describes one frame.
type Header struct {
	Version    uint8
	Type       FrameType
	Category   uint8
	Flags      uint8
	Seq        uint32
	PayloadLen uint32
	Sender     [16]byte
}

// Frame is a header plus payload; control frames carry no payload.
type Frame struct {
	Header  Header
	Payload []byte
}

// MarshalBinary encodes the header into a HeaderSize buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h *Header) put(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], magicWord)
	buf[2] = h.Version
	buf[3] = byte(h.Type)
	buf[4] = h.Category
	buf[5] = h.Flags
	// 6..7 reserved
	binary.LittleEndian.PutUint32(buf[8:12], h.Seq)
	binary.LittleEndian.PutUint32(buf[12:16], h.PayloadLen)
	copy(buf[16:32], h.Sender[:])
}

// UnmarshalBinary decodes a header from buf.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrShortFrame
	}
	if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
		return ErrBadMagic
	}
	if buf[2] != Version {
		return ErrBadVersion
	}
	h.Version = buf[2]
	h.Type = FrameType(buf[3])
	h.Category = buf[4]
	h.Flags = buf[5]
	h.Seq = binary.LittleEndian.Uint32(buf[8:12])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[12:16])
	copy(h.Sender[:], buf[16:32])
	return nil
}

// Encode returns header+payload as one datagram.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrTooLarge
	}
	if f.Header.Version == 0 {
		f.Header.Version = Version
	}
	f.Header.PayloadLen = uint32(len(f.Payload))
	out := make([]byte, HeaderSize+len(f.Payload))
	f.Header.put(out)
	copy(out[HeaderSize:], f.Payload)
	return out, nil
}

// Decode parses a datagram. The payload is copied out of buf.
func (f *Frame) Decode(buf []byte) error {
	if err := f.Header.UnmarshalBinary(buf); err != nil {
		return err
	}
	need := int(f.Header.PayloadLen)
	if HeaderSize+need != len(buf) {
		return ErrLenMismatch
	}
	f.Payload = append(f.Payload[:0], buf[HeaderSize:]...)
	return nil
}
