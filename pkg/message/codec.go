package message

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"gamelink/pkg/protocol"
	"gamelink/pkg/protocol/codec"
)

// Codec encodes messages as format-prefixed bodies.
type Codec struct {
	reg    *codec.Registry
	format protocol.Format
}

// NewCodec returns a codec writing bodies in format f. Decoding accepts any
// registered format.
func NewCodec(f protocol.Format) *Codec {
	if f == protocol.FormatUnknown {
		f = protocol.FormatCBOR
	}
	return &Codec{reg: codec.NewRegistry(), format: f}
}

// Format is the format new bodies are written in.
func (c *Codec) Format() protocol.Format { return c.format }

// Encode serializes m.
func (c *Codec) Encode(m *Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode nil message")
	}
	if c.format == protocol.FormatProto {
		s, err := toStruct(m)
		if err != nil {
			return nil, err
		}
		return protocol.EncodeBody(c.reg, c.format, s)
	}
	return protocol.EncodeBody(c.reg, c.format, m)
}

// Decode parses a body produced by any peer's Encode.
func (c *Codec) Decode(b []byte) (*Message, error) {
	f, err := protocol.PeekFormat(b)
	if err != nil {
		return nil, err
	}
	if f == protocol.FormatProto {
		var s structpb.Struct
		if _, err := protocol.DecodeBody(c.reg, b, &s); err != nil {
			return nil, err
		}
		return fromStruct(&s), nil
	}
	var m Message
	if _, err := protocol.DecodeBody(c.reg, b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
