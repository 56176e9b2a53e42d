package protocol

import (
	"strings"

	"github.com/pkg/errors"

	"gamelink/pkg/protocol/codec"
)

// Format is the one-byte prefix of every message body naming its encoding.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatCBOR
	FormatProto
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	case FormatProto:
		return "proto"
	default:
		return "unknown"
	}
}

// ParseFormat maps a config name ("json", "cbor", "proto") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "cbor", "":
		return FormatCBOR, nil
	case "proto", "protobuf":
		return FormatProto, nil
	default:
		return FormatUnknown, errors.Errorf("unknown body format %q", name)
	}
}

// CodecFor returns the codec registered for f.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
	if f == FormatUnknown || f > FormatProto {
		return nil, errors.Errorf("unknown format: %d", f)
	}
	return r.Lookup(f.String())
}

// EncodeBody serializes v with the codec for f and prefixes the result
// with the format byte.
func EncodeBody(r *codec.Registry, f Format, v any) ([]byte, error) {
	c, err := CodecFor(r, f)
	if err != nil {
		return nil, err
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s body", f)
	}
	out := make([]byte, 1+len(b))
	out[0] = byte(f)
	copy(out[1:], b)
	return out, nil
}

// PeekFormat returns the format byte of an encoded body.
func PeekFormat(payload []byte) (Format, error) {
	if len(payload) == 0 {
		return FormatUnknown, errors.New("empty payload")
	}
	return Format(payload[0]), nil
}

// DecodeBody decodes a payload produced by EncodeBody into v.
func DecodeBody(r *codec.Registry, payload []byte, v any) (Format, error) {
	f, err := PeekFormat(payload)
	if err != nil {
		return FormatUnknown, err
	}
	c, err := CodecFor(r, f)
	if err != nil {
		return f, err
	}
	if err := c.Unmarshal(payload[1:], v); err != nil {
		return f, errors.Wrapf(err, "decode %s body", f)
	}
	return f, nil
}
