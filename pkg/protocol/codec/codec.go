// Package codec holds the body codecs a payload can be encoded with.
package codec

import (
	"strings"

	"github.com/pkg/errors"
)

// Codec marshals message bodies. Implementations must be deterministic so
// two peers encoding the same value put the same bytes on the wire.
type Codec interface {
	// Name is the short config name, e.g. "cbor".
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ErrUnknownCodec is returned by Lookup for names nothing was registered under.
var ErrUnknownCodec = errors.New("unknown codec")

// Registry maps short names to codecs.
type Registry struct{ byName map[string]Codec }

// NewRegistry returns a registry preloaded with JSON, CBOR and Protobuf.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	r.Register(Proto())
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) { r.byName[c.Name()] = c }

// Lookup returns the codec registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (Codec, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCodec, "codec %q", name)
	}
	return c, nil
}
