package message

import "sync"

// Transporter pairs a message with the codec that serializes it. The payload
// is encoded once, on first use.
type Transporter struct {
	msg   *Message
	codec *Codec

	once sync.Once
	data []byte
	err  error
}

// NewTransporter wraps m. A nil message is a programming error.
func NewTransporter(m *Message, c *Codec) *Transporter {
	if m == nil {
		panic("message: NewTransporter with nil message")
	}
	if c == nil {
		c = NewCodec(0)
	}
	return &Transporter{msg: m, codec: c}
}

// Message returns the wrapped message.
func (t *Transporter) Message() *Message { return t.msg }

// Data returns the encoded payload.
func (t *Transporter) Data() ([]byte, error) {
	t.once.Do(func() { t.data, t.err = t.codec.Encode(t.msg) })
	return t.data, t.err
}
