package a2ui

import (
	"errors"
	"fmt"

	"github.com/pthm/a2ui/lib/encoding"
)

// Codec is an alias for encoding.Codec for convenience.
type Codec = encoding.Codec

// NewCodec creates a codec for the given wire format.
func NewCodec(format encoding.Format, opts ...encoding.Option) (*Codec, error) {
	return encoding.NewCodec(format, opts...)
}

// EncodeEnvelope validates and serializes an outbound envelope.
func EncodeEnvelope(c *Codec, m ClientToServerMessage) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return c.Marshal(m)
}

// DecodeEnvelope deserializes an envelope and rejects one that populates
// both slots. Timestamps come back in UTC whatever the wire format.
func DecodeEnvelope(c *Codec, data []byte) (ClientToServerMessage, error) {
	var m ClientToServerMessage
	if err := c.Unmarshal(data, &m); err != nil {
		return ClientToServerMessage{}, wrapEncodingError(err)
	}
	if err := m.Validate(); err != nil {
		return ClientToServerMessage{}, err
	}
	if m.UserAction != nil {
		m.UserAction.Timestamp = m.UserAction.Timestamp.UTC()
	}
	return m, nil
}

// EncodeDataUpdate serializes an outbound data update.
func EncodeDataUpdate(c *Codec, m DataUpdateMessage) ([]byte, error) {
	return c.Marshal(m)
}

// DecodeDataUpdate deserializes a data update. The timestamp comes back in
// UTC.
func DecodeDataUpdate(c *Codec, data []byte) (DataUpdateMessage, error) {
	var m DataUpdateMessage
	if err := c.Unmarshal(data, &m); err != nil {
		return DataUpdateMessage{}, wrapEncodingError(err)
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

// wrapEncodingError maps encoding package errors onto ErrInvalidMessage,
// keeping the original for errors.Is.
func wrapEncodingError(err error) error {
	if errors.Is(err, encoding.ErrInvalidFormat) || errors.Is(err, encoding.ErrSignatureInvalid) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return err
}
