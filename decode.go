package a2ui

import (
	"encoding/json"
	"fmt"

	"github.com/pthm/a2ui/lib/schema"
)

// DecodeServerMessage validates raw JSON against the server message schema
// and decodes it. Failures wrap ErrInvalidMessage.
func DecodeServerMessage(data []byte) (ServerToClientMessage, error) {
	if err := schema.ValidateServerMessage(data); err != nil {
		return ServerToClientMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	var msg ServerToClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerToClientMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg, nil
}

// ApplyServerJSON decodes raw JSON and applies it. Decode failures are
// reported on the error channel as invalidMessage events.
func (p *Processor) ApplyServerJSON(data []byte) error {
	msg, err := DecodeServerMessage(data)
	if err != nil {
		return p.invalid(err, "")
	}
	return p.ApplyServerMessage(msg)
}
