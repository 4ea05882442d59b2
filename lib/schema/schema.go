// Package schema validates inbound agent messages against the embedded
// JSON Schema before they are decoded.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed server_message.schema.json
var serverMessageSchema string

const serverMessageURL = "https://a2ui.local/schemas/server_to_client.json"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema: message does not match schema")

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// ServerMessage returns the compiled server-to-client message schema.
func ServerMessage() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(serverMessageURL, strings.NewReader(serverMessageSchema)); err != nil {
			compileErr = fmt.Errorf("schema: load: %w", err)
			return
		}
		compiled, compileErr = c.Compile(serverMessageURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("schema: compile: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidateServerMessage checks raw JSON against the server message schema.
// Malformed JSON and schema violations both wrap ErrInvalid.
func ValidateServerMessage(data []byte) error {
	s, err := ServerMessage()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after message", ErrInvalid)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
