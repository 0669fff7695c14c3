// Package message defines the (opcode, Payload) pair carried across an
// Arcus connection, plus the prepare_<opcode> builders for the
// application-level message schemas in spec.md §6.2.
package message

import (
	"arcus/opcode"
	"arcus/payload"
)

// Message pairs an opcode with its payload. The zero value is the
// default-constructed message: opcode Invalid, empty payload.
type Message struct {
	code opcode.Code
	pl   payload.Payload
}

// New builds a message from an opcode and a payload value (copied by
// value, per the payload package's ownership model).
func New(code opcode.Code, p payload.Payload) Message {
	var pl payload.Payload
	pl.SetValRootObject(p.ValRootObject())
	return Message{code: code, pl: pl}
}

// FromJSON builds a message from an opcode and a JSON-encoded payload.
func FromJSON(code opcode.Code, json string) (Message, error) {
	var p payload.Payload
	if err := p.FromJSON(json); err != nil {
		return Message{}, err
	}
	return Message{code: code, pl: p}, nil
}

// Code returns the message's opcode.
func (m *Message) Code() opcode.Code {
	return m.code
}

// Payload returns a copy of the message's payload.
func (m *Message) Payload() payload.Payload {
	var p payload.Payload
	p.SetValRootObject(m.pl.ValRootObject())
	return p
}

// Reset returns the message to its default-constructed state.
func (m *Message) Reset() {
	*m = Message{}
}

// Hello returns the header-only hello response message.
func Hello() Message {
	return Message{code: opcode.Hello}
}

// Health returns the header-only health heartbeat message.
func Health() Message {
	return Message{code: opcode.Health}
}
