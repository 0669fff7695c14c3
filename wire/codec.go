package wire

import (
	"errors"
	"fmt"

	"arcus/message"
	"arcus/opcode"
	"arcus/payload"
)

// ErrNeedMoreData signals that the supplied buffer does not yet contain a
// complete frame; the connection should read more bytes and retry. It is
// not a protocol error.
var ErrNeedMoreData = errors.New("wire: need more data")

// ErrPayloadTooBig is returned by both the encoder and decoder when a
// payload would exceed PayloadMaxSize.
var ErrPayloadTooBig = fmt.Errorf("wire: payload exceeds max size of %d bytes", PayloadMaxSize)

// ErrInvalidHeader is returned when a header fails validation (nonzero
// flags, or an opcode unsupported by the active protocol version).
var ErrInvalidHeader = errors.New("wire: invalid header")

// ValidateHeader checks the invariants spec.md requires of every header
// on the wire: flags must be zero, and the opcode must be one the active
// protocol version supports.
func ValidateHeader(h Header) bool {
	if h.Flags != 0 {
		return false
	}
	return opcode.IsSupported(opcode.CurrentVersion, opcode.Code(h.Opcode))
}

// PayloadToData serializes a payload to JSON bytes, enforcing
// PayloadMaxSize identically to the decoder.
func PayloadToData(p payload.Payload) ([]byte, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	s, err := p.ToJSON()
	if err != nil {
		return nil, err
	}
	if len(s) > PayloadMaxSize {
		return nil, ErrPayloadTooBig
	}
	return []byte(s), nil
}

// DataToPayload parses JSON bytes into a payload, enforcing
// PayloadMaxSize identically to the encoder.
func DataToPayload(b []byte) (payload.Payload, error) {
	if len(b) > PayloadMaxSize {
		return payload.Payload{}, ErrPayloadTooBig
	}
	var p payload.Payload
	if len(b) == 0 {
		return p, nil
	}
	if err := p.FromJSON(string(b)); err != nil {
		return payload.Payload{}, err
	}
	return p, nil
}

// MessageToData is the encoder used by Connection: it serializes the
// message's payload, fills in a header addressed to packetID, and
// returns header+payload as a single contiguous byte slice.
func MessageToData(packetID uint32, m message.Message) ([]byte, error) {
	p := m.Payload()
	payloadData, err := PayloadToData(p)
	if err != nil {
		return nil, err
	}

	h := Header{
		Opcode:   uint8(m.Code()),
		PacketID: packetID,
		Length:   uint32(len(payloadData)),
	}
	if !ValidateHeader(h) {
		return nil, fmt.Errorf("%w: opcode %s not supported", ErrInvalidHeader, m.Code())
	}

	headerData := HeaderToData(h)
	out := make([]byte, 0, HeaderSize+len(payloadData))
	out = append(out, headerData[:]...)
	out = append(out, payloadData...)
	return out, nil
}

// DataToMessage is the decoder used by Connection. It reads a header
// from the front of data; if data does not yet hold a complete frame it
// returns ErrNeedMoreData so the caller can wait for more bytes. On
// success it returns the number of bytes the frame occupied (header +
// payload) so the caller can trim its ring buffer by that amount.
func DataToMessage(data []byte) (readSize int, m message.Message, err error) {
	if len(data) < HeaderSize {
		return 0, message.Message{}, ErrNeedMoreData
	}
	h, err := DataToHeader(data[:HeaderSize])
	if err != nil {
		return 0, message.Message{}, err
	}
	if !ValidateHeader(h) {
		return 0, message.Message{}, fmt.Errorf("%w: flags=%d opcode=%d", ErrInvalidHeader, h.Flags, h.Opcode)
	}
	if h.Length > PayloadMaxSize {
		return 0, message.Message{}, ErrPayloadTooBig
	}

	total := HeaderSize + int(h.Length)
	if len(data) < total {
		return 0, message.Message{}, ErrNeedMoreData
	}

	p, err := DataToPayload(data[HeaderSize:total])
	if err != nil {
		return 0, message.Message{}, err
	}

	return total, message.New(opcode.Code(h.Opcode), p), nil
}
