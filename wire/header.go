// Package wire implements the Arcus framing codec: the fixed 6-byte
// Hello packet, the fixed-size Header, and length-delimited JSON
// payload encode/decode. It is pure — no I/O — so the connection state
// machine can feed it byte slices staged in a ring buffer.
//
// Grounded on sadewadee-maboo's internal/protocol/wire.go (fixed-size
// binary header laid out by hand with encoding/binary) and on the framing
// rules in one/arcus/internal/codec.h/.cpp.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies the start of an Arcus Hello packet.
var Magic = [4]byte{'a', 'r', 'c', 0}

// Version is the protocol version this Hello packet advertises.
const Version uint8 = 1

// HelloSize is the fixed size of the Hello packet in bytes.
const HelloSize = 6

// HeaderSize is the fixed size of a Header in bytes: 1 flags + 1 opcode +
// 4 packet_id + 4 length, all little-endian on the wire.
const HeaderSize = 10

// PayloadMaxSize bounds a single message's JSON payload. Both the
// encoder and decoder enforce this identically (spec.md invariant #2).
const PayloadMaxSize = 1024

// Hello is the fixed 6-byte packet exchanged once by the handshake
// initiator.
type Hello struct {
	Magic    [4]byte
	Version  uint8
	Reserved uint8
}

// ValidHello returns the canonical Hello value.
func ValidHello() Hello {
	return Hello{Magic: Magic, Version: Version, Reserved: 0}
}

// ValidateHello reports whether h matches the canonical Hello exactly.
func ValidateHello(h Hello) bool {
	return h == ValidHello()
}

// EncodeHello serializes h to its 6-byte wire form.
func EncodeHello(h Hello) [HelloSize]byte {
	var b [HelloSize]byte
	copy(b[0:4], h.Magic[:])
	b[4] = h.Version
	b[5] = h.Reserved
	return b
}

// DecodeHello parses a 6-byte buffer into a Hello.
func DecodeHello(b []byte) (Hello, error) {
	if len(b) < HelloSize {
		return Hello{}, fmt.Errorf("wire: hello buffer too small: %d bytes", len(b))
	}
	var h Hello
	copy(h.Magic[:], b[0:4])
	h.Version = b[4]
	h.Reserved = b[5]
	return h, nil
}

// Header is the fixed-size frame header preceding every payload.
type Header struct {
	Flags    uint8
	Opcode   uint8
	PacketID uint32
	Length   uint32
}

// HeaderToData encodes header into its 10-byte wire form. encoding/binary's
// LittleEndian codec is arithmetic, not a host-memory-layout reinterpret, so
// it already produces little-endian wire bytes regardless of host order
// (spec.md §4.4) with no manual byte-swap needed.
func HeaderToData(h Header) [HeaderSize]byte {
	var b [HeaderSize]byte
	b[0] = h.Flags
	b[1] = h.Opcode
	binary.LittleEndian.PutUint32(b[2:6], h.PacketID)
	binary.LittleEndian.PutUint32(b[6:10], h.Length)
	return b
}

// DataToHeader decodes a 10-byte buffer into a Header. It does not
// validate the header's semantic fields (flags/opcode); callers should
// follow up with a registry check via the opcode package.
func DataToHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("wire: header buffer too small: %d bytes", len(b))
	}
	if len(b) > HeaderSize {
		b = b[:HeaderSize]
	}
	h := Header{
		Flags:  b[0],
		Opcode: b[1],
	}
	h.PacketID = binary.LittleEndian.Uint32(b[2:6])
	h.Length = binary.LittleEndian.Uint32(b[6:10])
	return h, nil
}
