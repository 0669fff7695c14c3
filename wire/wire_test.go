package wire

import (
	"bytes"
	"errors"
	"testing"

	"arcus/message"
	"arcus/opcode"
	"arcus/payload"
)

func TestValidHelloBytes(t *testing.T) {
	h := ValidHello()
	b := EncodeHello(h)
	want := [HelloSize]byte{'a', 'r', 'c', 0, 1, 0}
	if b != want {
		t.Fatalf("EncodeHello(ValidHello()) = %v, want %v", b, want)
	}
	if !ValidateHello(h) {
		t.Fatal("ValidateHello(ValidHello()) = false, want true")
	}
}

func TestValidateHelloRejectsMutation(t *testing.T) {
	b := EncodeHello(ValidHello())
	for i := range b {
		mutated := b
		mutated[i] ^= 0xFF
		h, err := DecodeHello(mutated[:])
		if err != nil {
			t.Fatalf("DecodeHello: %v", err)
		}
		if ValidateHello(h) {
			t.Errorf("byte %d: mutated hello validated as true", i)
		}
	}
}

func TestHeaderRoundtrip(t *testing.T) {
	h := Header{Flags: 0, Opcode: uint8(opcode.Hello), PacketID: 42, Length: 7}
	data := HeaderToData(h)
	got, err := DataToHeader(data[:])
	if err != nil {
		t.Fatalf("DataToHeader: %v", err)
	}
	if got != h {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderEndianOnWire(t *testing.T) {
	h := Header{Flags: 0, Opcode: uint8(opcode.Hello), PacketID: 0xAABBCCDD, Length: 0x01020304}
	data := HeaderToData(h)

	want := []byte{0xDD, 0xCC, 0xBB, 0xAA, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(data[2:10], want) {
		t.Fatalf("wire bytes = % x, want % x", data[2:10], want)
	}

	got, err := DataToHeader(data[:])
	if err != nil {
		t.Fatalf("DataToHeader: %v", err)
	}
	if got.PacketID != h.PacketID || got.Length != h.Length {
		t.Fatalf("decoded fields mismatch: got %+v, want %+v", got, h)
	}
}

func TestValidateHeaderRejectsNonzeroFlags(t *testing.T) {
	h := Header{Flags: 1, Opcode: uint8(opcode.Hello)}
	if ValidateHeader(h) {
		t.Fatal("expected nonzero flags to be rejected")
	}
}

func TestValidateHeaderRejectsUnsupportedOpcode(t *testing.T) {
	h := Header{Flags: 0, Opcode: uint8(opcode.Invalid)}
	if ValidateHeader(h) {
		t.Fatal("expected invalid opcode to be rejected")
	}
}

func TestMessageRoundtrip(t *testing.T) {
	msg, err := message.FromJSON(opcode.SoftStop, `{"timeout":1000}`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	data, err := MessageToData(5, msg)
	if err != nil {
		t.Fatalf("MessageToData: %v", err)
	}

	readSize, got, err := DataToMessage(data)
	if err != nil {
		t.Fatalf("DataToMessage: %v", err)
	}
	if readSize != len(data) {
		t.Fatalf("readSize = %d, want %d", readSize, len(data))
	}
	if got.Code() != opcode.SoftStop {
		t.Fatalf("Code() = %v, want SoftStop", got.Code())
	}
	gotJSON, _ := func() (string, error) { p := got.Payload(); return p.ToJSON() }()
	wantJSON, _ := func() (string, error) { p := msg.Payload(); return p.ToJSON() }()
	if gotJSON != wantJSON {
		t.Fatalf("payload JSON = %s, want %s", gotJSON, wantJSON)
	}
}

func TestDataToMessageNeedsMoreData(t *testing.T) {
	msg := message.Hello()
	data, err := MessageToData(1, msg)
	if err != nil {
		t.Fatalf("MessageToData: %v", err)
	}

	for n := 0; n < len(data); n++ {
		_, _, err := DataToMessage(data[:n])
		if !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("DataToMessage(%d bytes) = %v, want ErrNeedMoreData", n, err)
		}
	}
}

func TestPayloadTooBigRejectedByEncoderAndDecoder(t *testing.T) {
	big := payload.NewPayload()
	longString := make([]byte, PayloadMaxSize+1)
	for i := range longString {
		longString[i] = 'a'
	}
	_ = big.SetValString("pad", string(longString))
	msg := message.New(opcode.CustomCommand, big)

	if _, err := MessageToData(1, msg); !errors.Is(err, ErrPayloadTooBig) {
		t.Fatalf("MessageToData() error = %v, want ErrPayloadTooBig", err)
	}

	oversized := make([]byte, PayloadMaxSize+1)
	if _, err := DataToPayload(oversized); !errors.Is(err, ErrPayloadTooBig) {
		t.Fatalf("DataToPayload() error = %v, want ErrPayloadTooBig", err)
	}
}

func TestHeaderOnlyMessageRoundtrip(t *testing.T) {
	msg := message.Health()
	data, err := MessageToData(9, msg)
	if err != nil {
		t.Fatalf("MessageToData: %v", err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("len(data) = %d, want %d (no payload)", len(data), HeaderSize)
	}
	readSize, got, err := DataToMessage(data)
	if err != nil {
		t.Fatalf("DataToMessage: %v", err)
	}
	if readSize != HeaderSize {
		t.Fatalf("readSize = %d, want %d", readSize, HeaderSize)
	}
	if got.Code() != opcode.Health {
		t.Fatalf("Code() = %v, want Health", got.Code())
	}
}
