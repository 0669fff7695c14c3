package message

import (
	"testing"

	"arcus/opcode"
)

func TestNewAndAccessors(t *testing.T) {
	p, err := PrepareSoftStop(30)
	if err != nil {
		t.Fatalf("PrepareSoftStop: %v", err)
	}
	if p.Code() != opcode.SoftStop {
		t.Fatalf("Code() = %v, want SoftStop", p.Code())
	}
	pl := p.Payload()
	json, err := pl.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if json == "{}" {
		t.Fatal("expected a non-empty payload")
	}
}

func TestFromJSON(t *testing.T) {
	m, err := FromJSON(opcode.SoftStop, `{"timeout":5}`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	params, err := ValidateSoftStop(&m)
	if err != nil {
		t.Fatalf("ValidateSoftStop: %v", err)
	}
	if params.TimeoutSeconds != 5 {
		t.Fatalf("TimeoutSeconds = %d, want 5", params.TimeoutSeconds)
	}
}

func TestReset(t *testing.T) {
	m, _ := PrepareSoftStop(1)
	m.Reset()
	if m.Code() != opcode.Invalid {
		t.Fatalf("Code() after Reset = %v, want Invalid", m.Code())
	}
	if !m.pl.IsEmpty() {
		t.Fatal("payload should be empty after Reset")
	}
}

func TestHelloAndHealthAreHeaderOnly(t *testing.T) {
	h := Hello()
	if h.Code() != opcode.Hello {
		t.Fatalf("Hello().Code() = %v, want Hello", h.Code())
	}
	if !h.pl.IsEmpty() {
		t.Fatal("Hello() must carry an empty payload")
	}

	hb := Health()
	if hb.Code() != opcode.Health {
		t.Fatalf("Health().Code() = %v, want Health", hb.Code())
	}
	if !hb.pl.IsEmpty() {
		t.Fatal("Health() must carry an empty payload")
	}
}
