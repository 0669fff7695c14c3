package payload

import "testing"

func TestSetAndGetScalars(t *testing.T) {
	p := NewPayload()
	if err := p.SetValBool("ok", true); err != nil {
		t.Fatalf("SetValBool: %v", err)
	}
	if err := p.SetValInt("count", 42); err != nil {
		t.Fatalf("SetValInt: %v", err)
	}
	if err := p.SetValString("name", "arcus"); err != nil {
		t.Fatalf("SetValString: %v", err)
	}

	if v, err := p.ValBool("ok"); err != nil || v != true {
		t.Fatalf("ValBool() = %v, %v", v, err)
	}
	if v, err := p.ValInt("count"); err != nil || v != 42 {
		t.Fatalf("ValInt() = %v, %v", v, err)
	}
	if v, err := p.ValString("name"); err != nil || v != "arcus" {
		t.Fatalf("ValString() = %v, %v", v, err)
	}
}

func TestValMissingKeyReturnsErrKeyNotFound(t *testing.T) {
	p := NewPayload()
	if _, err := p.ValInt("missing"); err != ErrKeyNotFound {
		t.Fatalf("ValInt on missing key = %v, want ErrKeyNotFound", err)
	}
}

func TestValWrongTypeReturnsErrWrongType(t *testing.T) {
	p := NewPayload()
	if err := p.SetValString("name", "arcus"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ValInt("name"); err != ErrWrongType {
		t.Fatalf("ValInt on a string key = %v, want ErrWrongType", err)
	}
}

func TestSetValEmptyKeyFails(t *testing.T) {
	p := NewPayload()
	if err := p.SetValString("", "x"); err != ErrNullKey {
		t.Fatalf("SetValString(\"\", ...) = %v, want ErrNullKey", err)
	}
}

func TestReassigningKeyWithDifferentKindFails(t *testing.T) {
	p := NewPayload()
	if err := p.SetValInt("field", 1); err != nil {
		t.Fatal(err)
	}
	if err := p.SetValString("field", "x"); err != ErrWrongType {
		t.Fatalf("re-setting field with a different kind = %v, want ErrWrongType", err)
	}
}

func TestArrayRoundtripIsCopiedNotAliased(t *testing.T) {
	p := NewPayload()
	arr := Array{IntValue(1), IntValue(2)}
	if err := p.SetValArray("nums", arr); err != nil {
		t.Fatal(err)
	}
	arr[0] = IntValue(99)

	got, err := p.ValArray("nums")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := got[0].Int(); n != 1 {
		t.Fatalf("stored array aliases the caller's slice: got[0] = %d, want 1", n)
	}

	got[1] = IntValue(-1)
	got2, _ := p.ValArray("nums")
	if n, _ := got2[1].Int(); n != 2 {
		t.Fatalf("ValArray leaked a reference to internal storage: got2[1] = %d, want 2", n)
	}
}

func TestObjectRoundtripIsCopiedNotAliased(t *testing.T) {
	p := NewPayload()
	o := NewObject()
	if err := o.Set("inner", IntValue(1)); err != nil {
		t.Fatal(err)
	}
	if err := p.SetValObject("obj", o); err != nil {
		t.Fatal(err)
	}
	_ = o.Set("inner", IntValue(2))

	got, err := p.ValObject("obj")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.Get("inner"); !ok {
		t.Fatal("expected inner key in stored object")
	} else if n, _ := v.Int(); n != 1 {
		t.Fatalf("inner = %d, want 1", n)
	}
}

func TestRootObjectRoundtrip(t *testing.T) {
	p := NewPayload()
	o := NewObject()
	_ = o.Set("a", StringValue("b"))
	p.SetValRootObject(o)

	got := p.ValRootObject()
	v, ok := got.Get("a")
	if !ok {
		t.Fatal("expected key a in root object")
	}
	if s, _ := v.String(); s != "b" {
		t.Fatalf("a = %q, want %q", s, "b")
	}
}

func TestIsEmptyAndClear(t *testing.T) {
	p := NewPayload()
	if !p.IsEmpty() {
		t.Fatal("fresh payload should be empty")
	}
	_ = p.SetValInt("x", 1)
	if p.IsEmpty() {
		t.Fatal("payload with a key set should not be empty")
	}
	p.Clear()
	if !p.IsEmpty() {
		t.Fatal("Clear() should empty the payload")
	}
}

func TestIsValHelpers(t *testing.T) {
	p := NewPayload()
	_ = p.SetValInt("n", 1)
	if !p.IsValInt("n") || p.IsValString("n") {
		t.Fatal("IsValInt/IsValString disagree with the stored kind")
	}
	if p.IsValInt("missing") {
		t.Fatal("IsValInt should be false for a missing key")
	}
}
