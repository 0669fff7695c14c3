package health

import (
	"errors"
	"testing"
	"time"

	"arcus/message"
	"arcus/opcode"
)

func TestProcessSendFiresHealthMessageOnInterval(t *testing.T) {
	c := New(5*time.Millisecond, time.Hour)
	time.Sleep(10 * time.Millisecond)

	var got message.Message
	called := false
	err := c.ProcessSend(func(m message.Message) error {
		called = true
		got = m
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessSend: %v", err)
	}
	if !called {
		t.Fatal("sender was never invoked after the send interval elapsed")
	}
	if got.Code() != opcode.Health {
		t.Fatalf("sent message code = %v, want Health", got.Code())
	}
}

func TestProcessSendDoesNothingBeforeInterval(t *testing.T) {
	c := New(time.Hour, time.Hour)
	called := false
	if err := c.ProcessSend(func(message.Message) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("ProcessSend: %v", err)
	}
	if called {
		t.Fatal("sender invoked before the send interval elapsed")
	}
}

func TestProcessSendPropagatesSenderError(t *testing.T) {
	c := New(time.Millisecond, time.Hour)
	time.Sleep(5 * time.Millisecond)
	want := errors.New("boom")
	if err := c.ProcessSend(func(message.Message) error { return want }); err != want {
		t.Fatalf("ProcessSend() error = %v, want %v", err, want)
	}
}

func TestResetReceiveTimerSuppressesTimeout(t *testing.T) {
	c := New(time.Hour, 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	c.ResetReceiveTimer()
	if c.ProcessReceive() {
		t.Fatal("ProcessReceive() = true right after ResetReceiveTimer")
	}
}

func TestProcessReceiveSignalsPeerSilence(t *testing.T) {
	c := New(time.Hour, 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if !c.ProcessReceive() {
		t.Fatal("ProcessReceive() = false after the receive interval elapsed")
	}
}
