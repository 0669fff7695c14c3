// Package health implements the Connection's health checker: composing
// a send-interval timer (emit a health heartbeat) and a receive-interval
// timer (detect peer silence). Grounded on
// one/arcus/internal/health.cpp/.h from the original implementation.
package health

import (
	"time"

	"arcus/message"
	"arcus/timer"
)

// Default intervals per spec.md §4.5.
const (
	DefaultSendInterval    = 5 * time.Second
	DefaultReceiveInterval = 20 * time.Second
)

// Checker composes the two interval timers that drive health framing.
type Checker struct {
	send    *timer.IntervalTimer
	receive *timer.IntervalTimer
}

// New creates a Checker with the given send/receive intervals. Both
// timers are synced to now so neither fires immediately.
func New(sendInterval, receiveInterval time.Duration) *Checker {
	c := &Checker{
		send:    timer.New(sendInterval),
		receive: timer.New(receiveInterval),
	}
	return c
}

// ProcessSend checks whether the send interval has elapsed; if so it
// resets the interval and invokes sender with a health heartbeat
// message. sender is expected to enqueue the message on the
// Connection's outgoing queue.
func (c *Checker) ProcessSend(sender func(message.Message) error) error {
	if !c.send.Update() {
		return nil
	}
	return sender(message.Health())
}

// ResetReceiveTimer is called by the Connection whenever any byte
// successfully arrives from the peer.
func (c *Checker) ResetReceiveTimer() {
	c.receive.SyncNow()
}

// ProcessReceive reports whether the receive interval has elapsed since
// the last ResetReceiveTimer call — i.e. the peer has gone silent. The
// Connection treats a true result as a health timeout.
func (c *Checker) ProcessReceive() bool {
	return c.receive.Update()
}
