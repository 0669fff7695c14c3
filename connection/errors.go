package connection

import "errors"

// Sentinel errors per the Connection error family in spec.md §7. Every
// recoverable or fatal condition gets its own distinct value so callers
// can use errors.Is instead of string matching.
var (
	ErrUninitialized          = errors.New("connection: uninitialized")
	ErrUpdateAfterError       = errors.New("connection: update called after a prior fatal error")
	ErrHandshakeTimeout       = errors.New("connection: handshake timeout")
	ErrHealthTimeout          = errors.New("connection: health timeout")
	ErrHelloInvalid           = errors.New("connection: hello invalid")
	ErrHelloTooBig            = errors.New("connection: hello response carried a non-empty payload")
	ErrReceiveBeforeSend      = errors.New("connection: peer sent bytes before the handshake initiator")
	ErrIncomingQueueFull      = errors.New("connection: incoming queue full")
	ErrOutgoingQueueFull      = errors.New("connection: outgoing queue full")
	ErrQueueEmpty             = errors.New("connection: queue empty")
	ErrMessageTooBigForStream = errors.New("connection: message too big for stream")
	ErrUnknownStatus          = errors.New("connection: unknown status")

	// errTryAgain is internal: it signals "no progress this tick" and
	// must never escape Update.
	errTryAgain = errors.New("connection: try again")
)
