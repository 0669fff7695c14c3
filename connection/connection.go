// Package connection implements the Arcus connection state machine
// (spec.md C11): it owns a socket, the in/out byte rings, the in/out
// message queues, a one-shot handshake timer, and a health checker, and
// drives handshake, framing, and I/O one bounded step per Update call.
//
// Grounded on one/arcus/internal/connection.cpp/.h from the original
// implementation, and on sadewadee-maboo's single-threaded,
// cooperatively-driven update loop style.
package connection

import (
	"errors"
	"fmt"
	"time"

	"arcus/health"
	"arcus/message"
	"arcus/opcode"
	"arcus/ring"
	"arcus/socket"
	"arcus/timer"
	"arcus/wire"
)

// State enumerates the Connection lifecycle from spec.md §4.7.
type State int

const (
	StateUninitialized State = iota
	StateHandshakeNotStarted
	StateHandshakeHelloScheduled
	StateHandshakeHelloSent
	StateHandshakeHelloReceived
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshakeNotStarted:
		return "handshake_not_started"
	case StateHandshakeHelloScheduled:
		return "handshake_hello_scheduled"
	case StateHandshakeHelloSent:
		return "handshake_hello_sent"
	case StateHandshakeHelloReceived:
		return "handshake_hello_received"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultHandshakeTimeout bounds the total time a Connection may spend
// in any pre-ready state before Update reports ErrHandshakeTimeout.
const DefaultHandshakeTimeout = 20 * time.Second

// ringCapacity is the fixed size of both byte rings: large enough that
// one complete frame (header + max payload) always fits, per spec.md
// invariant #3.
const ringCapacity = wire.HeaderSize + wire.PayloadMaxSize

// Config parameterizes a Connection's fixed-capacity resources.
type Config struct {
	InCapacity            int
	OutCapacity           int
	HandshakeTimeout      time.Duration
	HealthSendInterval    time.Duration
	HealthReceiveInterval time.Duration
}

// DefaultConfig returns the defaults named in spec.md §4.5 and §5.
func DefaultConfig() Config {
	return Config{
		InCapacity:            64,
		OutCapacity:           64,
		HandshakeTimeout:      DefaultHandshakeTimeout,
		HealthSendInterval:    health.DefaultSendInterval,
		HealthReceiveInterval: health.DefaultReceiveInterval,
	}
}

// Connection is the central per-peer state machine. It is not safe for
// concurrent use; Server and Client serialize access with their own
// mutex (spec.md §5).
type Connection struct {
	sock  *socket.Socket
	state State

	inRing   *ring.ByteRing
	outRing  *ring.ByteRing
	inQueue  *ring.MessageQueue
	outQueue *ring.MessageQueue

	handshakeTimer *timer.IntervalTimer
	health         *health.Checker

	nextPacketID uint32
	recvBuf      []byte
}

// New constructs a Connection with queue capacities and timers taken
// from cfg. The Connection starts StateUninitialized; call Init before
// any I/O.
func New(cfg Config) *Connection {
	return &Connection{
		state:          StateUninitialized,
		inRing:         ring.NewByteRing(ringCapacity),
		outRing:        ring.NewByteRing(ringCapacity),
		inQueue:        ring.NewMessageQueue(cfg.InCapacity),
		outQueue:       ring.NewMessageQueue(cfg.OutCapacity),
		handshakeTimer: timer.New(cfg.HandshakeTimeout),
		health:         health.New(cfg.HealthSendInterval, cfg.HealthReceiveInterval),
		recvBuf:        make([]byte, ringCapacity),
	}
}

// State returns the Connection's current lifecycle state.
func (c *Connection) State() State {
	return c.state
}

// Init installs sock and transitions to handshake_not_started, resetting
// the handshake and health-receive timers. It must be called before any
// other Connection method except New.
func (c *Connection) Init(sock *socket.Socket) {
	c.sock = sock
	c.state = StateHandshakeNotStarted
	c.handshakeTimer.SyncNow()
	c.health.ResetReceiveTimer()
}

// InitiateHandshake is the server-side entry point: it schedules sending
// the raw Hello packet on the next Update, after first confirming the
// peer has not spoken out of turn.
func (c *Connection) InitiateHandshake() error {
	if c.state != StateHandshakeNotStarted {
		return fmt.Errorf("connection: initiate_handshake from state %s", c.state)
	}
	c.state = StateHandshakeHelloScheduled
	return nil
}

// AddOutgoing enqueues a message for delivery to the peer.
func (c *Connection) AddOutgoing(m message.Message) error {
	if c.state == StateUninitialized {
		return ErrUninitialized
	}
	if err := c.outQueue.Push(m); err != nil {
		return ErrOutgoingQueueFull
	}
	return nil
}

// IncomingCount returns the number of messages waiting to be drained by
// RemoveIncoming.
func (c *Connection) IncomingCount() int {
	return c.inQueue.Size()
}

// RemoveIncoming pops the oldest incoming message and invokes handler
// with it. handler's returned error is propagated to the caller.
func (c *Connection) RemoveIncoming(handler func(message.Message) error) error {
	if c.state == StateUninitialized {
		return ErrUninitialized
	}
	m, err := c.inQueue.Pop()
	if err != nil {
		return ErrQueueEmpty
	}
	return handler(m)
}

// Shutdown clears both rings and both queues, drops the socket
// reference, and returns to uninitialized. Pending outgoing messages are
// discarded, not drained.
func (c *Connection) Shutdown() {
	c.inRing.Clear()
	c.outRing.Clear()
	c.inQueue.Clear()
	c.outQueue.Clear()
	c.sock = nil
	c.state = StateUninitialized
}

// Update drives the state machine one bounded step: health checks when
// ready, a handshake deadline check otherwise, a writability probe, then
// either one handshake substep or one round of outgoing/incoming pumping.
func (c *Connection) Update() error {
	switch c.state {
	case StateUninitialized:
		return ErrUninitialized
	case StateError:
		return ErrUpdateAfterError
	}

	if c.state == StateReady {
		if c.health.ProcessReceive() {
			return c.fail(ErrHealthTimeout)
		}
		if err := c.health.ProcessSend(c.enqueueHealth); err != nil {
			return c.fail(err)
		}
	} else if c.handshakeTimer.Update() {
		return c.fail(ErrHandshakeTimeout)
	}

	if !c.sock.ReadyForSend(0) {
		return nil
	}

	if c.state != StateReady {
		if err := c.stepHandshake(); err != nil {
			return c.fail(err)
		}
		return nil
	}

	if err := c.pumpOutgoing(); err != nil {
		return c.fail(err)
	}
	if err := c.pumpIncoming(); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Connection) fail(err error) error {
	c.state = StateError
	return err
}

func (c *Connection) enqueueHealth(m message.Message) error {
	// A full outgoing queue drops the heartbeat rather than failing the
	// connection; a missed heartbeat is recovered by the next interval,
	// and the receive-side timeout is what actually protects liveness.
	_ = c.outQueue.Push(m)
	return nil
}

func (c *Connection) stepHandshake() error {
	switch c.state {
	case StateHandshakeNotStarted:
		return c.stepHandshakeNotStarted()
	case StateHandshakeHelloReceived:
		return c.stepHandshakeHelloReceived()
	case StateHandshakeHelloScheduled:
		return c.stepHandshakeHelloScheduled()
	case StateHandshakeHelloSent:
		return c.stepHandshakeHelloSent()
	default:
		return nil
	}
}

// stepHandshakeNotStarted is the passive side: read until a valid Hello
// has arrived, then move on.
func (c *Connection) stepHandshakeNotStarted() error {
	if err := c.fillInRing(); err != nil && !errors.Is(err, errTryAgain) {
		return err
	}
	if c.inRing.Size() < wire.HelloSize {
		return nil
	}
	raw, err := c.inRing.Peek(wire.HelloSize)
	if err != nil {
		return err
	}
	h, err := wire.DecodeHello(raw)
	if err != nil {
		return err
	}
	if !wire.ValidateHello(h) {
		return ErrHelloInvalid
	}
	if err := c.inRing.Trim(wire.HelloSize); err != nil {
		return err
	}
	c.state = StateHandshakeHelloReceived
	return nil
}

// stepHandshakeHelloReceived writes the framed, empty-payload hello
// response.
func (c *Connection) stepHandshakeHelloReceived() error {
	if c.outRing.Size() == 0 {
		data, err := wire.MessageToData(c.nextPacketID, message.Hello())
		if err != nil {
			return err
		}
		if len(data) > c.outRing.Free() {
			return ErrMessageTooBigForStream
		}
		if err := c.outRing.Put(data); err != nil {
			return err
		}
		c.nextPacketID++
	}
	if err := c.drainOutRing(); err != nil {
		return err
	}
	if c.outRing.Size() == 0 {
		c.state = StateReady
	}
	return nil
}

// stepHandshakeHelloScheduled is the active side: confirm the peer has
// not spoken yet, then write the raw Hello packet.
func (c *Connection) stepHandshakeHelloScheduled() error {
	if err := c.ensureNothingReceived(); err != nil {
		return err
	}
	if c.outRing.Size() == 0 {
		hello := wire.EncodeHello(wire.ValidHello())
		if len(hello) > c.outRing.Free() {
			return ErrMessageTooBigForStream
		}
		if err := c.outRing.Put(hello[:]); err != nil {
			return err
		}
	}
	if err := c.drainOutRing(); err != nil {
		return err
	}
	if c.outRing.Size() == 0 {
		c.state = StateHandshakeHelloSent
	}
	return nil
}

// stepHandshakeHelloSent expects exactly one framed header with opcode
// hello and an empty payload.
func (c *Connection) stepHandshakeHelloSent() error {
	if err := c.fillInRing(); err != nil && !errors.Is(err, errTryAgain) {
		return err
	}
	if c.inRing.Size() == 0 {
		return nil
	}
	raw, err := c.inRing.Peek(c.inRing.Size())
	if err != nil {
		return err
	}
	readSize, m, err := wire.DataToMessage(raw)
	if errors.Is(err, wire.ErrNeedMoreData) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.Code() != opcode.Hello {
		return ErrHelloInvalid
	}
	if !m.Payload().IsEmpty() {
		return ErrHelloTooBig
	}
	if err := c.inRing.Trim(readSize); err != nil {
		return err
	}
	c.state = StateReady
	return nil
}

// ensureNothingReceived is a single non-blocking 1-byte recv that must
// report zero bytes; any bytes mean the peer spoke before the server did.
func (c *Connection) ensureNothingReceived() error {
	buf := make([]byte, 1)
	_, err := c.sock.Receive(buf)
	switch {
	case err == nil:
		return ErrReceiveBeforeSend
	case errors.Is(err, socket.ErrTryAgain):
		return nil
	default:
		return err
	}
}

// pumpOutgoing encodes as many queued messages as fit in the out-ring's
// current free space, then flushes what it can to the socket in one
// non-blocking call. A message that could never fit the ring even empty
// is fatal; one that merely doesn't fit right now waits for the ring to
// drain.
func (c *Connection) pumpOutgoing() error {
	for c.outQueue.Size() > 0 {
		m, err := c.outQueue.Peek()
		if err != nil {
			return err
		}
		data, err := wire.MessageToData(c.nextPacketID, m)
		if err != nil {
			return err
		}
		if len(data) > c.outRing.Capacity() {
			return ErrMessageTooBigForStream
		}
		if len(data) > c.outRing.Free() {
			break
		}
		if err := c.outRing.Put(data); err != nil {
			return err
		}
		c.nextPacketID++
		if _, err := c.outQueue.Pop(); err != nil {
			return err
		}
	}
	return c.drainOutRing()
}

// drainOutRing attempts a single non-blocking send of whatever bytes are
// currently buffered.
func (c *Connection) drainOutRing() error {
	if c.outRing.Size() == 0 {
		return nil
	}
	data, err := c.outRing.Peek(c.outRing.Size())
	if err != nil {
		return err
	}
	n, err := c.sock.Send(data)
	if err != nil {
		if errors.Is(err, socket.ErrTryAgain) {
			return nil
		}
		return err
	}
	if n > 0 {
		return c.outRing.Trim(n)
	}
	return nil
}

// fillInRing performs one non-blocking receive into the in-ring, and, on
// any bytes arriving, resets the health receive timer.
func (c *Connection) fillInRing() error {
	free := c.inRing.Free()
	if free == 0 {
		return nil
	}
	n, err := c.sock.Receive(c.recvBuf[:free])
	if err != nil {
		if errors.Is(err, socket.ErrTryAgain) {
			return errTryAgain
		}
		return err
	}
	if n == 0 {
		return nil
	}
	if err := c.inRing.Put(c.recvBuf[:n]); err != nil {
		return err
	}
	c.health.ResetReceiveTimer()
	return nil
}

// pumpIncoming fills the in-ring, then repeatedly decodes messages from
// its front. Health heartbeats are consumed in-line and never reach the
// application queue; every other message is pushed to the in-queue.
func (c *Connection) pumpIncoming() error {
	if err := c.fillInRing(); err != nil && !errors.Is(err, errTryAgain) {
		return err
	}
	for {
		if c.inRing.Size() == 0 {
			return nil
		}
		raw, err := c.inRing.Peek(c.inRing.Size())
		if err != nil {
			return err
		}
		readSize, m, err := wire.DataToMessage(raw)
		if errors.Is(err, wire.ErrNeedMoreData) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.inRing.Trim(readSize); err != nil {
			return err
		}
		if m.Code() == opcode.Health {
			continue
		}
		if err := c.inQueue.Push(m); err != nil {
			return ErrIncomingQueueFull
		}
	}
}
