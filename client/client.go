// Package client implements the Arcus client role (spec.md C13): an
// auto-reconnecting outgoing socket driving a Connection that passively
// accepts the server's Hello, with the same callback/send surface as
// server.Server. On any Connection error while connected it tears down
// and re-initializes in place so the next Update retries from scratch.
//
// Grounded on one/arcus/client.cpp/.h from the original implementation
// and on the same mutex-guarded update-loop shape as the server package.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"arcus/connection"
	"arcus/message"
	"arcus/opcode"
	"arcus/payload"
	"arcus/socket"
)

// DefaultRetryDelay is how long the Client waits between reconnect
// attempts while not connected (spec.md §4.9).
const DefaultRetryDelay = 5 * time.Second

// Status is the coarse status spec.md §4.9 maps socket/Connection state
// to.
type Status int

const (
	StatusUninitialized Status = iota
	StatusConnecting
	StatusHandshake
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusConnecting:
		return "connecting"
	case StatusHandshake:
		return "handshake"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Callback is invoked with a validated incoming message.
type Callback func(message.Message) error

// Client owns one outgoing socket, periodically reconnecting it, and the
// Connection driving it once connected. Its public surface is
// mutex-guarded the same way server.Server's is; callbacks run while mu
// is held, so a callback must not call back into the Client on the same
// goroutine.
type Client struct {
	mu sync.Mutex

	cfg        connection.Config
	logger     *slog.Logger
	retryDelay time.Duration

	address string
	port    int

	sock        *socket.Socket
	conn        *connection.Connection
	isConnected bool
	lastAttempt time.Time

	callbacks map[opcode.Code]Callback
}

// New constructs a Client with the given Connection resource limits.
func New(cfg connection.Config) *Client {
	return &Client{
		cfg:        cfg,
		logger:     slog.Default(),
		retryDelay: DefaultRetryDelay,
		callbacks:  make(map[opcode.Code]Callback),
	}
}

// SetLogger overrides the Client's logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetRetryDelay overrides the default reconnect delay.
func (c *Client) SetRetryDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryDelay = d
}

// Init creates the outgoing socket and the Connection that will drive it.
// It does not connect.
func (c *Client) Init(address string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = address
	c.port = port
	return c.resetLocked()
}

func (c *Client) resetLocked() error {
	c.sock = socket.New()
	if err := c.sock.Init(); err != nil {
		return fmt.Errorf("client: init: %w", err)
	}
	c.conn = connection.New(c.cfg)
	c.isConnected = false
	return nil
}

// Update drives one client tick: if not connected, it retries on the
// configured delay; once connected it pumps the Connection and, on
// failure, tears down and re-initializes in place.
func (c *Client) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return c.tryConnectLocked()
	}

	if err := c.conn.Update(); err != nil {
		c.logger.Log(context.Background(), slog.LevelWarn, "arcus: connection failed, reconnecting", "err", err)
		c.sock.Close()
		c.isConnected = false
		return c.resetLocked()
	}
	return c.drainIncomingLocked()
}

func (c *Client) tryConnectLocked() error {
	if !c.lastAttempt.IsZero() && time.Since(c.lastAttempt) < c.retryDelay {
		return nil
	}
	c.lastAttempt = time.Now()

	err := c.sock.Connect(c.address, c.port)
	if err != nil && err != socket.ErrTryAgain {
		c.logger.Log(context.Background(), slog.LevelDebug, "arcus: connect attempt failed", "err", err)
		return nil
	}
	c.isConnected = true
	c.conn.Init(c.sock)
	return nil
}

func (c *Client) drainIncomingLocked() error {
	for c.conn.IncomingCount() > 0 {
		if err := c.conn.RemoveIncoming(c.dispatchLocked); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) dispatchLocked(m message.Message) error {
	cb, ok := c.callbacks[m.Code()]
	if !ok {
		return nil
	}
	return cb(m)
}

// Status maps socket/Connection state to the coarse status surface.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return StatusUninitialized
	}
	if !c.isConnected {
		return StatusConnecting
	}
	switch c.conn.State() {
	case connection.StateReady:
		return StatusReady
	case connection.StateError:
		return StatusError
	default:
		return StatusHandshake
	}
}

// Shutdown closes the socket and discards any queued state.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Shutdown()
	}
	if c.sock != nil {
		err := c.sock.Close()
		c.sock = nil
		c.isConnected = false
		return err
	}
	return nil
}

func (c *Client) sendLocked(msg message.Message) error {
	if err := message.Validate(&msg); err != nil {
		return fmt.Errorf("client: outgoing message rejected: %w", err)
	}
	if c.conn == nil {
		return connection.ErrUninitialized
	}
	return c.conn.AddOutgoing(msg)
}

// --- incoming (game -> agent) callback registration ---

// SetReverseMetadataCallback registers the handler for reverse_metadata
// messages.
func (c *Client) SetReverseMetadataCallback(cb func(data []message.KeyValue) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[opcode.ReverseMetadata] = func(m message.Message) error {
		p, err := message.ValidateReverseMetadata(&m)
		if err != nil {
			return err
		}
		return cb(p.Data)
	}
}

// SetLiveStateCallback registers the handler for live_state messages.
func (c *Client) SetLiveStateCallback(cb func(message.LiveStateParams) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[opcode.LiveState] = func(m message.Message) error {
		p, err := message.ValidateLiveState(&m)
		if err != nil {
			return err
		}
		return cb(p)
	}
}

// SetHostInformationCallback registers the handler for host_information
// messages.
func (c *Client) SetHostInformationCallback(cb func(payload.Object) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[opcode.HostInformation] = func(m message.Message) error {
		p, err := message.ValidateHostInformation(&m)
		if err != nil {
			return err
		}
		return cb(p.Object)
	}
}

// SetApplicationInstanceInformationCallback registers the handler for
// application_instance_information messages.
func (c *Client) SetApplicationInstanceInformationCallback(cb func(payload.Object) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[opcode.ApplicationInstanceInformation] = func(m message.Message) error {
		p, err := message.ValidateApplicationInstanceInformation(&m)
		if err != nil {
			return err
		}
		return cb(p.Object)
	}
}

// SetCustomCommandCallback registers the handler for custom_command
// messages (custom_command flows in either direction).
func (c *Client) SetCustomCommandCallback(cb func(data []message.KeyValue) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[opcode.CustomCommand] = func(m message.Message) error {
		p, err := message.ValidateCustomCommand(&m)
		if err != nil {
			return err
		}
		return cb(p.Data)
	}
}

// --- outgoing (agent -> game) sends ---

// SendSoftStop sends a soft_stop message.
func (c *Client) SendSoftStop(timeoutSeconds int32) error {
	msg, err := message.PrepareSoftStop(timeoutSeconds)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}

// SendAllocated sends an allocated message.
func (c *Client) SendAllocated(data []message.KeyValue) error {
	msg, err := message.PrepareAllocated(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}

// SendMetadata sends a metadata message.
func (c *Client) SendMetadata(data []message.KeyValue) error {
	msg, err := message.PrepareMetadata(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}

// SendApplicationInstanceStatus sends an application_instance_status
// message.
func (c *Client) SendApplicationInstanceStatus(status int32) error {
	msg, err := message.PrepareApplicationInstanceStatus(status)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}

// SendCustomCommand sends a custom_command message.
func (c *Client) SendCustomCommand(data []message.KeyValue) error {
	msg, err := message.PrepareCustomCommand(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}
