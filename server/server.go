// Package server implements the Arcus server role (spec.md C12): a
// single listening socket that accepts at most one peer, drives that
// peer's Connection as the handshake initiator, dispatches incoming
// messages to registered per-opcode callbacks, and validates outgoing
// messages against their schema before enqueueing.
//
// Grounded on one/arcus/server.cpp/.h from the original implementation
// and on sadewadee-maboo's internal/server package's mutex-guarded,
// single-listener update loop shape.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arcus/connection"
	"arcus/message"
	"arcus/opcode"
	"arcus/payload"
	"arcus/socket"
)

// listenBacklog matches the small backlog spec.md §4.8 calls for: the
// Server accepts at most one peer at a time.
const listenBacklog = 1

// Status is the coarse status spec.md §4.8 maps Connection state to.
type Status int

const (
	StatusUninitialized Status = iota
	StatusListening
	StatusHandshake
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusListening:
		return "listening"
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

// Server owns a listening socket, at most one accepted peer, and the
// Connection driving that peer. Its public surface is guarded by mu so
// an embedding application may call Update, Send*, and SetXCallback from
// different goroutines (spec.md §5); callbacks run while mu is held, so
// a callback must not call back into the Server on the same goroutine.
type Server struct {
	mu sync.Mutex

	cfg    connection.Config
	logger *slog.Logger

	listener *socket.Socket
	peer     *socket.Socket
	conn     *connection.Connection

	callbacks map[opcode.Code]Callback
}

// New constructs a Server with the given Connection resource limits. Call
// Init and then Listen before the first Update.
func New(cfg connection.Config) *Server {
	return &Server{
		cfg:       cfg,
		logger:    slog.Default(),
		callbacks: make(map[opcode.Code]Callback),
	}
}

// SetLogger overrides the Server's logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Init creates the listening socket and the Connection that will drive
// whatever peer is eventually accepted. It does not yet listen.
func (s *Server) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = socket.New()
	if err := s.listener.Init(); err != nil {
		return fmt.Errorf("server: init: %w", err)
	}
	s.conn = connection.New(s.cfg)
	return nil
}

// Listen binds and listens on port with a small, fixed backlog.
func (s *Server) Listen(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listener.Bind(port); err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	if err := s.listener.Listen(listenBacklog); err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Update runs one server tick: if no peer is accepted yet, it probes for
// one; otherwise it pumps the Connection and dispatches drained incoming
// messages to their registered callbacks.
func (s *Server) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer == nil {
		return s.acceptLocked()
	}

	if err := s.conn.Update(); err != nil {
		s.logger.Log(context.Background(), slog.LevelWarn, "arcus: peer connection failed", "err", err)
		s.dropPeerLocked()
		return nil
	}
	return s.drainIncomingLocked()
}

func (s *Server) acceptLocked() error {
	if !s.listener.ReadyForRead(0) {
		return nil
	}
	peer, ip, port, ok, err := s.listener.Accept()
	if err != nil {
		return fmt.Errorf("server: accept: %w", err)
	}
	if !ok {
		return nil
	}
	s.logger.Log(context.Background(), slog.LevelInfo, "arcus: peer accepted", "ip", ip, "port", port)
	s.peer = peer
	s.conn.Init(peer)
	return s.conn.InitiateHandshake()
}

// dropPeerLocked implements spec.md §7's server recovery policy: the
// Server does not auto-recover a failed peer. It tears the peer down and
// returns to listening; anything still queued on the failed Connection is
// lost.
func (s *Server) dropPeerLocked() {
	s.conn.Shutdown()
	s.peer.Close()
	s.peer = nil
	s.conn = connection.New(s.cfg)
}

func (s *Server) drainIncomingLocked() error {
	for s.conn.IncomingCount() > 0 {
		if err := s.conn.RemoveIncoming(s.dispatchLocked); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) dispatchLocked(m message.Message) error {
	cb, ok := s.callbacks[m.Code()]
	if !ok {
		return nil
	}
	return cb(m)
}

// Status maps the current Connection state to the coarse status surface.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return StatusUninitialized
	}
	if s.peer == nil {
		return StatusListening
	}
	switch s.conn.State() {
	case connection.StateReady:
		return StatusReady
	case connection.StateError:
		return StatusError
	default:
		return StatusHandshake
	}
}

// Shutdown closes the peer (if any) and the listening socket, discarding
// any queued state.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Shutdown()
	}
	if s.peer != nil {
		s.peer.Close()
		s.peer = nil
	}
	if s.listener != nil {
		err := s.listener.Close()
		s.listener = nil
		return err
	}
	return nil
}

func (s *Server) sendLocked(msg message.Message) error {
	if err := message.Validate(&msg); err != nil {
		return fmt.Errorf("server: outgoing message rejected: %w", err)
	}
	if s.conn == nil {
		return connection.ErrUninitialized
	}
	return s.conn.AddOutgoing(msg)
}

// --- incoming (agent -> game) callback registration ---

// SetSoftStopCallback registers the handler for soft_stop messages.
func (s *Server) SetSoftStopCallback(cb func(timeoutSeconds int32) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[opcode.SoftStop] = func(m message.Message) error {
		p, err := message.ValidateSoftStop(&m)
		if err != nil {
			return err
		}
		return cb(p.TimeoutSeconds)
	}
}

// SetAllocatedCallback registers the handler for allocated messages.
func (s *Server) SetAllocatedCallback(cb func(data []message.KeyValue) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[opcode.Allocated] = func(m message.Message) error {
		p, err := message.ValidateAllocated(&m)
		if err != nil {
			return err
		}
		return cb(p.Data)
	}
}

// SetMetadataCallback registers the handler for metadata messages.
func (s *Server) SetMetadataCallback(cb func(data []message.KeyValue) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[opcode.Metadata] = func(m message.Message) error {
		p, err := message.ValidateMetadata(&m)
		if err != nil {
			return err
		}
		return cb(p.Data)
	}
}

// SetApplicationInstanceStatusCallback registers the handler for
// application_instance_status messages.
func (s *Server) SetApplicationInstanceStatusCallback(cb func(status int32) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[opcode.ApplicationInstanceStatus] = func(m message.Message) error {
		p, err := message.ValidateApplicationInstanceStatus(&m)
		if err != nil {
			return err
		}
		return cb(p.Status)
	}
}

// SetCustomCommandCallback registers the handler for custom_command
// messages (custom_command flows in either direction).
func (s *Server) SetCustomCommandCallback(cb func(data []message.KeyValue) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[opcode.CustomCommand] = func(m message.Message) error {
		p, err := message.ValidateCustomCommand(&m)
		if err != nil {
			return err
		}
		return cb(p.Data)
	}
}

// --- outgoing (game -> agent) sends ---

// SendReverseMetadataResponse sends a reverse_metadata message.
func (s *Server) SendReverseMetadataResponse(data []message.KeyValue) error {
	msg, err := message.PrepareReverseMetadata(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(msg)
}

// SendLiveStateResponse sends a live_state message.
func (s *Server) SendLiveStateResponse(p message.LiveStateParams) error {
	msg, err := message.PrepareLiveState(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(msg)
}

// SendHostInformationResponse sends a host_information message.
func (s *Server) SendHostInformationResponse(o payload.Object) error {
	msg, err := message.PrepareHostInformation(o)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(msg)
}

// SendApplicationInstanceInformationResponse sends an
// application_instance_information message.
func (s *Server) SendApplicationInstanceInformationResponse(o payload.Object) error {
	msg, err := message.PrepareApplicationInstanceInformation(o)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(msg)
}

// SendCustomCommandResponse sends a custom_command message.
func (s *Server) SendCustomCommandResponse(data []message.KeyValue) error {
	msg, err := message.PrepareCustomCommand(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(msg)
}
