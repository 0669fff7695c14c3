// Package socket implements the nonblocking TCP socket wrapper the
// Connection state machine drives: init/bind/listen/accept/connect, and
// ready_for_send/ready_for_read readiness probes implemented with a
// select-equivalent (golang.org/x/sys/unix.Poll) rather than Go's
// blocking net.Conn model, so Connection.update can always return
// promptly (spec.md §4.3, §5).
//
// golang.org/x/sys/unix is only an indirect/transitive dependency
// elsewhere in the retrieval pack (pulled into jy-tan-manta's go.mod by
// vishvananda/netlink and mdlayher/vsock, never imported directly by a
// file there); this package is where it gets its first direct use.
// Grounded on the original one/arcus/internal/socket.cpp's thin,
// state-tracked, nonblocking wrapper.
package socket

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// State mirrors the Socket lifecycle from spec.md §3: uninitialized ->
// initialized -> (bound|connected|listening) -> closed. Close is
// idempotent.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateBound
	StateConnected
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateBound:
		return "bound"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrTryAgain signals a would-block condition: not a failure, just "no
// progress was possible this call."
var ErrTryAgain = fmt.Errorf("socket: try again")

// subsystemRefs counts balanced Init/Shutdown calls to the process-wide
// socket subsystem. On POSIX this bring-up is a no-op, but the counted
// pattern is kept so the same call sequence works unchanged on a
// platform that needs one (e.g. Winsock's WSAStartup/WSACleanup).
var subsystemRefs atomic.Int32

// InitSubsystem marks one more user of the process-wide socket
// subsystem. Calls must be balanced with ShutdownSubsystem.
func InitSubsystem() error {
	subsystemRefs.Add(1)
	return nil
}

// ShutdownSubsystem marks one fewer user of the process-wide socket
// subsystem. Only the last matching call actually tears anything down.
func ShutdownSubsystem() error {
	if subsystemRefs.Add(-1) < 0 {
		subsystemRefs.Store(0)
	}
	return nil
}

// Socket is a thin, state-tracked, nonblocking TCP socket.
type Socket struct {
	fd    int
	state State
}

// New returns an uninitialized Socket.
func New() *Socket {
	return &Socket{fd: -1, state: StateUninitialized}
}

// State returns the socket's current lifecycle state.
func (s *Socket) State() State {
	return s.state
}

// Init creates the underlying nonblocking TCP file descriptor.
func (s *Socket) Init() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: init: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("socket: set nonblocking: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	s.fd = fd
	s.state = StateInitialized
	return nil
}

// Close idempotently releases the file descriptor.
func (s *Socket) Close() error {
	if s.state == StateClosed || s.fd < 0 {
		s.state = StateClosed
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	s.state = StateClosed
	if err != nil {
		return fmt.Errorf("socket: close: %w", err)
	}
	return nil
}

// Bind binds the socket to the given port on all interfaces.
func (s *Socket) Bind(port int) error {
	sa := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(s.fd, sa); err != nil {
		return fmt.Errorf("socket: bind port %d: %w", port, err)
	}
	s.state = StateBound
	return nil
}

// Listen marks the socket as a listening socket with the given backlog.
func (s *Socket) Listen(backlog int) error {
	if err := unix.Listen(s.fd, backlog); err != nil {
		return fmt.Errorf("socket: listen: %w", err)
	}
	s.state = StateListening
	return nil
}

// Accept attempts to accept one pending connection without blocking. It
// returns ok=false, not an error, when there is nothing to accept yet.
func (s *Socket) Accept() (peer *Socket, ip string, port int, ok bool, err error) {
	nfd, sa, acceptErr := unix.Accept(s.fd)
	if acceptErr != nil {
		if isWouldBlock(acceptErr) {
			return nil, "", 0, false, nil
		}
		return nil, "", 0, false, fmt.Errorf("socket: accept: %w", acceptErr)
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return nil, "", 0, false, fmt.Errorf("socket: accept: set nonblocking: %w", err)
	}
	peer = &Socket{fd: nfd, state: StateConnected}
	if in4, ok4 := sa.(*unix.SockaddrInet4); ok4 {
		ip = net.IP(in4.Addr[:]).String()
		port = in4.Port
	}
	return peer, ip, port, true, nil
}

// Connect begins a nonblocking connect to ip:port. A connect in progress
// (EINPROGRESS) is reported as ErrTryAgain; the caller should poll
// ReadyForSend to learn when the connect attempt resolves.
func (s *Socket) Connect(ip string, port int) error {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return fmt.Errorf("socket: connect: invalid ip %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return fmt.Errorf("socket: connect: only ipv4 is supported, got %q", ip)
	}
	var addr [4]byte
	copy(addr[:], v4)
	sa := &unix.SockaddrInet4{Port: port, Addr: addr}

	err := unix.Connect(s.fd, sa)
	if err == nil {
		s.state = StateConnected
		return nil
	}
	if err == unix.EINPROGRESS || isWouldBlock(err) {
		s.state = StateConnected
		return ErrTryAgain
	}
	return fmt.Errorf("socket: connect %s:%d: %w", ip, port, err)
}

// LocalPort returns the port the socket is bound to, useful after
// binding to port 0 to let the kernel pick an ephemeral port.
func (s *Socket) LocalPort() (int, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return 0, fmt.Errorf("socket: getsockname: %w", err)
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("socket: getsockname returned %T, want ipv4", sa)
	}
	return in4.Port, nil
}

// ReadyForSend probes, with the given timeout, whether the socket is
// writable.
func (s *Socket) ReadyForSend(timeout time.Duration) bool {
	return s.poll(unix.POLLOUT, timeout)
}

// ReadyForRead probes, with the given timeout, whether the socket has
// data (or a pending accept, or EOF) available to read.
func (s *Socket) ReadyForRead(timeout time.Duration) bool {
	return s.poll(unix.POLLIN, timeout)
}

func (s *Socket) poll(events int16, timeout time.Duration) bool {
	if s.fd < 0 {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
	ms := int(timeout / time.Millisecond)
	n, err := unix.Poll(fds, ms)
	if err != nil || n <= 0 {
		return false
	}
	return fds[0].Revents&events != 0
}

// Send writes buf without blocking. It returns the number of bytes
// actually written, which may be less than len(buf) on a partial send.
// A would-block condition returns (0, ErrTryAgain), not a fatal error.
func (s *Socket) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := unix.Write(s.fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, ErrTryAgain
		}
		return 0, fmt.Errorf("socket: send: %w", err)
	}
	return n, nil
}

// Receive reads into buf without blocking. A would-block condition
// returns (0, ErrTryAgain). A clean peer shutdown returns the error
// reported by ErrPeerClosed().
func (s *Socket) Receive(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, ErrTryAgain
		}
		return 0, fmt.Errorf("socket: receive: %w", err)
	}
	if n == 0 {
		return 0, errPeerClosed
	}
	return n, nil
}

var errPeerClosed = fmt.Errorf("socket: peer closed the connection")

// ErrPeerClosed is returned by Receive when the peer has performed an
// orderly shutdown of its sending side.
func ErrPeerClosed() error { return errPeerClosed }

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
