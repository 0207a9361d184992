// Package netconn implements the per-peer reliable byte-stream connection
// (spec.md §4.3): handshake, framed send/receive, ping/pong liveness.
//
// The channel-actor shape (a receive loop that dispatches into a callback,
// a send path serialized by a mutex, a buffered "died" signal) is grounded
// on _examples/other_examples's nspcc-dev-neo-go/pkg/p2p/peer (inch/outch/
// quitch, atomic disconnect flag, handshake timeout constant) and
// tailscale/wireguard-go's device/peer.go per-peer goroutine split,
// rewritten in badu-term's Death/DyingChan() idiom
// (mouse/dispatcher.go) rather than those projects' bespoke shutdown
// channels.
package netconn

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/badu/kvm"
	"github.com/badu/kvm/proto"
	"github.com/badu/kvm/wire"
)

// DefaultHandshakeTimeout is the default deadline for completing a
// handshake (spec.md §4.3).
const DefaultHandshakeTimeout = 10 * time.Second

// DefaultReadTimeout is the liveness window: if no frame is read within
// this long, the receive loop surfaces a timeout and closes (spec.md
// §4.3 "Liveness").
const DefaultReadTimeout = 30 * time.Second

// Handler receives messages and lifecycle notifications from a
// Connection's receive loop. Ping/Pong are answered/absorbed inside the
// connection and never reach Handler (spec.md §4.3).
type Handler interface {
	// OnMessage is called for every decoded message except Ping/Pong.
	// Disconnect is reported to OnClosed, not OnMessage.
	OnMessage(peer kvm.MachineID, msg proto.Message)
	// OnClosed is called exactly once when the receive loop exits, for any
	// reason (peer Disconnect, transport error, read timeout, or local
	// Close).
	OnClosed(peer kvm.MachineID, err error)
}

// Connection is one reliable, ordered stream to one peer.
type Connection struct {
	id     kvm.MachineID
	conn   net.Conn
	log    zerolog.Logger
	handler Handler

	sendMu sync.Mutex // serializes writers so one message's bytes are never interleaved with another's

	died chan struct{}

	// PeerScreenWidth/PeerScreenHeight are populated at handshake
	// completion (spec.md §3 Connection record).
	PeerScreenWidth  int
	PeerScreenHeight int
	PeerName         string

	closeOnce sync.Once
}

// DyingChan implements kvm.Death.
func (c *Connection) DyingChan() chan struct{} {
	return c.died
}

// ID returns the remote peer's machine identifier.
func (c *Connection) ID() kvm.MachineID {
	return c.id
}

// Dial opens a TCP connection to addr and performs the initiator side of
// the handshake (spec.md §4.3 "Initiator"). On success it returns a
// Connection with its receive loop not yet started; call Start to begin
// dispatching.
func Dial(ctx context.Context, addr string, local proto.Handshake, deadline time.Duration, log zerolog.Logger) (*Connection, proto.HandshakeAck, error) {
	if deadline <= 0 {
		deadline = DefaultHandshakeTimeout
	}
	dialer := net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, proto.HandshakeAck{}, &kvm.TransportError{Op: "dial", Err: err}
	}
	enableNoDelay(netConn)

	if err := netConn.SetDeadline(time.Now().Add(deadline)); err != nil {
		netConn.Close()
		return nil, proto.HandshakeAck{}, &kvm.TransportError{Op: "set-deadline", Err: err}
	}

	if err := writeMessage(netConn, &sync.Mutex{}, time.Now().UnixMilli(), func(ts int64) ([]byte, error) {
		return proto.EncodeHandshake(ts, local)
	}); err != nil {
		netConn.Close()
		return nil, proto.HandshakeAck{}, err
	}

	msg, err := readOneMessage(netConn)
	if err != nil {
		netConn.Close()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, proto.HandshakeAck{}, kvm.ErrHandshakeTimeout
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, proto.HandshakeAck{}, kvm.ErrHandshakeProtocolError
		}
		return nil, proto.HandshakeAck{}, err
	}
	if msg.Type != wire.TypeHandshakeAck {
		netConn.Close()
		return nil, proto.HandshakeAck{}, kvm.ErrUnexpectedHandshake
	}
	ack := msg.HandshakeAck
	if !ack.Accepted {
		netConn.Close()
		return nil, ack, &kvm.HandshakeRejectedError{Reason: ack.RejectReason}
	}

	if err := netConn.SetDeadline(time.Time{}); err != nil {
		netConn.Close()
		return nil, ack, &kvm.TransportError{Op: "clear-deadline", Err: err}
	}

	c := &Connection{
		id:               kvm.MachineID(ack.MachineID),
		conn:             netConn,
		log:              log,
		died:             make(chan struct{}, 1),
		PeerScreenWidth:  int(ack.ScreenWidth),
		PeerScreenHeight: int(ack.ScreenHeight),
		PeerName:         ack.MachineName,
	}
	return c, ack, nil
}

// Accept performs the acceptor side of the handshake over an
// already-accepted stream (spec.md §4.3 "Acceptor") and returns a
// Connection plus the initiator's Handshake, so the caller can decide
// whether to accept before Accept sends the HandshakeAck.
func Accept(netConn net.Conn, decide func(proto.Handshake) proto.HandshakeAck, deadline time.Duration, log zerolog.Logger) (*Connection, proto.Handshake, error) {
	if deadline <= 0 {
		deadline = DefaultHandshakeTimeout
	}
	enableNoDelay(netConn)

	if err := netConn.SetDeadline(time.Now().Add(deadline)); err != nil {
		netConn.Close()
		return nil, proto.Handshake{}, &kvm.TransportError{Op: "set-deadline", Err: err}
	}

	msg, err := readOneMessage(netConn)
	if err != nil {
		netConn.Close()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, proto.Handshake{}, kvm.ErrHandshakeTimeout
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, proto.Handshake{}, kvm.ErrHandshakeProtocolError
		}
		return nil, proto.Handshake{}, err
	}
	if msg.Type != wire.TypeHandshake {
		netConn.Close()
		return nil, proto.Handshake{}, kvm.ErrUnexpectedHandshake
	}
	remote := msg.Handshake

	ack := decide(remote)
	if err := writeMessage(netConn, &sync.Mutex{}, time.Now().UnixMilli(), func(ts int64) ([]byte, error) {
		return proto.EncodeHandshakeAck(ts, ack)
	}); err != nil {
		netConn.Close()
		return nil, remote, err
	}

	if !ack.Accepted {
		netConn.Close()
		return nil, remote, &kvm.HandshakeRejectedError{Reason: ack.RejectReason}
	}

	if err := netConn.SetDeadline(time.Time{}); err != nil {
		netConn.Close()
		return nil, remote, &kvm.TransportError{Op: "clear-deadline", Err: err}
	}

	c := &Connection{
		id:               kvm.MachineID(remote.MachineID),
		conn:             netConn,
		log:              log,
		died:             make(chan struct{}, 1),
		PeerScreenWidth:  int(remote.ScreenWidth),
		PeerScreenHeight: int(remote.ScreenHeight),
		PeerName:         remote.MachineName,
	}
	return c, remote, nil
}

// Start launches the background receive loop (spec.md §5 "per-connection
// send and receive contexts (one reader task per connection").
func (c *Connection) Start(ctx context.Context, handler Handler) {
	c.handler = handler
	go c.receiveLoop(ctx)
}

// Send serializes and writes one message, flushing before returning
// (spec.md §4.3 "Send path").
func (c *Connection) Send(encode func(timestamp int64) ([]byte, error)) error {
	return writeMessage(c.conn, &c.sendMu, time.Now().UnixMilli(), encode)
}

// Close tears down the underlying stream. Safe to call more than once and
// concurrently with the receive loop.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Connection) receiveLoop(ctx context.Context) {
	defer c.finish()
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(DefaultReadTimeout)); err != nil {
			c.handler.OnClosed(c.id, &kvm.TransportError{Op: "set-read-deadline", Err: err})
			return
		}
		msg, err := readOneMessage(c.conn)
		if err != nil {
			if ctx.Err() != nil {
				c.handler.OnClosed(c.id, ctx.Err())
				return
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				c.handler.OnClosed(c.id, kvm.ErrReadTimeout)
				return
			}
			if errors.Is(err, io.EOF) {
				c.handler.OnClosed(c.id, kvm.ErrConnectionClosedByPeer)
				return
			}
			c.handler.OnClosed(c.id, &kvm.TransportError{Op: "read", Err: err})
			return
		}

		switch msg.Type {
		case wire.TypePing:
			if sendErr := c.Send(func(ts int64) ([]byte, error) { return proto.EncodePong(ts) }); sendErr != nil {
				c.handler.OnClosed(c.id, sendErr)
				return
			}
		case wire.TypePong:
			// consumed silently (spec.md §4.3)
		case wire.TypeDisconnect:
			c.handler.OnClosed(c.id, kvm.ErrConnectionClosedByPeer)
			return
		default:
			c.handler.OnMessage(c.id, msg)
		}
	}
}

func (c *Connection) finish() {
	c.Close()
	c.log.Debug().Str("peer", string(c.id)).Msg("connection receive loop exited")
	select {
	case c.died <- struct{}{}:
	default:
	}
}

// Ping sends a liveness probe; the control core schedules these
// periodically (spec.md §4.3 "the control core is responsible for
// scheduling periodic Ping").
func (c *Connection) Ping() error {
	return c.Send(func(ts int64) ([]byte, error) { return proto.EncodePing(ts) })
}

// Disconnect sends a best-effort Disconnect frame, ignoring write errors
// since the stream may already be going away (spec.md §6 "Exit signals").
func (c *Connection) Disconnect() {
	_ = c.Send(func(ts int64) ([]byte, error) { return proto.EncodeDisconnect(ts) })
}

func writeMessage(w io.Writer, mu *sync.Mutex, timestamp int64, encode func(int64) ([]byte, error)) error {
	buf, err := encode(timestamp)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, err := w.Write(buf); err != nil {
		return &kvm.TransportError{Op: "write", Err: err}
	}
	return nil
}

func readOneMessage(r io.Reader) (proto.Message, error) {
	header := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return proto.Message{}, err
	}
	h, err := wire.PeekHeader(header)
	if err != nil {
		return proto.Message{}, err
	}
	buf := make([]byte, h.TotalLength())
	copy(buf, header)
	if h.PayloadLength > 0 {
		if _, err := io.ReadFull(r, buf[wire.HeaderSize:]); err != nil {
			return proto.Message{}, err
		}
	}
	msg, _, err := proto.Decode(buf)
	return msg, err
}

func enableNoDelay(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
}
