package netconn

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/kvm"
	"github.com/badu/kvm/logging"
	"github.com/badu/kvm/proto"
	"github.com/badu/kvm/wire"
)

type recordingHandler struct {
	mu        sync.Mutex
	messages  []proto.Message
	closedErr error
	closed    chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan struct{})}
}

func (h *recordingHandler) OnMessage(_ kvm.MachineID, msg proto.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) OnClosed(_ kvm.MachineID, err error) {
	h.mu.Lock()
	h.closedErr = err
	h.mu.Unlock()
	close(h.closed)
}

func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestHandshakeAcceptAndDial(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()

	serverDone := make(chan struct{})
	var serverConn *Connection
	go func() {
		defer close(serverDone)
		raw, err := ln.Accept()
		require.NoError(t, err)
		serverConn, _, err = Accept(raw, func(remote proto.Handshake) proto.HandshakeAck {
			return proto.HandshakeAck{
				Accepted:     true,
				MachineID:    "server",
				MachineName:  "Server",
				ScreenWidth:  1920,
				ScreenHeight: 1080,
			}
		}, 0, logging.Nop())
		require.NoError(t, err)
	}()

	clientConn, ack, err := Dial(context.Background(), ln.Addr().String(), proto.Handshake{
		MachineID:    "client",
		MachineName:  "Client",
		ScreenWidth:  1280,
		ScreenHeight: 720,
	}, 0, logging.Nop())
	require.NoError(t, err)
	defer clientConn.Close()

	<-serverDone
	require.NotNil(t, serverConn)
	defer serverConn.Close()

	assert.True(t, ack.Accepted)
	assert.Equal(t, int(1920), clientConn.PeerScreenWidth)
	assert.Equal(t, kvm.MachineID("client"), serverConn.ID())
}

func TestHandshakeRejection(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()

	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		_, _, _ = Accept(raw, func(proto.Handshake) proto.HandshakeAck {
			return proto.HandshakeAck{Accepted: false, RejectReason: "unknown machine id"}
		}, 0, logging.Nop())
	}()

	_, ack, err := Dial(context.Background(), ln.Addr().String(), proto.Handshake{MachineID: "client"}, 0, logging.Nop())
	require.Error(t, err)
	var rejected *kvm.HandshakeRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "unknown machine id", ack.RejectReason)
}

func TestPongIsNotSurfacedToHandler(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()

	serverReady := make(chan *Connection, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		conn, _, err := Accept(raw, func(proto.Handshake) proto.HandshakeAck {
			return proto.HandshakeAck{Accepted: true, MachineID: "server"}
		}, 0, logging.Nop())
		if err == nil {
			serverReady <- conn
		}
	}()

	clientConn, _, err := Dial(context.Background(), ln.Addr().String(), proto.Handshake{MachineID: "client"}, 0, logging.Nop())
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn := <-serverReady
	defer serverConn.Close()

	clientHandler := newRecordingHandler()
	serverHandler := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clientConn.Start(ctx, clientHandler)
	serverConn.Start(ctx, serverHandler)

	require.NoError(t, clientConn.Ping())
	time.Sleep(100 * time.Millisecond) // allow the pong round trip to complete

	clientHandler.mu.Lock()
	defer clientHandler.mu.Unlock()
	for _, m := range clientHandler.messages {
		assert.NotEqual(t, "Pong", m.Type.String())
	}
}

func TestDisconnectClosesBothSides(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()

	serverReady := make(chan *Connection, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		conn, _, err := Accept(raw, func(proto.Handshake) proto.HandshakeAck {
			return proto.HandshakeAck{Accepted: true, MachineID: "server"}
		}, 0, logging.Nop())
		if err == nil {
			serverReady <- conn
		}
	}()

	clientConn, _, err := Dial(context.Background(), ln.Addr().String(), proto.Handshake{MachineID: "client"}, 0, logging.Nop())
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn := <-serverReady
	defer serverConn.Close()

	clientHandler := newRecordingHandler()
	serverHandler := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clientConn.Start(ctx, clientHandler)
	serverConn.Start(ctx, serverHandler)

	clientConn.Disconnect()

	select {
	case <-serverHandler.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe disconnect")
	}
	assert.ErrorIs(t, serverHandler.closedErr, kvm.ErrConnectionClosedByPeer)
}

// TestDialObservesHandshakeProtocolErrorWhenPeerClosesBeforeAck covers
// spec.md §8 scenario 4: an acceptor that aborts its handshake path (e.g.
// on a malformed message) closes the stream without ever sending a
// HandshakeAck. The dialer must surface this as
// kvm.ErrHandshakeProtocolError rather than a generic transport error.
func TestDialObservesHandshakeProtocolErrorWhenPeerClosesBeforeAck(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()

	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		defer raw.Close()

		header := make([]byte, wire.HeaderSize)
		if _, err := io.ReadFull(raw, header); err != nil {
			return
		}
		h, err := wire.PeekHeader(header)
		if err != nil {
			return
		}
		if h.PayloadLength > 0 {
			_, _ = io.ReadFull(raw, make([]byte, h.PayloadLength))
		}
		// Simulate an acceptor that gives up mid-handshake: close the
		// stream instead of sending a HandshakeAck.
	}()

	_, _, err := Dial(context.Background(), ln.Addr().String(), proto.Handshake{MachineID: "client"}, 0, logging.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, kvm.ErrHandshakeProtocolError)
}
