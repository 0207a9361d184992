// Package listener binds the TCP service socket and accepts inbound peer
// streams, running the acceptor side of the handshake on each one before
// handing the connection off to the control core (spec.md §4.4).
//
// The bound-socket/closing-flag/done-channel shape mirrors package
// discovery's Service (itself grounded on
// _examples/other_examples's R2Northstar-Atlas pkg/nspkt.Listener
// conn/closing/serve bookkeeping), adapted from a UDP socket to a TCP
// accept loop.
package listener

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/badu/kvm"
	"github.com/badu/kvm/netconn"
	"github.com/badu/kvm/proto"
)

// Decider is consulted for every inbound handshake to build the
// HandshakeAck (spec.md §4.3 "Acceptor"), typically checking the peer's
// MachineId against configuration and filling in the local machine's own
// identity/screen dimensions on acceptance.
type Decider func(proto.Handshake) proto.HandshakeAck

// Sink receives completed inbound connections and accept-failure reports.
// OnAccepted corresponds to spec.md §4.4 "on success it hands the
// resulting connection to the control core via PeerConnected".
type Sink interface {
	OnAccepted(conn *netconn.Connection, remote proto.Handshake)
	OnAcceptError(err error)
}

// Listener accepts inbound TCP streams on one port and runs the acceptor
// handshake on each.
type Listener struct {
	port     int
	decide   Decider
	sink     Sink
	deadline time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	ln      net.Listener
	closing bool
	done    chan struct{}
}

// New creates a Listener bound to no socket yet; call Run to start it.
// deadline <= 0 uses netconn.DefaultHandshakeTimeout.
func New(port int, decide Decider, sink Sink, deadline time.Duration, log zerolog.Logger) *Listener {
	return &Listener{port: port, decide: decide, sink: sink, deadline: deadline, log: log}
}

// Run binds the TCP socket and accepts connections until ctx is
// cancelled or Close is called. A bind failure is returned immediately
// (spec.md §4.4: "a fatal bind failure is surfaced at startup"); accept
// failures after a successful bind are reported to the sink and do not
// stop the loop (spec.md §4.4: "Accept failures are reported but do not
// stop the listener").
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(l.port)))
	if err != nil {
		return &kvm.TransportError{Op: "listen", Err: err}
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.ln = ln
	l.closing = false
	l.done = done
	l.mu.Unlock()

	defer close(done)
	defer ln.Close()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		netConn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()
			if closing {
				return nil
			}
			l.sink.OnAcceptError(&kvm.TransportError{Op: "accept", Err: err})
			continue
		}
		go l.handshake(netConn)
	}
}

func (l *Listener) handshake(netConn net.Conn) {
	conn, remote, err := netconn.Accept(netConn, l.decide, l.deadline, l.log)
	if err != nil {
		l.sink.OnAcceptError(err)
		return
	}
	l.sink.OnAccepted(conn, remote)
}

// Close unblocks Run by closing the bound socket.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.ln == nil {
		l.mu.Unlock()
		return
	}
	l.closing = true
	l.ln.Close()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Addr returns the bound socket's address, or nil if not yet running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
