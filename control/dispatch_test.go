package control

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/kvm"
	"github.com/badu/kvm/logging"
	"github.com/badu/kvm/netconn"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
)

// pairedCores dials a local TCP connection between two Cores the way
// listener.Listener and a caller's Dial would, then hands both ends to
// HandleConnected — mirroring the wiring cmd/kvmd performs at runtime.
func pairedCores(t *testing.T) (left, right *Core, leftSynth, rightSynth *fakeSynth, leftClip, rightClip *fakeClipboard) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	const leftID kvm.MachineID = "left0000000000000000000000000000"
	const rightID kvm.MachineID = "right000000000000000000000000000"

	leftCfg := kvm.Config{
		MachineID: leftID,
		Peers:     []kvm.PeerConfig{{ID: rightID, Edge: kvm.EdgeRight}},
		Clipboard: kvm.ClipboardConfig{Enabled: true},
	}
	rightCfg := kvm.Config{
		MachineID: rightID,
		Peers:     []kvm.PeerConfig{{ID: leftID, Edge: kvm.EdgeLeft}},
		Clipboard: kvm.ClipboardConfig{Enabled: true},
	}

	left, _, leftSynth, leftClip = newTestCore(t, leftCfg)
	right, _, rightSynth, rightClip = newTestCore(t, rightCfg)

	serverConn := make(chan *netconn.Connection, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		conn, _, err := netconn.Accept(raw, func(remote proto.Handshake) proto.HandshakeAck {
			return proto.HandshakeAck{Accepted: true, MachineID: string(rightID), MachineName: "right", ScreenWidth: 1920, ScreenHeight: 1080}
		}, 2*time.Second, logging.Nop())
		require.NoError(t, err)
		serverConn <- conn
	}()

	clientConn, _, err := netconn.Dial(context.Background(), ln.Addr().String(), proto.Handshake{
		MachineID: string(leftID), MachineName: "left", ScreenWidth: 1920, ScreenHeight: 1080,
	}, 2*time.Second, logging.Nop())
	require.NoError(t, err)

	right.HandleConnected(<-serverConn)
	left.HandleConnected(clientConn)

	require.Eventually(t, func() bool { return len(left.Stats()) == 1 && len(right.Stats()) == 1 }, time.Second, 5*time.Millisecond)
	return left, right, leftSynth, rightSynth, leftClip, rightClip
}

func waitForControlStateChanged(t *testing.T, events <-chan kvm.Event, want kvm.ControlState) kvm.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kvm.EventControlStateChanged && ev.State == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for control state %s", want)
		}
	}
}

// TestCursorEnterHandsOffControl exercises spec.md §8 scenarios 1/2's core:
// left's local mouse reaching its Right edge begins Controlling, which
// sends CursorEnter and puts right into Controlled.
func TestCursorEnterHandsOffControl(t *testing.T) {
	left, right, leftSynth, _, _, _ := pairedCores(t)

	left.inbox <- coreEvent{kind: evLocalMouse, mouse: platform.MouseObserved{
		X: 1919, Y: 540, EventType: proto.MouseMove,
	}}

	waitForControlStateChanged(t, left.Events(), kvm.Controlling)
	waitForControlStateChanged(t, right.Events(), kvm.Controlled)

	assert.True(t, leftSynth.hidden)
}

// TestClipboardChangeBroadcastsToPeer exercises spec.md §4.7.6's fan-out
// and the ignoreClip echo guard on the receiving side.
func TestClipboardChangeBroadcastsToPeer(t *testing.T) {
	left, _, _, _, leftClip, rightClip := pairedCores(t)

	leftClip.content = platform.ClipboardContent{Type: proto.ContentText, Data: []byte("hello")}
	leftClip.has = true

	left.inbox <- coreEvent{kind: evClipboardChanged}

	require.Eventually(t, func() bool { return len(rightClip.written) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("hello"), rightClip.written[0].Data)
}
