// Package control implements the control core (spec.md §4.7): the edge
// state machine, the virtual-cursor tracker, event routing across peer
// connections, and clipboard fan-out. It owns every mutable field spec.md
// §3 names for "Control state" and "Virtual cursor".
//
// Per spec.md §9's "evented callbacks -> structured channels" design note
// and §5's "Concurrent dictionary + reentrant callbacks" caution, this
// package resolves the single-writer discipline as one internal goroutine
// (run) that owns connections, state and the virtual cursor exclusively,
// fed by a single inbox channel that both the hook capability and every
// connection's receive loop post into — never a mutex around those
// fields. The channel-actor/Option-construction shape is grounded on
// badu-term/mouse's eventDispatcher (Option functional constructors,
// Death/DyingChan() lifecycle, a single lifeCycle goroutine fed by
// multiple input channels).
package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/badu/kvm"
	"github.com/badu/kvm/capture"
	"github.com/badu/kvm/netconn"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
)

// DefaultEdgeThreshold is the pixel distance within which a local move
// event is considered to have reached a screen edge (spec.md §4.5 leaves
// the threshold to the caller; §8's edge-detection property tests use 0
// for the pure classifier itself, but a live hook benefits from a couple
// of pixels of slack against coordinate rounding).
const DefaultEdgeThreshold = 2

// ReturnCooldown is how long local moves are ignored after a return, to
// prevent immediate re-entry (spec.md §4.7.2 step 1, §5 "return cooldown
// 500 ms").
const ReturnCooldown = 500 * time.Millisecond

// DefaultPingInterval is how often a live connection is pinged (spec.md
// §5 "ping interval 10 s (no ack required)").
const DefaultPingInterval = 10 * time.Second

// EntryDeadbandFraction is the fraction of the remote screen dimension
// the virtual cursor must travel from the entry edge before movedIn
// latches true (spec.md §4.7.2 step 6: "at least 5% of the remote screen
// dimension").
const EntryDeadbandFraction = 0.05

// Option configures a Core at construction, in badu-term/mouse's
// functional-option style.
type Option func(*Core)

// WithEdgeThreshold overrides DefaultEdgeThreshold.
func WithEdgeThreshold(px int) Option {
	return func(c *Core) { c.edgeThreshold = px }
}

// WithPingInterval overrides DefaultPingInterval.
func WithPingInterval(d time.Duration) Option {
	return func(c *Core) { c.pingInterval = d }
}

// WithEventBuffer sets the capacity of the observer Events() channel.
func WithEventBuffer(n int) Option {
	return func(c *Core) { c.eventBuffer = n }
}

// virtualCursor is the remote-screen pointer tracked while Controlling
// (spec.md §3 "Virtual cursor").
type virtualCursor struct {
	remote  kvm.Point
	movedIn bool
}

type eventKind uint8

const (
	evLocalMouse eventKind = iota
	evLocalKeyboard
	evConnMessage
	evConnClosed
	evConnAccepted
	evClipboardChanged
	evSetEnabled
)

// coreEvent is the single union type posted into Core's inbox, keeping
// every control-state mutation on one goroutine regardless of which
// context produced the event (hook callback, connection receive loop, or
// the clipboard capability's change notification).
type coreEvent struct {
	kind     eventKind
	mouse    platform.MouseObserved
	keyboard platform.KeyboardObserved
	peer     kvm.MachineID
	msg      proto.Message
	err      error
	conn     *netconn.Connection
	remote   proto.Handshake
	enabled  bool
}

// Core is the control core (spec.md §4.7).
type Core struct {
	cfg kvm.Config
	log zerolog.Logger

	hook      platform.GlobalInputHook
	synth     platform.InputSynthesis
	metrics   platform.ScreenMetrics
	clipboard platform.Clipboard

	edgeThreshold int
	pingInterval  time.Duration
	eventBuffer   int

	events chan kvm.Event
	inbox  chan coreEvent

	ctx    context.Context
	cancel context.CancelFunc
	died   chan struct{}

	// Everything below is mutated only inside run(), never under a lock
	// (spec.md §5: "holders of the lock must not perform I/O" is
	// trivially satisfied because there is no lock — the single-writer
	// goroutine serializes all access by construction).
	connections map[kvm.MachineID]*netconn.Connection
	enabled     bool
	state       kvm.ControlState
	activePeer  kvm.MachineID
	activeEdge  kvm.Edge
	virtual     virtualCursor
	cap         *capture.Capture
	velocity    velocityTracker
	cooldown    time.Time
	ignoreClip  bool

	statsMu sync.Mutex
	stats   []PeerStats
}

// New builds a Core from configuration and platform capabilities. Start
// must be called to begin processing.
func New(cfg kvm.Config, log zerolog.Logger, hook platform.GlobalInputHook, synth platform.InputSynthesis, metrics platform.ScreenMetrics, clipboard platform.Clipboard, opts ...Option) *Core {
	c := &Core{
		cfg:           cfg,
		log:           log,
		hook:          hook,
		synth:         synth,
		metrics:       metrics,
		clipboard:     clipboard,
		edgeThreshold: DefaultEdgeThreshold,
		pingInterval:  DefaultPingInterval,
		eventBuffer:   64,
		connections:   make(map[kvm.MachineID]*netconn.Connection),
		state:         kvm.Idle,
	}
	for _, o := range opts {
		o(c)
	}
	c.events = make(chan kvm.Event, c.eventBuffer)
	c.inbox = make(chan coreEvent, 256)
	return c
}

// DyingChan implements kvm.Death.
func (c *Core) DyingChan() chan struct{} {
	return c.died
}

// Events returns the observer channel errors and lifecycle notifications
// are surfaced on (spec.md §6 "added": single Events() channel).
func (c *Core) Events() <-chan kvm.Event {
	return c.events
}

// Start launches the single-writer run loop and, if the configuration
// enables the core, installs the input hook immediately.
func (c *Core) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.died = make(chan struct{})
	if c.clipboard != nil {
		c.clipboard.SubscribeChange(c.onLocalClipboardChanged)
	}
	go c.run()
	if c.cfg.Enabled {
		c.SetEnabled(true)
	}
}

// HandleConnected hands a freshly handshaken connection (inbound via
// listener.Sink, or outbound via a caller's Dial) to the core. The core
// takes ownership of the connection's lifecycle from this point on.
func (c *Core) HandleConnected(conn *netconn.Connection) {
	c.inbox <- coreEvent{kind: evConnAccepted, conn: conn}
}

// SetEnabled toggles whether the core observes and suppresses local
// input (spec.md §4.7.1 "enabled false => no hooks installed...").
func (c *Core) SetEnabled(enabled bool) {
	c.inbox <- coreEvent{kind: evSetEnabled, enabled: enabled}
}

// Shutdown cancels the core's context, which unwinds the run loop:
// uninstalling the hook, best-effort disconnecting every live connection,
// and returning. Callers compose this with listener.Listener.Close and
// discovery.Service.Close for the full exit sequence (spec.md §6 "Exit
// signals").
func (c *Core) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.died != nil {
		<-c.died
	}
}

func (c *Core) run() {
	defer close(c.died)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return
		case ev := <-c.inbox:
			c.handle(ev)
		}
	}
}

func (c *Core) shutdown() {
	if c.enabled && c.hook != nil {
		c.hook.Uninstall()
	}
	for _, conn := range c.connections {
		conn.Disconnect()
		conn.Close()
	}
}

func (c *Core) handle(ev coreEvent) {
	switch ev.kind {
	case evLocalMouse:
		c.onLocalMouse(ev.mouse)
	case evLocalKeyboard:
		c.onLocalKeyboard(ev.keyboard)
	case evConnMessage:
		c.onConnMessage(ev.peer, ev.msg)
	case evConnClosed:
		c.onConnClosed(ev.peer, ev.err, ev.conn)
	case evConnAccepted:
		c.registerConnection(ev.conn)
	case evClipboardChanged:
		c.broadcastClipboard()
	case evSetEnabled:
		c.setEnabled(ev.enabled)
	}
}

func (c *Core) setEnabled(enabled bool) {
	if c.enabled == enabled {
		return
	}
	if enabled {
		if err := c.hook.Install(c.onHookMouse, c.onHookKeyboard); err != nil {
			c.log.Error().Err(err).Msg("failed to install global input hook")
			return
		}
		c.enabled = true
		return
	}
	c.enabled = false
	c.hook.Uninstall()
	if c.state == kvm.Controlling {
		c.endRemoteControl(0.5)
	}
}

func (c *Core) onHookMouse(m platform.MouseObserved) {
	c.inbox <- coreEvent{kind: evLocalMouse, mouse: m}
}

func (c *Core) onHookKeyboard(k platform.KeyboardObserved) {
	c.inbox <- coreEvent{kind: evLocalKeyboard, keyboard: k}
}

func (c *Core) onLocalClipboardChanged() {
	c.inbox <- coreEvent{kind: evClipboardChanged}
}

// registerConnection adopts a freshly handshaken connection. Per spec.md
// §3's Connection-record invariant ("a duplicate inbound handshake
// replaces the prior record; the older connection is torn down"), any
// existing connection for this peer is disconnected and closed first so
// its receive loop winds down instead of being silently orphaned.
func (c *Core) registerConnection(conn *netconn.Connection) {
	if existing, ok := c.connections[conn.ID()]; ok && existing != conn {
		existing.Disconnect()
		existing.Close()
	}
	c.connections[conn.ID()] = conn
	handler := &connAdapter{id: conn.ID(), conn: conn, inbox: c.inbox}
	conn.Start(c.ctx, handler)
	go c.pingLoop(conn)
	c.refreshStats()
	c.emit(kvm.Event{Kind: kvm.EventPeerConnected, PeerID: conn.ID()})
}

// onConnClosed reacts to one connection's receive loop exiting. closed
// identifies which *netconn.Connection fired the notification: a
// superseded connection (replaced in registerConnection by a newer
// handshake for the same peer) must not be allowed to delete the new live
// connection or tear down control state out from under it when its own,
// now-irrelevant receive loop eventually exits.
func (c *Core) onConnClosed(peer kvm.MachineID, err error, closed *netconn.Connection) {
	current, ok := c.connections[peer]
	if !ok || current != closed {
		return
	}
	delete(c.connections, peer)
	c.refreshStats()
	if c.activePeer == peer {
		switch c.state {
		case kvm.Controlling:
			c.endRemoteControl(0.5)
		case kvm.Controlled:
			c.leaveControlled()
		}
	}
	c.emit(kvm.Event{Kind: kvm.EventPeerDisconnected, PeerID: peer, Err: err})
}

func (c *Core) pingLoop(conn *netconn.Connection) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-conn.DyingChan():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				c.log.Debug().Err(err).Str("peer", string(conn.ID())).Msg("ping failed")
			}
		}
	}
}

func (c *Core) sendTo(conn *netconn.Connection, encode func(int64) ([]byte, error)) {
	if conn == nil {
		return
	}
	if err := conn.Send(encode); err != nil {
		c.log.Warn().Err(err).Str("peer", string(conn.ID())).Msg("send failed")
		c.emit(kvm.Event{Kind: kvm.EventTransportError, PeerID: conn.ID(), Err: err})
	}
}

func (c *Core) emit(ev kvm.Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn().Str("kind", ev.Kind.String()).Msg("control event dropped, events channel full")
	}
}

func (c *Core) localBounds() kvm.Rect {
	return c.metrics.PrimaryBounds()
}

// connAdapter bridges netconn.Handler's callback shape into the core's
// single inbox channel so message dispatch and lifecycle mutation always
// happen on the run() goroutine, never inside the connection's own
// receive loop.
type connAdapter struct {
	id    kvm.MachineID
	conn  *netconn.Connection
	inbox chan<- coreEvent
}

func (a *connAdapter) OnMessage(peer kvm.MachineID, msg proto.Message) {
	a.inbox <- coreEvent{kind: evConnMessage, peer: peer, msg: msg}
}

func (a *connAdapter) OnClosed(peer kvm.MachineID, err error) {
	a.inbox <- coreEvent{kind: evConnClosed, peer: peer, err: err, conn: a.conn}
}
