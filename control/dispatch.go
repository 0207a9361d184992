package control

import (
	"github.com/badu/kvm"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
	"github.com/badu/kvm/screen"
	"github.com/badu/kvm/wire"
)

// onConnMessage dispatches one decoded message from a peer connection
// (spec.md §4.7.5). Mouse/Keyboard are only honored from the peer that
// currently controls us (state Controlled); anything else is a
// PolicyViolation.
func (c *Core) onConnMessage(peer kvm.MachineID, msg proto.Message) {
	switch msg.Type {
	case wire.TypeMouse:
		c.onRemoteMouse(peer, msg.Mouse)
	case wire.TypeKeyboard:
		c.onRemoteKeyboard(peer, msg.Keyboard)
	case wire.TypeCursorEnter:
		c.onRemoteCursorEnter(peer, msg.CursorEnter)
	case wire.TypeCursorLeave:
		c.onRemoteCursorLeave(peer, msg.CursorLeave)
	case wire.TypeClipboard:
		c.onRemoteClipboard(peer, msg.Clipboard)
	case wire.TypeClipboardRequest:
		c.onRemoteClipboardRequest(peer)
	case wire.TypeError:
		c.log.Warn().Str("peer", string(peer)).Int32("code", msg.Error.Code).Str("description", msg.Error.Description).Msg("peer reported protocol error")
	}
}

func (c *Core) onRemoteMouse(peer kvm.MachineID, m proto.Mouse) {
	if c.state != kvm.Controlled || c.activePeer != peer {
		c.policyViolation(peer)
		return
	}
	switch m.EventType {
	case proto.MouseMove:
		c.synth.MoveAbsolute(int(m.X), int(m.Y))
	case proto.MouseWheel, proto.MouseHWheel:
		c.synth.SynthesizeMouse(m.EventType, m.WheelDelta)
	default:
		c.synth.SynthesizeMouse(m.EventType, 0)
	}
}

func (c *Core) onRemoteKeyboard(peer kvm.MachineID, k proto.Keyboard) {
	if c.state != kvm.Controlled || c.activePeer != peer {
		c.policyViolation(peer)
		return
	}
	c.synth.SynthesizeKey(k.KeyCode, k.ScanCode, k.EventType, k.IsExtended)
}

// onRemoteCursorEnter implements spec.md §4.7.5's Controlled transition:
// ignored while already Controlling or Controlled by a different peer.
func (c *Core) onRemoteCursorEnter(peer kvm.MachineID, ce proto.CursorEnter) {
	if c.state == kvm.Controlling {
		return
	}
	if c.state == kvm.Controlled && c.activePeer != peer {
		return
	}
	c.enterControlled(peer, ce)
}

func (c *Core) onRemoteCursorLeave(peer kvm.MachineID, cl proto.CursorLeave) {
	if c.state != kvm.Controlled || c.activePeer != peer {
		return
	}
	c.leaveControlled()
}

func (c *Core) onRemoteClipboard(peer kvm.MachineID, payload proto.Clipboard) {
	if !c.cfg.Clipboard.Enabled {
		return
	}
	if payload.ContentType == proto.ContentText {
		decoded, err := platform.DecodeClipboardText(payload.Data, payload.FormatHint)
		if err != nil {
			c.log.Warn().Err(err).Str("peer", string(peer)).Msg("failed to decode clipboard text, dropping")
			return
		}
		payload.Data = decoded
	}
	c.receiveClipboard(payload)
}

func (c *Core) onRemoteClipboardRequest(peer kvm.MachineID) {
	if !c.cfg.Clipboard.Enabled || c.clipboard == nil {
		return
	}
	content, ok := c.clipboard.ReadContent()
	if !ok {
		return
	}
	conn := c.connections[peer]
	c.sendTo(conn, func(ts int64) ([]byte, error) {
		return proto.EncodeClipboard(ts, proto.Clipboard{ContentType: content.Type, FormatHint: content.FormatHint, Data: content.Data})
	})
}

func (c *Core) policyViolation(peer kvm.MachineID) {
	c.emit(kvm.Event{Kind: kvm.EventPolicyViolation, PeerID: peer})
}

// enterControlled puts the core into Controlled by peer (spec.md §4.7.5):
// local input stays observed by the hook but every local event is dropped,
// not forwarded, because hook dispatch routes through onLocalMouse/
// onLocalKeyboard's Controlled branch, which marks events handled without
// sending them.
func (c *Core) enterControlled(peer kvm.MachineID, ce proto.CursorEnter) {
	bounds := c.localBounds()
	edge := kvm.Edge(ce.Edge)
	var entry kvm.Point
	if edge.Horizontal() {
		entry = screen.PointOnEdge(bounds, edge, ce.X)
	} else {
		entry = screen.PointOnEdge(bounds, edge, ce.Y)
	}

	c.synth.MoveAbsolute(entry.X, entry.Y)
	c.state = kvm.Controlled
	c.activePeer = peer
	c.activeEdge = edge
	c.emit(kvm.Event{Kind: kvm.EventControlStateChanged, PeerID: peer, State: kvm.Controlled})
}

// leaveControlled returns the core to Idle from Controlled (spec.md §4.7.5).
func (c *Core) leaveControlled() {
	if c.state != kvm.Controlled {
		return
	}
	peer := c.activePeer
	c.state = kvm.Idle
	c.activePeer = ""
	c.activeEdge = kvm.EdgeNone
	c.emit(kvm.Event{Kind: kvm.EventControlStateChanged, PeerID: peer, State: kvm.Idle})
}

// endRemoteControl returns the core to Idle from Controlling (spec.md
// §4.7.2 step 7, §4.6 "Release"): restores the system cursor, places it at
// releaseNormalizedPos along the entry edge, tells the peer to leave
// Controlled, and clears all Controlling-only state.
func (c *Core) endRemoteControl(releaseNormalizedPos float32) {
	if c.state != kvm.Controlling {
		return
	}
	peer := c.activePeer
	edge := c.activeEdge
	conn := c.connections[peer]

	leave := proto.CursorLeave{Edge: uint8(edge.Opposite())}
	if edge.Horizontal() {
		leave.X = releaseNormalizedPos
	} else {
		leave.Y = releaseNormalizedPos
	}
	c.sendTo(conn, func(ts int64) ([]byte, error) { return proto.EncodeCursorLeave(ts, leave) })

	bounds := c.localBounds()
	releasePoint := screen.PointOnEdge(bounds, edge, releaseNormalizedPos)
	c.synth.RestoreSystemCursor()
	c.synth.MoveAbsolute(releasePoint.X, releasePoint.Y)

	c.state = kvm.Idle
	c.activePeer = ""
	c.activeEdge = kvm.EdgeNone
	c.virtual = virtualCursor{}
	c.cap = nil
	c.velocity = velocityTracker{}
	c.emit(kvm.Event{Kind: kvm.EventControlStateChanged, PeerID: peer, State: kvm.Idle})
}

// broadcastClipboard implements spec.md §4.7.6's fan-out: reads the local
// clipboard once and sends it to every live connection, skipping the send
// this cycle if the change was itself caused by an inbound Clipboard
// message (ignoreClip one-shot guard, spec.md §4.7.6 "avoid echoing a
// clipboard update back to the peer that just sent it").
func (c *Core) broadcastClipboard() {
	if !c.cfg.Clipboard.Enabled || c.clipboard == nil {
		return
	}
	if c.ignoreClip {
		c.ignoreClip = false
		return
	}
	content, ok := c.clipboard.ReadContent()
	if !ok {
		return
	}
	payload := proto.Clipboard{ContentType: content.Type, FormatHint: content.FormatHint, Data: content.Data}
	for _, conn := range c.connections {
		c.sendTo(conn, func(ts int64) ([]byte, error) { return proto.EncodeClipboard(ts, payload) })
	}
}

// receiveClipboard applies an inbound clipboard payload locally, guarding
// the next local-change notification so it is not echoed straight back.
func (c *Core) receiveClipboard(payload proto.Clipboard) {
	if c.clipboard == nil {
		return
	}
	c.ignoreClip = true
	c.clipboard.WriteContent(platform.ClipboardContent{Type: payload.ContentType, Data: payload.Data, FormatHint: payload.FormatHint})
}

// PeerStats is a point-in-time snapshot of one connected peer, the
// supplemented health/stats surface (spec.md's added observability note
// under §6).
type PeerStats struct {
	PeerID       kvm.MachineID
	PeerName     string
	ScreenWidth  int
	ScreenHeight int
}

// Stats returns the most recently refreshed peer snapshot. Safe to call
// from any goroutine.
func (c *Core) Stats() []PeerStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	out := make([]PeerStats, len(c.stats))
	copy(out, c.stats)
	return out
}

func (c *Core) refreshStats() {
	snapshot := make([]PeerStats, 0, len(c.connections))
	for id, conn := range c.connections {
		snapshot = append(snapshot, PeerStats{
			PeerID:       id,
			PeerName:     conn.PeerName,
			ScreenWidth:  conn.PeerScreenWidth,
			ScreenHeight: conn.PeerScreenHeight,
		})
	}
	c.statsMu.Lock()
	c.stats = snapshot
	c.statsMu.Unlock()
}
