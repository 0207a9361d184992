package control

import (
	"time"

	"github.com/badu/kvm"
	"github.com/badu/kvm/capture"
	"github.com/badu/kvm/netconn"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
	"github.com/badu/kvm/screen"
)

func (c *Core) onLocalMouse(m platform.MouseObserved) {
	switch c.state {
	case kvm.Idle:
		c.idleMouseMove(m)
	case kvm.Controlling:
		c.controllingMouseEvent(m)
	case kvm.Controlled:
		setHandled(m.SetHandled, true)
	}
}

func (c *Core) onLocalKeyboard(k platform.KeyboardObserved) {
	switch c.state {
	case kvm.Controlling:
		conn := c.connections[c.activePeer]
		c.sendTo(conn, func(ts int64) ([]byte, error) {
			return proto.EncodeKeyboard(ts, proto.Keyboard{
				KeyCode:    k.VKey,
				ScanCode:   k.ScanCode,
				EventType:  k.EventType,
				IsExtended: k.Extended,
			})
		})
		setHandled(k.SetHandled, true)
	case kvm.Controlled:
		setHandled(k.SetHandled, true)
	}
	// Idle: pass through, untouched.
}

// idleMouseMove implements spec.md §4.7.2's Idle-state move handling:
// edge detection, cooldown, peer lookup and the transition into
// Controlling.
func (c *Core) idleMouseMove(m platform.MouseObserved) {
	if m.EventType != proto.MouseMove {
		return
	}
	now := m.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	if now.Before(c.cooldown) {
		return
	}

	bounds := c.localBounds()
	hit, ok := screen.EdgeAt(bounds, m.X, m.Y, c.edgeThreshold)
	if !ok {
		return
	}

	peerCfg, ok := c.cfg.PeerAt(hit.Edge)
	if !ok {
		return
	}
	conn, ok := c.connections[peerCfg.ID]
	if !ok {
		return
	}

	c.beginControlling(peerCfg, conn, hit, bounds)
	setHandled(m.SetHandled, true)
}

func (c *Core) beginControlling(peerCfg kvm.PeerConfig, conn *netconn.Connection, hit kvm.EdgeHit, bounds kvm.Rect) {
	anchor := bounds.Center()
	wr, hr := conn.PeerScreenWidth, conn.PeerScreenHeight

	var remote kvm.Point
	switch peerCfg.Edge {
	case kvm.EdgeRight:
		remote = kvm.NewPoint(0, int(hit.NormalizedPos*float32(hr)))
	case kvm.EdgeLeft:
		remote = kvm.NewPoint(wr-1, int(hit.NormalizedPos*float32(hr)))
	case kvm.EdgeBottom:
		remote = kvm.NewPoint(int(hit.NormalizedPos*float32(wr)), 0)
	case kvm.EdgeTop:
		remote = kvm.NewPoint(int(hit.NormalizedPos*float32(wr)), hr-1)
	}

	c.synth.HideSystemCursor()
	c.synth.MoveAbsolute(anchor.X, anchor.Y)

	c.cap = capture.Begin(anchor)
	c.virtual = virtualCursor{remote: remote}
	c.velocity = velocityTracker{}
	c.state = kvm.Controlling
	c.activePeer = peerCfg.ID
	c.activeEdge = peerCfg.Edge

	enter := proto.CursorEnter{
		X:    float32(remote.X) / float32(kvm.Max(wr, 1)),
		Y:    float32(remote.Y) / float32(kvm.Max(hr, 1)),
		Edge: uint8(peerCfg.Edge.Opposite()),
	}
	c.sendTo(conn, func(ts int64) ([]byte, error) { return proto.EncodeCursorEnter(ts, enter) })
	c.emit(kvm.Event{Kind: kvm.EventControlStateChanged, PeerID: peerCfg.ID, State: kvm.Controlling})
}

// controllingMouseEvent implements spec.md §4.7.2's Controlling-state
// move handling plus button/wheel forwarding.
func (c *Core) controllingMouseEvent(m platform.MouseObserved) {
	conn := c.connections[c.activePeer]
	if conn == nil {
		c.endRemoteControl(0.5)
		return
	}

	if m.EventType != proto.MouseMove {
		p := remoteBoundsOf(conn).Clamp(c.virtual.remote)
		c.sendTo(conn, func(ts int64) ([]byte, error) {
			return proto.EncodeMouse(ts, proto.Mouse{X: int32(p.X), Y: int32(p.Y), EventType: m.EventType, WheelDelta: m.WheelDelta})
		})
		setHandled(m.SetHandled, true)
		return
	}

	localBounds := c.localBounds()
	dx, dy, warpEcho := c.cap.Observe(m.X, m.Y, localBounds.Width(), localBounds.Height())
	setHandled(m.SetHandled, true)

	if dx == 0 && dy == 0 {
		return
	}
	if warpEcho {
		return
	}

	now := m.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	c.velocity.update(dx, dy, now)

	wr, hr := conn.PeerScreenWidth, conn.PeerScreenHeight
	c.virtual.remote.X += dx
	c.virtual.remote.Y += dy

	if !c.virtual.movedIn && crossedEntryDeadband(c.activeEdge, c.virtual.remote, wr, hr) {
		c.virtual.movedIn = true
	}

	if c.virtual.movedIn && exitedOppositeEdge(c.activeEdge, c.virtual.remote, wr, hr) {
		norm := releaseNormalized(c.activeEdge, c.virtual.remote, wr, hr)
		c.cooldown = now.Add(ReturnCooldown)
		c.endRemoteControl(norm)
		return
	}

	bounded := remoteBoundsOf(conn).Clamp(c.virtual.remote)
	c.virtual.remote = bounded

	msg := proto.Mouse{X: int32(bounded.X), Y: int32(bounded.Y), EventType: proto.MouseMove}
	if c.velocity.shouldSend(now) {
		msg.HasVelocity = true
		msg.VelocityX = c.velocity.vx
		msg.VelocityY = c.velocity.vy
	}
	c.sendTo(conn, func(ts int64) ([]byte, error) { return proto.EncodeMouse(ts, msg) })

	// Warp-back (spec.md §4.6 "warp-only"): re-pin the physical pointer at
	// the anchor after every contributing move, and measure the next
	// observed move from the anchor, so the user can keep accumulating
	// relative motion without ever reaching the real screen edge. The
	// synthetic move this produces lands on the anchor and yields a zero
	// delta, dropped above; if the OS rounds the landing point, the echo
	// contributes only that rounding. capture.Observe's magnitude guard
	// drops any delta too large to be user motion.
	c.synth.MoveAbsolute(c.cap.Anchor.X, c.cap.Anchor.Y)
	c.cap.LastSeen = c.cap.Anchor
}

func remoteBoundsOf(conn *netconn.Connection) kvm.Rect {
	return kvm.NewRect(0, 0, conn.PeerScreenWidth, conn.PeerScreenHeight)
}

// crossedEntryDeadband reports whether the virtual cursor has travelled
// at least EntryDeadbandFraction of the remote screen dimension away
// from the entry edge along the entry axis (spec.md §4.7.2 step 6).
func crossedEntryDeadband(edge kvm.Edge, remote kvm.Point, wr, hr int) bool {
	switch edge {
	case kvm.EdgeRight: // entry at remote.X == 0
		return remote.X >= int(EntryDeadbandFraction*float32(wr))
	case kvm.EdgeLeft: // entry at remote.X == wr-1
		return remote.X <= (wr-1)-int(EntryDeadbandFraction*float32(wr))
	case kvm.EdgeBottom: // entry at remote.Y == 0
		return remote.Y >= int(EntryDeadbandFraction*float32(hr))
	case kvm.EdgeTop: // entry at remote.Y == hr-1
		return remote.Y <= (hr-1)-int(EntryDeadbandFraction*float32(hr))
	default:
		return false
	}
}

// exitedOppositeEdge reports whether the virtual cursor has crossed the
// remote screen's edge opposite to the peer's configured position
// (spec.md §4.7.2 step 7: "the cursor has exited the remote screen past
// the edge opposite to p.Position").
func exitedOppositeEdge(edge kvm.Edge, remote kvm.Point, wr, hr int) bool {
	switch edge.Opposite() {
	case kvm.EdgeLeft:
		return remote.X < 0
	case kvm.EdgeRight:
		return remote.X > wr-1
	case kvm.EdgeTop:
		return remote.Y < 0
	case kvm.EdgeBottom:
		return remote.Y > hr-1
	default:
		return false
	}
}

// releaseNormalized computes the fraction used to place the returning
// physical cursor (spec.md §4.7.2 step 7: "Y for Left/Right peers, X for
// Top/Bottom peers").
func releaseNormalized(edge kvm.Edge, remote kvm.Point, wr, hr int) float32 {
	if edge.Horizontal() {
		return kvm.Clampf(float32(remote.X) / float32(kvm.Max(wr, 1)))
	}
	return kvm.Clampf(float32(remote.Y) / float32(kvm.Max(hr, 1)))
}

func setHandled(fn func(bool), v bool) {
	if fn != nil {
		fn(v)
	}
}
