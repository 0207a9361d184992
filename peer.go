package kvm

import "time"

// MachineID is a stable, opaque identifier for one host: 32 hex characters,
// assigned once on first run and persisted by an external collaborator
// (spec.md §3). The core never generates it; beyond equality checks, the
// only inspection is the format check in Valid.
type MachineID string

// Valid reports whether id looks like a well-formed machine identifier.
func (id MachineID) Valid() bool {
	if len(id) != 32 {
		return false
	}
	for _, r := range string(id) {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// PeerConfig is one configured peer, matching the `Peers[]` entries of the
// persisted configuration document (spec.md §6).
type PeerConfig struct {
	ID      MachineID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Port    int       `json:"port"`
	Edge    Edge      `json:"position"` // Position in spec.md's vocabulary; named Edge here to reuse the Edge type directly
	OffsetX int       `json:"offsetX"`  // reserved, not consumed by the core
	OffsetY int       `json:"offsetY"`  // reserved, not consumed by the core
}

// Peer is the live, in-memory peer record (spec.md §3): configuration plus
// whatever has been learned about it at runtime.
type Peer struct {
	Config PeerConfig

	// ScreenWidth/ScreenHeight are the dimensions the peer last reported
	// in its discovery datagram.
	ScreenWidth  int
	ScreenHeight int

	// LastSeen is maintained only for discovery-originated records; it is
	// the zero Time for explicitly configured peers that have never been
	// observed on the wire.
	LastSeen time.Time

	// Discovered marks a record created by the discovery service rather
	// than by explicit configuration. Discovered-only records are subject
	// to staleness eviction (spec.md §3, 30s timeout); configured records
	// are not evicted by staleness alone.
	Discovered bool
}

// ID returns the peer's machine identifier.
func (p *Peer) ID() MachineID {
	return p.Config.ID
}

// Bounds returns the peer's last-known remote screen as a Rect anchored at
// the origin, for clamping and virtual-cursor math (spec.md §4.7.2).
func (p *Peer) Bounds() Rect {
	return NewRect(0, 0, p.ScreenWidth, p.ScreenHeight)
}
