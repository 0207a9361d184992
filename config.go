package kvm

// Config is the structured value the core receives at construction and
// never reads from disk itself (spec.md §6: "The core receives a
// structured config value at construction and never reads files itself").
// JSON tags mirror the persisted document an external collaborator owns.
type Config struct {
	MachineID     MachineID       `json:"machineId"`
	MachineName   string          `json:"machineName"`
	LocalPort     int             `json:"localPort"`
	DiscoveryPort int             `json:"discoveryPort"`
	Enabled       bool            `json:"enabled"`
	Peers         []PeerConfig    `json:"peers"`
	Clipboard     ClipboardConfig `json:"clipboard"`
}

// ClipboardConfig toggles clipboard synchronization (spec.md §4.7.6).
type ClipboardConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultLocalPort is the default TCP service port (spec.md §6).
const DefaultLocalPort = 24800

// DefaultDiscoveryPort is the default UDP discovery port (spec.md §6).
const DefaultDiscoveryPort = 24801

// PeerAt returns the first configured peer occupying the given edge, and
// whether one was found. Spec.md §3's invariant ("at most one configured
// peer occupies each of the four positions... the first configured peer at
// an edge wins") makes this a simple linear scan in declaration order.
func (c *Config) PeerAt(edge Edge) (PeerConfig, bool) {
	for _, p := range c.Peers {
		if p.Edge == edge {
			return p, true
		}
	}
	return PeerConfig{}, false
}
