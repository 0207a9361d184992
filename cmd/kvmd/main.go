// Command kvmd is the process that wires the control core to a real
// network and host, in badu-term/app's main.go style (a single
// functional-option constructor, one blocking run loop) generalized from
// one terminal engine to the core/discovery/listener trio spec.md §6
// names.
//
// Every OS-specific capability (input hook, input synthesis, screen
// metrics, clipboard) is out of scope per spec.md §1, so this binary
// wires platform's Noop* placeholders; swapping in real per-OS adapters
// is the only change a platform port needs to make here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/badu/kvm"
	"github.com/badu/kvm/control"
	"github.com/badu/kvm/discovery"
	"github.com/badu/kvm/listener"
	"github.com/badu/kvm/logging"
	"github.com/badu/kvm/netconn"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
)

var (
	configPath   = flag.String("config", "kvmd.json", "path to the JSON configuration document")
	debug        = flag.Bool("debug", false, "enable debug-level logging")
	screenWidth  = flag.Int("screen-width", 1920, "local primary screen width in pixels (no OS query backend is wired in this build)")
	screenHeight = flag.Int("screen-height", 1080, "local primary screen height in pixels")
	dialTimeout  = flag.Duration("dial-timeout", 5*time.Second, "timeout for connecting to an explicitly configured peer address")
)

func main() {
	flag.Parse()
	log := logging.Init(os.Stderr, *debug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := platform.StaticScreenMetrics{
		Primary: kvm.NewRect(0, 0, *screenWidth, *screenHeight),
		Virtual: kvm.NewRect(0, 0, *screenWidth, *screenHeight),
	}

	core := control.New(cfg, log, platform.NoopHook{}, platform.NoopSynthesis{}, metrics, platform.NoopClipboard{})
	core.Start(ctx)
	go logCoreEvents(core.Events(), log)

	discoveryEvents := make(chan kvm.Event, 16)
	disco := discovery.New(discovery.Self{
		ID:           cfg.MachineID,
		Name:         cfg.MachineName,
		ListenPort:   int32(cfg.LocalPort),
		ScreenWidth:  int32(*screenWidth),
		ScreenHeight: int32(*screenHeight),
	}, cfg.DiscoveryPort, discoveryEvents, log)
	go logDiscoveryEvents(discoveryEvents, log)

	sink := &acceptSink{core: core, log: log}
	lst := listener.New(cfg.LocalPort, acceptDecider(cfg, *screenWidth, *screenHeight), sink, 0, log)

	runErrs := make(chan error, 2)
	go func() { runErrs <- lst.Run(ctx) }()
	go func() { runErrs <- disco.Run(ctx) }()

	for _, peer := range cfg.Peers {
		if peer.Address == "" {
			continue
		}
		go dialPeer(ctx, cfg, peer, core, log)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-runErrs:
		if err != nil {
			log.Error().Err(err).Msg("a background service stopped unexpectedly")
		}
		cancel()
	}

	lst.Close()
	disco.Close()
	core.Shutdown()
}

func loadConfig(path string) (kvm.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return kvm.Config{}, err
	}
	defer f.Close()

	var cfg kvm.Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return kvm.Config{}, err
	}
	if cfg.LocalPort == 0 {
		cfg.LocalPort = kvm.DefaultLocalPort
	}
	if cfg.DiscoveryPort == 0 {
		cfg.DiscoveryPort = kvm.DefaultDiscoveryPort
	}
	return cfg, nil
}

// acceptDecider builds the Decider the listener consults for every
// inbound handshake (spec.md §4.4): only a configured peer's machine ID
// is accepted.
func acceptDecider(cfg kvm.Config, width, height int) listener.Decider {
	return func(remote proto.Handshake) proto.HandshakeAck {
		if !knownPeer(cfg, kvm.MachineID(remote.MachineID)) {
			return proto.HandshakeAck{Accepted: false, RejectReason: "machine id not configured as a peer"}
		}
		return proto.HandshakeAck{
			Accepted:     true,
			MachineID:    string(cfg.MachineID),
			MachineName:  cfg.MachineName,
			ScreenWidth:  int32(width),
			ScreenHeight: int32(height),
		}
	}
}

func knownPeer(cfg kvm.Config, id kvm.MachineID) bool {
	for _, p := range cfg.Peers {
		if p.ID == id {
			return true
		}
	}
	return false
}

// acceptSink adapts listener.Sink into the control core's HandleConnected
// entry point (spec.md §4.4 "on success it hands the resulting connection
// to the control core via PeerConnected").
type acceptSink struct {
	core *control.Core
	log  zerolog.Logger
}

func (s *acceptSink) OnAccepted(conn *netconn.Connection, remote proto.Handshake) {
	s.log.Info().Str("peer", remote.MachineID).Str("name", remote.MachineName).Msg("accepted inbound peer connection")
	s.core.HandleConnected(conn)
}

func (s *acceptSink) OnAcceptError(err error) {
	s.log.Warn().Err(err).Msg("inbound handshake failed")
}

// dialPeer opens the initiator side of the handshake to one explicitly
// configured peer address (spec.md §4.3 "Initiator") and hands the
// resulting connection to the core exactly like an inbound one, retrying
// on failure until ctx is cancelled; a peer that rejects the handshake is
// not dialed again (spec.md §4.4's acceptor-side retry
// tolerance, mirrored here for the dial side since a peer may not be
// listening yet at startup).
func dialPeer(ctx context.Context, cfg kvm.Config, peer kvm.PeerConfig, core *control.Core, log zerolog.Logger) {
	local := proto.Handshake{
		MachineID:   string(cfg.MachineID),
		MachineName: cfg.MachineName,
	}
	addr := net.JoinHostPort(peer.Address, strconv.Itoa(peer.Port))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, ack, err := netconn.Dial(ctx, addr, local, *dialTimeout, log)
		var rejected *kvm.HandshakeRejectedError
		if err != nil && !errors.As(err, &rejected) {
			log.Debug().Err(err).Str("addr", addr).Msg("dial to configured peer failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(*dialTimeout):
			}
			continue
		}
		if !ack.Accepted {
			log.Warn().Str("addr", addr).Str("reason", ack.RejectReason).Msg("configured peer rejected our handshake")
			return
		}
		log.Info().Str("peer", ack.MachineID).Str("addr", addr).Msg("connected to configured peer")
		core.HandleConnected(conn)
		return
	}
}

func logCoreEvents(events <-chan kvm.Event, log zerolog.Logger) {
	for ev := range events {
		le := log.Info()
		if ev.Err != nil {
			le = log.Warn().Err(ev.Err)
		}
		le.Str("kind", ev.Kind.String()).Str("peer", string(ev.PeerID)).Str("state", ev.State.String()).Msg("control event")
	}
}

func logDiscoveryEvents(events <-chan kvm.Event, log zerolog.Logger) {
	for ev := range events {
		log.Info().Str("kind", ev.Kind.String()).Str("peer", string(ev.PeerID)).Msg("discovery event")
	}
}
