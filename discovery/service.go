package discovery

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/badu/kvm"
)

// BroadcastInterval is how often a presence datagram is sent (spec.md §5
// "broadcast interval 5 s").
const BroadcastInterval = 5 * time.Second

// StaleTimeout is how long a discovered peer record survives without a
// fresh datagram before it is evicted (spec.md §3 "staleness timeout
// (30 s without presence datagram)").
const StaleTimeout = 30 * time.Second

const maxDatagramSize = 2048

// Self describes the local machine's own presence datagram contents.
type Self struct {
	ID           kvm.MachineID
	Name         string
	ListenPort   int32
	ScreenWidth  int32
	ScreenHeight int32
}

// Service runs the UDP presence beacon: it periodically broadcasts Self's
// datagram, listens for peers' datagrams, and tracks their freshness.
// Emitted events (PeerDiscovered/PeerLost) are delivered to the events
// channel supplied at construction.
type Service struct {
	self   Self
	port   int
	log    zerolog.Logger
	events chan<- kvm.Event

	mu      sync.Mutex
	conn    *net.UDPConn
	closing bool
	done    chan struct{}

	peers map[kvm.MachineID]*kvm.Peer
}

// New creates a Service bound to no socket yet; call Run to start it.
func New(self Self, port int, events chan<- kvm.Event, log zerolog.Logger) *Service {
	return &Service{
		self:   self,
		port:   port,
		events: events,
		log:    log,
		peers:  make(map[kvm.MachineID]*kvm.Peer),
	}
}

// Run binds the UDP socket and blocks, broadcasting and receiving until
// ctx is cancelled or Close is called. It is meant to be run in its own
// goroutine (spec.md §5 "a discovery context (timer-driven broadcast +
// blocking receive)").
func (s *Service) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: s.port})
	if err != nil {
		return &kvm.TransportError{Op: "discovery-listen", Err: err}
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.closing = false
	s.done = done
	s.mu.Unlock()

	defer close(done)
	defer conn.Close()

	recvErrs := make(chan error, 1)
	go s.receiveLoop(conn, recvErrs)

	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	s.broadcastOnce(conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-recvErrs:
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return &kvm.TransportError{Op: "discovery-receive", Err: err}
		case <-ticker.C:
			s.broadcastOnce(conn)
			s.evictStale()
		}
	}
}

// Close unblocks Run by closing the bound socket.
func (s *Service) Close() {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.conn.Close()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Service) receiveLoop(conn *net.UDPConn, errs chan<- error) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			errs <- err
			return
		}
		pkt, err := Decode(buf[:n])
		if err != nil {
			s.log.Debug().Err(err).Msg("discarding malformed discovery datagram")
			continue
		}
		if pkt.MachineID == s.self.ID {
			continue
		}
		s.upsert(pkt)
	}
}

func (s *Service) upsert(pkt Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.peers[pkt.MachineID]
	now := time.Now()
	if !found {
		s.peers[pkt.MachineID] = &kvm.Peer{
			Config: kvm.PeerConfig{
				ID:   pkt.MachineID,
				Name: pkt.MachineName,
				Port: int(pkt.ListenPort),
			},
			ScreenWidth:  int(pkt.ScreenWidth),
			ScreenHeight: int(pkt.ScreenHeight),
			LastSeen:     now,
			Discovered:   true,
		}
		s.emit(kvm.Event{Kind: kvm.EventPeerDiscovered, PeerID: pkt.MachineID})
		return
	}

	existing.LastSeen = now
	existing.ScreenWidth = int(pkt.ScreenWidth)
	existing.ScreenHeight = int(pkt.ScreenHeight)
	existing.Config.Name = pkt.MachineName
	existing.Config.Port = int(pkt.ListenPort)
}

func (s *Service) evictStale() {
	cutoff := time.Now().Add(-StaleTimeout)

	s.mu.Lock()
	var lost []kvm.MachineID
	for id, p := range s.peers {
		if p.LastSeen.Before(cutoff) {
			lost = append(lost, id)
			delete(s.peers, id)
		}
	}
	s.mu.Unlock()

	for _, id := range lost {
		s.emit(kvm.Event{Kind: kvm.EventPeerLost, PeerID: id})
	}
}

func (s *Service) emit(ev kvm.Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn().Str("kind", ev.Kind.String()).Msg("discovery event dropped, events channel full")
	}
}

// Peers returns a snapshot of currently known discovered peer records.
func (s *Service) Peers() []kvm.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]kvm.Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, *p)
	}
	return out
}

func (s *Service) broadcastOnce(conn *net.UDPConn) {
	buf, err := Encode(nil, Packet{
		MachineID:    s.self.ID,
		MachineName:  s.self.Name,
		ListenPort:   s.self.ListenPort,
		ScreenWidth:  s.self.ScreenWidth,
		ScreenHeight: s.self.ScreenHeight,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode discovery datagram")
		return
	}

	targets := broadcastAddresses(s.port)
	if len(targets) == 0 {
		targets = []string{"255.255.255.255"}
	}
	for _, addr := range targets {
		udpAddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(addr, strconv.Itoa(s.port)))
		if err != nil {
			continue
		}
		if _, err := conn.WriteToUDP(buf, udpAddr); err != nil {
			s.log.Debug().Err(err).Str("addr", addr).Msg("discovery broadcast send failed, will retry next tick")
		}
	}
}

// broadcastAddresses enumerates every non-loopback, operational IPv4
// interface and computes its broadcast address from its mask (spec.md
// §4.2). Interface enumeration is done with the standard library: no
// library in the example pack offers a portable cross-OS broadcast
// address computation, and golang.org/x/sys's ioctl-level interface
// listing is not itself portable across the three target OSes, so
// reimplementing it here would not reduce to a single shared code path.
func broadcastAddresses(port int) []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			bcast := make(net.IP, len(ip4))
			for i := range ip4 {
				bcast[i] = ip4[i] | ^ipNet.Mask[i]
			}
			out = append(out, bcast.String())
		}
	}
	return out
}
