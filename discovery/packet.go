// Package discovery implements the UDP presence beacon (spec.md §4.2):
// periodic broadcast of a presence datagram, concurrent receive, and
// freshness tracking of discovered peers.
//
// The bound-socket-guarded-by-a-mutex-with-a-close-signal shape is
// grounded on _examples/other_examples's R2Northstar-Atlas pkg/nspkt
// Listener (conn/closing/serve fields, Close() that closes then waits for
// Serve to return); the datagram itself is not that project's encrypted
// connectionless packet, just a plain length-prefixed record using the
// same field-encoding helpers as package wire.
package discovery

import (
	"encoding/binary"

	"github.com/badu/kvm"
	"github.com/badu/kvm/wire"
)

const (
	discoveryMagic = "MSDISC"

	// DiscoveryVersion is the only datagram version this codec understands.
	DiscoveryVersion uint8 = 0x01
)

// Packet is one presence datagram (spec.md §4.1 "Discovery datagram").
type Packet struct {
	MachineID    kvm.MachineID
	MachineName  string
	ListenPort   int32
	ScreenWidth  int32
	ScreenHeight int32
}

// Encode appends the wire form of p to dst and returns the result.
func Encode(dst []byte, p Packet) ([]byte, error) {
	dst = append(dst, discoveryMagic...)
	dst = append(dst, DiscoveryVersion)
	var err error
	dst, err = wire.PutString(dst, string(p.MachineID))
	if err != nil {
		return nil, err
	}
	dst, err = wire.PutString(dst, p.MachineName)
	if err != nil {
		return nil, err
	}
	dst = appendInt32(dst, p.ListenPort)
	dst = appendInt32(dst, p.ScreenWidth)
	dst = appendInt32(dst, p.ScreenHeight)
	return dst, nil
}

// Decode parses a presence datagram. It returns kvm.ErrInvalidMagic for
// anything not starting with the discovery magic, and
// kvm.ErrUnsupportedVersion for any version byte other than
// DiscoveryVersion; both cause the caller to discard the datagram
// (spec.md §4.2 "parse failures discard the datagram").
func Decode(buf []byte) (Packet, error) {
	if len(buf) < len(discoveryMagic)+1 || string(buf[:len(discoveryMagic)]) != discoveryMagic {
		return Packet{}, kvm.ErrInvalidMagic
	}
	off := len(discoveryMagic)
	if buf[off] != DiscoveryVersion {
		return Packet{}, kvm.ErrUnsupportedVersion
	}
	off++

	id, n, err := wire.GetString(buf[off:])
	if err != nil {
		return Packet{}, err
	}
	off += n

	name, n, err := wire.GetString(buf[off:])
	if err != nil {
		return Packet{}, err
	}
	off += n

	if len(buf[off:]) < 12 {
		return Packet{}, kvm.ErrTruncatedPayload
	}
	listenPort := readInt32(buf[off:])
	off += 4
	width := readInt32(buf[off:])
	off += 4
	height := readInt32(buf[off:])

	return Packet{
		MachineID:    kvm.MachineID(id),
		MachineName:  name,
		ListenPort:   listenPort,
		ScreenWidth:  width,
		ScreenHeight: height,
	}, nil
}

func appendInt32(dst []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(dst, b[:]...)
}

func readInt32(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf))
}
