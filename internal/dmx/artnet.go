// Package dmx implements the Art-Net UDP listener and the DMX-channel-group
// to motor-intent translation.
package dmx

import (
	"encoding/binary"
	"errors"
)

// ArtNetPort is the default UDP port Art-Net nodes listen on.
const ArtNetPort = 6454

var artNetHeader = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

// OpDMX is the Art-Net opcode for an ArtDmx packet (little-endian on the
// wire).
const OpDMX = 0x5000

// ErrNotArtDMX is returned by ParsePacket for any datagram that is not a
// well-formed ArtDmx packet (wrong magic, wrong opcode, or too short to
// hold its own length field). Callers drop such packets silently.
var ErrNotArtDMX = errors.New("dmx: not an ArtDmx packet")

// Packet is a validated Art-Net ArtDmx datagram.
type Packet struct {
	Universe uint16
	Data     []byte // 1..512 DMX channel values
}

// ParsePacket validates the Art-Net envelope (magic, opcode) and extracts
// the universe and DMX payload. It does not filter by universe; callers
// compare Packet.Universe against the configured one themselves.
func ParsePacket(raw []byte) (Packet, error) {
	if len(raw) < 18 {
		return Packet{}, ErrNotArtDMX
	}
	var magic [8]byte
	copy(magic[:], raw[:8])
	if magic != artNetHeader {
		return Packet{}, ErrNotArtDMX
	}
	opcode := binary.LittleEndian.Uint16(raw[8:10])
	if opcode != OpDMX {
		return Packet{}, ErrNotArtDMX
	}
	universe := binary.LittleEndian.Uint16(raw[14:16])
	length := binary.BigEndian.Uint16(raw[16:18])

	end := 18 + int(length)
	if end > len(raw) {
		end = len(raw)
	}
	data := raw[18:end]
	if len(data) == 0 || len(data) > 512 {
		return Packet{}, ErrNotArtDMX
	}

	return Packet{Universe: universe, Data: data}, nil
}
