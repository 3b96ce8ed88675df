package ntp

import (
	"encoding/binary"
	"fmt"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// PacketSize is the fixed length of an NTPv3 header in bytes.
const PacketSize = 48

// Mode values for the LI|VN|Mode byte's low 3 bits.
const (
	ModeReserved Mode = iota
	ModeSymmetricActive
	ModeSymmetricPassive
	ModeClient
	ModeServer
	ModeBroadcast
)

// Mode is the NTP association mode field.
type Mode uint8

// LeapIndicator values for the LI|VN|Mode byte's top 2 bits.
const (
	LeapNone LeapIndicator = iota
	LeapAddSecond
	LeapDelSecond
	LeapNotSynchronized
)

// LeapIndicator warns of an impending leap second, or flags the server as
// unsynchronized.
type LeapIndicator uint8

// Packet is the 48-byte NTPv3 wire header (RFC 1305 §3.2).
// All multi-byte fields are big-endian.
type Packet struct {
	LeapIndicator  LeapIndicator
	Version        uint8
	Mode           Mode
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      int32  // signed fixed-point 16.16 seconds
	RootDispersion uint32 // unsigned fixed-point 16.16 seconds
	ReferenceID    uint32
	ReferenceTime  Timestamp
	OriginTime     Timestamp // T1
	ReceiveTime    Timestamp // T2
	TransmitTime   Timestamp // T3
}

// Marshal encodes the packet into its 48-byte wire form.
func (p *Packet) Marshal() [PacketSize]byte {
	var buf [PacketSize]byte
	buf[0] = byte(p.LeapIndicator)<<6 | byte(p.Version)<<3 | byte(p.Mode)
	buf[1] = p.Stratum
	buf[2] = byte(p.Poll)
	buf[3] = byte(p.Precision)
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.RootDelay))
	binary.BigEndian.PutUint32(buf[8:12], p.RootDispersion)
	binary.BigEndian.PutUint32(buf[12:16], p.ReferenceID)
	binary.BigEndian.PutUint64(buf[16:24], uint64(p.ReferenceTime))
	binary.BigEndian.PutUint64(buf[24:32], uint64(p.OriginTime))
	binary.BigEndian.PutUint64(buf[32:40], uint64(p.ReceiveTime))
	binary.BigEndian.PutUint64(buf[40:48], uint64(p.TransmitTime))
	return buf
}

// UnmarshalPacket decodes a 48-byte NTPv3 header.
func UnmarshalPacket(data []byte) (*Packet, error) {
	if len(data) < PacketSize {
		return nil, neterr.New(neterr.Protocol, fmt.Sprintf("short NTP packet: %d bytes", len(data)), nil)
	}
	p := &Packet{
		LeapIndicator:  LeapIndicator(data[0] >> 6),
		Version:        (data[0] >> 3) & 0x07,
		Mode:           Mode(data[0] & 0x07),
		Stratum:        data[1],
		Poll:           int8(data[2]),
		Precision:      int8(data[3]),
		RootDelay:      int32(binary.BigEndian.Uint32(data[4:8])),
		RootDispersion: binary.BigEndian.Uint32(data[8:12]),
		ReferenceID:    binary.BigEndian.Uint32(data[12:16]),
		ReferenceTime:  Timestamp(binary.BigEndian.Uint64(data[16:24])),
		OriginTime:     Timestamp(binary.BigEndian.Uint64(data[24:32])),
		ReceiveTime:    Timestamp(binary.BigEndian.Uint64(data[32:40])),
		TransmitTime:   Timestamp(binary.BigEndian.Uint64(data[40:48])),
	}
	return p, nil
}
