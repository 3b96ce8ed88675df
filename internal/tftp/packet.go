// Package tftp implements the Trivial File Transfer Protocol (RFC 1350):
// a lockstep client and a concurrent server.
package tftp

import (
	"encoding/binary"
	"fmt"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// Opcode identifies a TFTP packet's type.
type Opcode uint16

const (
	OpRRQ   Opcode = 1
	OpWRQ   Opcode = 2
	OpDATA  Opcode = 3
	OpACK   Opcode = 4
	OpERROR Opcode = 5
)

// Mode selects how file data is transferred.
type Mode string

const (
	ModeOctet    Mode = "octet"
	ModeNetASCII Mode = "netascii"
)

// SegmentSize is the maximum payload of one DATA packet; any DATA packet
// carrying fewer bytes than this signals the end of the transfer.
const SegmentSize = 512

// DefaultPort is the standard TFTP service port.
const DefaultPort = 69

// ErrorCode is one of the standard TFTP error codes (RFC 1350 §5).
type ErrorCode uint16

const (
	ErrNotDefined ErrorCode = iota
	ErrFileNotFound
	ErrAccessViolation
	ErrDiskFull
	ErrIllegalOperation
	ErrUnknownTID
	ErrFileExists
	ErrNoSuchUser
)

// RequestPacket is a parsed RRQ or WRQ: opcode distinguishes which.
type RequestPacket struct {
	Opcode   Opcode
	Filename string
	Mode     Mode
}

// DataPacket carries one block of file data.
type DataPacket struct {
	Block uint16
	Data  []byte
}

// AckPacket acknowledges receipt of a DataPacket.
type AckPacket struct {
	Block uint16
}

// ErrorPacket reports a protocol or filesystem-level failure and
// terminates the transfer it's sent on.
type ErrorPacket struct {
	Code    ErrorCode
	Message string
}

// MarshalRequest encodes an RRQ/WRQ packet.
func MarshalRequest(p *RequestPacket) []byte {
	buf := make([]byte, 2, 2+len(p.Filename)+1+len(p.Mode)+1)
	binary.BigEndian.PutUint16(buf, uint16(p.Opcode))
	buf = append(buf, p.Filename...)
	buf = append(buf, 0)
	buf = append(buf, string(p.Mode)...)
	buf = append(buf, 0)
	return buf
}

// MarshalData encodes a DATA packet.
func MarshalData(p *DataPacket) []byte {
	buf := make([]byte, 4+len(p.Data))
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpDATA))
	binary.BigEndian.PutUint16(buf[2:4], p.Block)
	copy(buf[4:], p.Data)
	return buf
}

// MarshalAck encodes an ACK packet.
func MarshalAck(p *AckPacket) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpACK))
	binary.BigEndian.PutUint16(buf[2:4], p.Block)
	return buf
}

// MarshalError encodes an ERROR packet.
func MarshalError(p *ErrorPacket) []byte {
	buf := make([]byte, 4, 4+len(p.Message)+1)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpERROR))
	binary.BigEndian.PutUint16(buf[2:4], uint16(p.Code))
	buf = append(buf, p.Message...)
	buf = append(buf, 0)
	return buf
}

// AnyPacket is the result of Unmarshal: exactly one of the fields is
// non-nil, selected by Opcode.
type AnyPacket struct {
	Opcode  Opcode
	Request *RequestPacket
	Data    *DataPacket
	Ack     *AckPacket
	Error   *ErrorPacket
}

// Unmarshal decodes a raw TFTP datagram into whichever packet type its
// opcode names.
func Unmarshal(data []byte) (*AnyPacket, error) {
	if len(data) < 2 {
		return nil, neterr.New(neterr.Protocol, "short TFTP packet", nil)
	}
	op := Opcode(binary.BigEndian.Uint16(data[0:2]))
	switch op {
	case OpRRQ, OpWRQ:
		return unmarshalRequest(op, data)
	case OpDATA:
		return unmarshalData(data)
	case OpACK:
		return unmarshalAck(data)
	case OpERROR:
		return unmarshalErrorPacket(data)
	default:
		return nil, neterr.New(neterr.Protocol, fmt.Sprintf("unknown TFTP opcode %d", op), nil)
	}
}

func unmarshalRequest(op Opcode, data []byte) (*AnyPacket, error) {
	filename, rest, err := readCString(data[2:])
	if err != nil {
		return nil, err
	}
	mode, _, err := readCString(rest)
	if err != nil {
		return nil, err
	}
	return &AnyPacket{Opcode: op, Request: &RequestPacket{Opcode: op, Filename: filename, Mode: Mode(mode)}}, nil
}

func unmarshalData(data []byte) (*AnyPacket, error) {
	if len(data) < 4 {
		return nil, neterr.New(neterr.Protocol, "short DATA packet", nil)
	}
	block := binary.BigEndian.Uint16(data[2:4])
	payload := make([]byte, len(data)-4)
	copy(payload, data[4:])
	return &AnyPacket{Opcode: OpDATA, Data: &DataPacket{Block: block, Data: payload}}, nil
}

func unmarshalAck(data []byte) (*AnyPacket, error) {
	if len(data) < 4 {
		return nil, neterr.New(neterr.Protocol, "short ACK packet", nil)
	}
	block := binary.BigEndian.Uint16(data[2:4])
	return &AnyPacket{Opcode: OpACK, Ack: &AckPacket{Block: block}}, nil
}

func unmarshalErrorPacket(data []byte) (*AnyPacket, error) {
	if len(data) < 4 {
		return nil, neterr.New(neterr.Protocol, "short ERROR packet", nil)
	}
	code := ErrorCode(binary.BigEndian.Uint16(data[2:4]))
	msg, _, err := readCString(data[4:])
	if err != nil {
		return nil, err
	}
	return &AnyPacket{Opcode: OpERROR, Error: &ErrorPacket{Code: code, Message: msg}}, nil
}

func readCString(data []byte) (string, []byte, error) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), data[i+1:], nil
		}
	}
	return "", nil, neterr.New(neterr.Protocol, "TFTP packet missing NUL terminator", nil)
}
