// Package encoding implements the acoustic mesh wire framing, CRC-32
// integrity check, fragmentation/reassembly, and the majority-vote FEC
// with block interleaving described for the encoding layer.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MsgType identifies the one-byte message type field at frame offset 2.
type MsgType byte

const (
	MsgBeacon      MsgType = 0x01
	MsgData        MsgType = 0x02
	MsgAck         MsgType = 0x03
	MsgNack        MsgType = 0x04
	MsgDiscovery   MsgType = 0x05
	MsgSlotRequest MsgType = 0x06
	MsgSlotGrant   MsgType = 0x07
	// 0x08-0x0A reserved for key exchange/challenge/response, not part of core.
	MsgStreamStart MsgType = 0x0B
	MsgStreamData  MsgType = 0x0C
	MsgStreamEnd   MsgType = 0x0D
)

const (
	magicHi = 0xAC
	magicLo = 0x4D

	// FlagMoreFragments (bit 7) indicates additional fragments follow.
	FlagMoreFragments byte = 0x80
	// FlagFirstFragment (bit 6) marks the first fragment of a split payload.
	FlagFirstFragment byte = 0x40

	headerSize  = 8
	crcSize     = 4
	frameMinLen = headerSize + crcSize

	// MaxPayloadSize is the largest payload a single frame can carry.
	MaxPayloadSize = 256
)

var (
	ErrTooShort    = errors.New("encoding: frame too short")
	ErrBadMagic    = errors.New("encoding: bad magic bytes")
	ErrTruncated   = errors.New("encoding: frame truncated")
	ErrCrcMismatch = errors.New("encoding: crc mismatch")
	ErrPayloadSize = errors.New("encoding: payload exceeds max size")
)

// Frame is the parsed form of an on-wire acoustic mesh frame.
type Frame struct {
	Type     MsgType
	Flags    byte
	Sequence uint16
	Payload  []byte
}

// MoreFragments reports whether bit 7 of Flags is set.
func (f Frame) MoreFragments() bool { return f.Flags&FlagMoreFragments != 0 }

// FirstFragment reports whether bit 6 of Flags is set.
func (f Frame) FirstFragment() bool { return f.Flags&FlagFirstFragment != 0 }

// CreateFrame builds the on-wire byte representation of a frame.
func CreateFrame(msgType MsgType, flags byte, sequence uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadSize, len(payload), MaxPayloadSize)
	}

	buf := make([]byte, headerSize+len(payload)+crcSize)
	buf[0] = magicHi
	buf[1] = magicLo
	buf[2] = byte(msgType)
	buf[3] = flags
	binary.BigEndian.PutUint16(buf[4:6], sequence)
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(payload)))
	copy(buf[headerSize:], payload)

	crc := CRC32(buf[:headerSize+len(payload)])
	binary.BigEndian.PutUint32(buf[headerSize+len(payload):], crc)

	return buf, nil
}

// ParseFrame parses and verifies an on-wire frame.
func ParseFrame(buf []byte) (Frame, error) {
	if len(buf) < frameMinLen {
		return Frame{}, ErrTooShort
	}
	if buf[0] != magicHi || buf[1] != magicLo {
		return Frame{}, ErrBadMagic
	}

	length := int(binary.BigEndian.Uint16(buf[6:8]))
	total := headerSize + length + crcSize
	if len(buf) < total {
		return Frame{}, ErrTruncated
	}

	wantCrc := binary.BigEndian.Uint32(buf[headerSize+length : total])
	gotCrc := CRC32(buf[:headerSize+length])
	if wantCrc != gotCrc {
		return Frame{}, ErrCrcMismatch
	}

	payload := make([]byte, length)
	copy(payload, buf[headerSize:headerSize+length])

	return Frame{
		Type:     MsgType(buf[2]),
		Flags:    buf[3],
		Sequence: binary.BigEndian.Uint16(buf[4:6]),
		Payload:  payload,
	}, nil
}
