package mesh

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrBeaconTooShort is returned when a payload is too small to contain
// a valid beacon.
var ErrBeaconTooShort = errors.New("mesh: beacon payload too short")

// BeaconPayload is the compact binary encoding carried in a MsgBeacon
// frame's payload: device identifier, device name, timestamp, and a
// monotonically increasing sequence number. JSON is deliberately not
// used here; every byte of airtime costs real transmission time.
type BeaconPayload struct {
	DeviceID  uuid.UUID
	Name      string
	Timestamp time.Time
	Sequence  uint32
}

// Encode serialises a beacon as: 16 bytes uuid, 1 byte name length, N
// bytes name, 8 bytes unix-nano timestamp, 4 bytes sequence, all
// multi-byte fields big-endian.
func (b BeaconPayload) Encode() []byte {
	name := []byte(b.Name)
	if len(name) > 255 {
		name = name[:255]
	}

	buf := make([]byte, 16+1+len(name)+8+4)
	copy(buf[0:16], b.DeviceID[:])
	buf[16] = byte(len(name))
	copy(buf[17:17+len(name)], name)
	pos := 17 + len(name)
	binary.BigEndian.PutUint64(buf[pos:pos+8], uint64(b.Timestamp.UnixNano()))
	binary.BigEndian.PutUint32(buf[pos+8:pos+12], b.Sequence)

	return buf
}

// DecodeBeaconPayload parses the wire encoding produced by Encode.
func DecodeBeaconPayload(payload []byte) (BeaconPayload, error) {
	if len(payload) < 17 {
		return BeaconPayload{}, ErrBeaconTooShort
	}

	var id uuid.UUID
	copy(id[:], payload[0:16])

	nameLen := int(payload[16])
	pos := 17
	if len(payload) < pos+nameLen+12 {
		return BeaconPayload{}, ErrBeaconTooShort
	}

	name := string(payload[pos : pos+nameLen])
	pos += nameLen
	nanos := binary.BigEndian.Uint64(payload[pos : pos+8])
	seq := binary.BigEndian.Uint32(payload[pos+8 : pos+12])

	return BeaconPayload{
		DeviceID:  id,
		Name:      name,
		Timestamp: time.Unix(0, int64(nanos)),
		Sequence:  seq,
	}, nil
}
