package engine

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// envelopeSize is the fixed header every MsgData/MsgAck payload carries
// ahead of its body: destination id, source id, and a local message id
// used to correlate acknowledgements (broadcast frames use the zero
// uuid as destination). MsgBeacon frames carry no envelope — a beacon
// already self-identifies via its own embedded device id and is always
// addressed to everyone.
const envelopeSize = 16 + 16 + 4

func encodeEnvelope(to, from uuid.UUID, msgID uint32, body []byte) []byte {
	buf := make([]byte, envelopeSize+len(body))
	copy(buf[0:16], to[:])
	copy(buf[16:32], from[:])
	binary.BigEndian.PutUint32(buf[32:36], msgID)
	copy(buf[36:], body)
	return buf
}

func decodeEnvelope(buf []byte) (to, from uuid.UUID, msgID uint32, body []byte, ok bool) {
	if len(buf) < envelopeSize {
		return uuid.UUID{}, uuid.UUID{}, 0, nil, false
	}
	copy(to[:], buf[0:16])
	copy(from[:], buf[16:32])
	msgID = binary.BigEndian.Uint32(buf[32:36])
	return to, from, msgID, buf[envelopeSize:], true
}

// prefixLength prepends a 2-byte big-endian length so the receiver can
// trim the zero padding EncodeFEC's block interleaver introduces; see
// encoding.DecodeFEC's doc comment.
func prefixLength(b []byte) []byte {
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(b)))
	copy(out[2:], b)
	return out
}

func trimLength(b []byte) ([]byte, bool) {
	if len(b) < 2 {
		return nil, false
	}
	n := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) < 2+n {
		return nil, false
	}
	return b[2 : 2+n], true
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
