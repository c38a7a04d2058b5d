package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(0x00000000), CRC32([]byte{}))
	assert.Equal(t, uint32(0xCBF43926), CRC32([]byte("123456789")))
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello mesh")
	buf, err := CreateFrame(MsgData, FlagFirstFragment, 42, payload)
	require.NoError(t, err)

	frame, err := ParseFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, MsgData, frame.Type)
	assert.Equal(t, uint16(42), frame.Sequence)
	assert.Equal(t, payload, frame.Payload)
	assert.True(t, frame.FirstFragment())
	assert.False(t, frame.MoreFragments())
}

func TestFrameEmptyPayloadIsMinimalLength(t *testing.T) {
	buf, err := CreateFrame(MsgBeacon, 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, buf, frameMinLen)
}

func TestFrameMaxPayloadLength(t *testing.T) {
	payload := make([]byte, MaxPayloadSize)
	buf, err := CreateFrame(MsgData, 0, 1, payload)
	require.NoError(t, err)
	assert.Len(t, buf, headerSize+MaxPayloadSize+crcSize)
}

func TestFrameOversizedPayloadRejected(t *testing.T) {
	payload := make([]byte, MaxPayloadSize+1)
	_, err := CreateFrame(MsgData, 0, 1, payload)
	assert.ErrorIs(t, err, ErrPayloadSize)
}

func TestParseFrameTooShort(t *testing.T) {
	_, err := ParseFrame([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestParseFrameBadMagic(t *testing.T) {
	buf, err := CreateFrame(MsgData, 0, 1, []byte("x"))
	require.NoError(t, err)
	buf[0] = 0x00
	_, err = ParseFrame(buf)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestParseFrameCrcMismatch(t *testing.T) {
	buf, err := CreateFrame(MsgData, 0, 1, []byte("payload"))
	require.NoError(t, err)
	buf[len(buf)-1] ^= 0xFF
	_, err = ParseFrame(buf)
	assert.ErrorIs(t, err, ErrCrcMismatch)
}

func TestParseFrameTruncated(t *testing.T) {
	buf, err := CreateFrame(MsgData, 0, 1, []byte("payload"))
	require.NoError(t, err)
	_, err = ParseFrame(buf[:frameMinLen+2])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFragmentAndReassembleRoundTrip(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	fragments := FragmentPayload(payload)
	require.Len(t, fragments, 2)
	assert.True(t, fragments[0].Flags&FlagFirstFragment != 0)
	assert.True(t, fragments[0].Flags&FlagMoreFragments != 0)
	assert.False(t, fragments[1].Flags&FlagMoreFragments != 0)

	out, err := Reassemble(fragments)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestReassembleOutOfOrder(t *testing.T) {
	payload := make([]byte, 300)
	fragments := FragmentPayload(payload)
	shuffled := []Fragment{fragments[1], fragments[0]}

	out, err := Reassemble(shuffled)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestReassembleMissingFragment(t *testing.T) {
	payload := make([]byte, 300)
	fragments := FragmentPayload(payload)

	_, err := Reassemble(fragments[:1])
	assert.ErrorIs(t, err, ErrMissingFragment)
}

func TestFragmentEmptyPayload(t *testing.T) {
	fragments := FragmentPayload(nil)
	require.Len(t, fragments, 1)

	out, err := Reassemble(fragments)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFECRoundTripNoErrors(t *testing.T) {
	data := []byte("the quick brown fox")
	encoded := EncodeFEC(data, DefaultInterleaveDepth)
	decoded, corrected := DecodeFEC(encoded, DefaultInterleaveDepth)

	assert.Equal(t, 0, corrected)
	assert.Equal(t, data, decoded[:len(data)])
}

func TestFECCorrectsSingleBitFlip(t *testing.T) {
	data := []byte{0x55}
	encoded := EncodeFEC(data, DefaultInterleaveDepth)

	// Flip one bit of the replicated triple before decoding, simulating
	// corruption of one of the three copies in transit.
	encoded[0] ^= 0x01

	decoded, corrected := DecodeFEC(encoded, DefaultInterleaveDepth)
	assert.Equal(t, data, decoded[:len(data)])
	assert.Equal(t, 1, corrected)
}

func TestFECDecodeRejectsBadLength(t *testing.T) {
	decoded, corrected := DecodeFEC([]byte{1, 2, 3}, DefaultInterleaveDepth)
	assert.Nil(t, decoded)
	assert.Equal(t, 0, corrected)
}
