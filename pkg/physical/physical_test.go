package physical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulateLength(t *testing.T) {
	band := UltrasonicBand()
	timing := DefaultTiming()

	data := []byte("HELLO")
	samples := Modulate(band, timing, data)

	symbols := bytesToSymbols(data, band.BitsPerSymbol())
	want := timing.PreambleSamples() + len(symbols)*timing.SlotStride()
	assert.Equal(t, want, len(samples))
}

func TestSingleSymbolFrequencies(t *testing.T) {
	band := UltrasonicBand() // M=16, base=18000, spacing=100

	symbols := bytesToSymbols([]byte{0x3C}, band.BitsPerSymbol())
	require.Equal(t, []int{0x3, 0xC}, symbols)

	freqs := band.Frequencies()
	assert.Equal(t, 18300.0, freqs[0x3])
	assert.Equal(t, 19200.0, freqs[0xC])
}

func TestRoundTripNoNoise(t *testing.T) {
	band := AudibleBand()
	timing := DefaultTiming()

	data := []byte("HELLO")
	samples := Modulate(band, timing, data)

	result, err := Demodulate(band, timing, samples)
	require.NoError(t, err)
	assert.Equal(t, data, result.Data)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestRoundTripUltrasonic(t *testing.T) {
	band := UltrasonicBand()
	timing := DefaultTiming()

	data := []byte{0x00, 0xFF, 0x3C, 0xA5}
	samples := Modulate(band, timing, data)

	result, err := Demodulate(band, timing, samples)
	require.NoError(t, err)
	assert.Equal(t, data, result.Data)
}

func TestDemodulateNoPreamble(t *testing.T) {
	band := AudibleBand()
	timing := DefaultTiming()

	silence := make([]float32, timing.PreambleSamples()*2)
	_, err := Demodulate(band, timing, silence)
	assert.ErrorIs(t, err, ErrNoPreamble)
}

func TestBytesToSymbolsRoundTrip(t *testing.T) {
	for _, bits := range []int{3, 4} {
		data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
		symbols := bytesToSymbols(data, bits)
		back := symbolsToBytes(symbols, bits)
		assert.Equal(t, data, back, "bitsPerSymbol=%d", bits)
	}
}
