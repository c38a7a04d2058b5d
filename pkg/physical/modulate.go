package physical

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// Modulate converts data into a real-valued sample stream: a preamble
// chirp followed by one Hann-windowed FSK tone burst (plus trailing
// guard silence) per symbol.
func Modulate(band BandConfig, timing TimingConfig, data []byte) []float32 {
	symbols := bytesToSymbols(data, band.BitsPerSymbol())
	freqs := band.Frequencies()

	start, end := chirpRange(band)
	preamble := generateChirp(start, end, timing.SampleRate, timing.PreambleSamples())

	samplesPerSymbol := timing.SamplesPerSymbol()
	guardSamples := timing.GuardSamples()
	slotStride := samplesPerSymbol + guardSamples

	out := make([]float32, len(preamble)+len(symbols)*slotStride)
	copy(out, preamble)

	hann := hannWindow(samplesPerSymbol)

	pos := len(preamble)
	for _, sym := range symbols {
		freq := freqs[sym]
		omega := 2 * math.Pi * freq / float64(timing.SampleRate)
		for j := 0; j < samplesPerSymbol; j++ {
			out[pos+j] = float32(math.Sin(omega*float64(j)) * hann[j])
		}
		pos += slotStride // guard samples left as zero
	}

	return out
}

// hannWindow returns an n-point Hann window via gonum's dsp/window.
func hannWindow(n int) []float64 {
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 1
	}
	return window.Hann(seq)
}
