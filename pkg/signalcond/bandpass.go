// Package signalcond implements the receive-side conditioning stages:
// bandpass filtering, spectral-subtraction denoise, adaptive LMS echo
// cancellation, Doppler detection/compensation, and automatic gain
// control. Pipeline chains bandpass, denoise, echo cancellation and AGC,
// in that order, over incoming sample blocks; the Doppler compensator
// is a separate component that Pipeline does not run.
package signalcond

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const bandpassTaps = 65

// BandpassFilter is a fixed (immutable once built), Hamming-windowed
// sinc FIR bandpass filter.
type BandpassFilter struct {
	coeffs  []float64
	history []float64 // carries the tail of the previous block for continuity
}

// NewBandpassFilter builds the 65-tap FIR passing [lowHz, highHz] given
// the pipeline's sample rate.
func NewBandpassFilter(lowHz, highHz float64, sampleRate int) *BandpassFilter {
	nyquist := float64(sampleRate) / 2
	lowNorm := lowHz / nyquist
	highNorm := highHz / nyquist

	coeffs := make([]float64, bandpassTaps)
	for j := 0; j < bandpassTaps; j++ {
		n := j - bandpassTaps/2
		var c float64
		if n == 0 {
			c = 2 * (highNorm - lowNorm)
		} else {
			fn := float64(n)
			c = (math.Sin(2*math.Pi*highNorm*fn) - math.Sin(2*math.Pi*lowNorm*fn)) / (math.Pi * fn)
		}
		coeffs[j] = c
	}

	hamming := window.Hamming(onesOfLen(bandpassTaps))
	for j := range coeffs {
		coeffs[j] *= hamming[j]
	}

	return &BandpassFilter{
		coeffs:  coeffs,
		history: make([]float64, bandpassTaps-1),
	}
}

// Process runs the standard causal FIR convolution over in, carrying the
// filter's tail history across calls.
func (f *BandpassFilter) Process(in []float64) []float64 {
	extended := make([]float64, len(f.history)+len(in))
	copy(extended, f.history)
	copy(extended[len(f.history):], in)

	out := make([]float64, len(in))
	for i := range in {
		var acc float64
		base := i + len(f.history)
		for j, c := range f.coeffs {
			acc += c * extended[base-j]
		}
		out[i] = acc
	}

	if len(in) >= len(f.history) {
		copy(f.history, in[len(in)-len(f.history):])
	} else {
		copy(f.history, f.history[len(in):])
		copy(f.history[len(f.history)-len(in):], in)
	}

	return out
}

func onesOfLen(n int) []float64 {
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 1
	}
	return seq
}
