package signalcond

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	dopplerRingSize   = 10
	dopplerThresholdHz = 5.0
)

// DopplerCompensator tracks a ring of recent (detected-expected)
// frequency errors and compensates blocks whose mean shift exceeds the
// detection threshold.
type DopplerCompensator struct {
	ring     [dopplerRingSize]float64
	count    int
	next     int
	sampleRate int
}

// NewDopplerCompensator constructs a compensator for the given sample rate.
func NewDopplerCompensator(sampleRate int) *DopplerCompensator {
	return &DopplerCompensator{sampleRate: sampleRate}
}

// detectPeakFrequency finds the FFT-magnitude argmax bin and refines it
// with quadratic interpolation of the three surrounding bins.
func detectPeakFrequency(block []float64, sampleRate int) float64 {
	n := len(block)
	in := make([]complex128, n)
	for i, x := range block {
		in[i] = complex(x, 0)
	}
	spectrum := fft.FFT(in)

	half := n / 2
	bestBin := 1
	bestMag := 0.0
	for k := 1; k < half-1; k++ {
		mag := cmplx.Abs(spectrum[k])
		if mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}

	y0 := cmplx.Abs(spectrum[bestBin-1])
	y1 := cmplx.Abs(spectrum[bestBin])
	y2 := cmplx.Abs(spectrum[bestBin+1])

	denom := 2 * (y0 - 2*y1 + y2)
	delta := 0.0
	if denom != 0 {
		delta = (y0 - y2) / denom
	}

	return (float64(bestBin) + delta) * float64(sampleRate) / float64(n)
}

// Observe records the error between a detected peak frequency and the
// expected tone frequency for this block.
func (d *DopplerCompensator) Observe(detected, expected float64) {
	d.ring[d.next] = detected - expected
	d.next = (d.next + 1) % dopplerRingSize
	if d.count < dopplerRingSize {
		d.count++
	}
}

// ShiftEstimate returns the mean of the recorded error ring.
func (d *DopplerCompensator) ShiftEstimate() float64 {
	if d.count == 0 {
		return 0
	}
	return floats.Sum(d.ring[:d.count]) / float64(d.count)
}

// Compensate multiplies block by cos(2*pi*(-shift)*n/sampleRate) when
// the current shift estimate exceeds the detection threshold.
func (d *DopplerCompensator) Compensate(block []float64) []float64 {
	shift := d.ShiftEstimate()
	if math.Abs(shift) <= dopplerThresholdHz {
		return block
	}

	out := make([]float64, len(block))
	for n, x := range block {
		out[n] = x * math.Cos(2*math.Pi*(-shift)*float64(n)/float64(d.sampleRate))
	}
	return out
}
