package physical

import (
	"errors"
	"math"
)

// ErrNoPreamble is returned when the demodulator cannot find a
// preamble correlation above the detection threshold.
var ErrNoPreamble = errors.New("physical: no preamble found")

// DemodResult is the outcome of a successful demodulation.
type DemodResult struct {
	Data       []byte
	Confidence float64
}

// Demodulate recovers bytes from a captured sample buffer: it locates
// the preamble via chirp correlation, then evaluates the Goertzel
// recurrence at each candidate symbol window to pick the strongest
// tone, and finally inverts the byte<->symbol mapping.
func Demodulate(band BandConfig, timing TimingConfig, samples []float32) (DemodResult, error) {
	offset, found := findPreamble(samples, band, timing)
	if !found {
		return DemodResult{}, ErrNoPreamble
	}

	dataStart := offset + timing.PreambleSamples()
	slotStride := timing.SlotStride()
	samplesPerSymbol := timing.SamplesPerSymbol()

	n := 0
	if len(samples) > dataStart {
		n = (len(samples) - dataStart) / slotStride
	}

	freqs := band.Frequencies()
	symbols := make([]int, 0, n)

	var confSum float64
	for i := 0; i < n; i++ {
		winStart := dataStart + i*slotStride
		window := samples[winStart : winStart+samplesPerSymbol]

		symbol, confidence := detectSymbol(window, freqs, timing.SampleRate)
		symbols = append(symbols, symbol)
		confSum += confidence
	}

	confidence := 0.0
	if n > 0 {
		confidence = confSum / float64(n)
	}

	data := symbolsToBytes(symbols, band.BitsPerSymbol())
	return DemodResult{Data: data, Confidence: confidence}, nil
}

// detectSymbol evaluates the Goertzel recurrence for each candidate
// frequency and returns the argmax bin along with a (top1-top2)/top1
// confidence score.
func detectSymbol(window []float32, freqs []float64, sampleRate int) (int, float64) {
	n := len(window)
	powers := make([]float64, len(freqs))
	for i, f := range freqs {
		powers[i] = goertzelPower(window, f, sampleRate, n)
	}

	best, second := -1, -1
	for i, p := range powers {
		if best == -1 || p > powers[best] {
			second = best
			best = i
		} else if second == -1 || p > powers[second] {
			second = i
		}
	}

	if best == -1 {
		return 0, 0
	}
	top1 := powers[best]
	if top1 <= 0 {
		return best, 0
	}
	top2 := 0.0
	if second != -1 {
		top2 = powers[second]
	}
	return best, (top1 - top2) / top1
}

// goertzelPower evaluates the Goertzel single-bin power for freq over
// window, using bin k = round(freq*n/sampleRate).
func goertzelPower(window []float32, freq float64, sampleRate, n int) float64 {
	k := math.Round(freq * float64(n) / float64(sampleRate))
	omega := 2 * math.Pi * k / float64(n)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range window {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}
