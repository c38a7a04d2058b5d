package physical

import "math"

const (
	preambleAmplitude  = 0.8
	preambleEdgeOffset = 500 // Hz, extends the chirp past the tone band on each side
	corrSubsample      = 4   // subsampling factor used during the correlation search
	correlationFound   = 0.3
	searchStepSeconds  = 0.001
)

// generateChirp synthesizes the linear-swept preamble: sample i is
// 0.8*sin(2*pi*f(i)*i/sampleRate) where f(i) interpolates startFreq to
// endFreq linearly over preambleSamples.
func generateChirp(startFreq, endFreq float64, sampleRate, preambleSamples int) []float32 {
	out := make([]float32, preambleSamples)
	for i := 0; i < preambleSamples; i++ {
		frac := float64(i) / float64(preambleSamples)
		f := startFreq + (endFreq-startFreq)*frac
		phase := 2 * math.Pi * f * float64(i) / float64(sampleRate)
		out[i] = float32(preambleAmplitude * math.Sin(phase))
	}
	return out
}

func chirpRange(band BandConfig) (start, end float64) {
	return band.BaseFreq - preambleEdgeOffset, band.BaseFreq + band.Bandwidth + preambleEdgeOffset
}

// correlate computes a normalised cross-correlation between window and
// reference, subsampled by `step` samples for speed.
func correlate(window, reference []float32, step int) float64 {
	if step < 1 {
		step = 1
	}
	var num, denomA, denomB float64
	for i := 0; i < len(reference) && i < len(window); i += step {
		a := float64(window[i])
		b := float64(reference[i])
		num += a * b
		denomA += a * a
		denomB += b * b
	}
	if denomA == 0 || denomB == 0 {
		return 0
	}
	return num / math.Sqrt(denomA*denomB)
}

// findPreamble slides a preambleSamples-wide window across samples in
// 1ms steps, returning the offset of maximum correlation with the
// locally generated reference chirp and whether it cleared the
// detection threshold.
func findPreamble(samples []float32, band BandConfig, timing TimingConfig) (offset int, found bool) {
	start, end := chirpRange(band)
	reference := generateChirp(start, end, timing.SampleRate, timing.PreambleSamples())

	stepSamples := int(searchStepSeconds * float64(timing.SampleRate))
	if stepSamples < 1 {
		stepSamples = 1
	}

	bestOffset := -1
	bestCorr := -1.0

	preambleSamples := timing.PreambleSamples()
	for pos := 0; pos+preambleSamples <= len(samples); pos += stepSamples {
		corr := correlate(samples[pos:pos+preambleSamples], reference, corrSubsample)
		if corr > bestCorr {
			bestCorr = corr
			bestOffset = pos
		}
	}

	if bestOffset < 0 || bestCorr < correlationFound {
		return 0, false
	}
	return bestOffset, true
}
