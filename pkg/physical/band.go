// Package physical implements the acoustic mesh's FSK physical layer:
// byte<->symbol mapping, preamble chirp generation/correlation, and
// Goertzel-based symbol detection, converting between application byte
// buffers and the real-valued sample streams played/captured by the
// AudioSink/AudioSource collaborators.
package physical

import "math"

// BandConfig is the immutable frequency-plan configuration chosen at
// construction: base frequency, tone spacing, tone count, and bandwidth.
type BandConfig struct {
	BaseFreq       float64
	FreqSpacing    float64
	NumFrequencies int
	Bandwidth      float64
}

// UltrasonicBand returns the near-ultrasonic preset: inaudible to most
// adults, usable on a typical laptop speaker/microphone pair.
func UltrasonicBand() BandConfig {
	return BandConfig{BaseFreq: 18000, FreqSpacing: 100, NumFrequencies: 16, Bandwidth: 1600}
}

// AudibleBand returns the audible-range preset, for devices whose
// speaker/microphone frequency response rolls off before 18kHz.
func AudibleBand() BandConfig {
	return BandConfig{BaseFreq: 1000, FreqSpacing: 200, NumFrequencies: 8, Bandwidth: 1600}
}

// Frequencies returns the M tone frequencies for this band.
func (b BandConfig) Frequencies() []float64 {
	freqs := make([]float64, b.NumFrequencies)
	for i := range freqs {
		freqs[i] = b.BaseFreq + float64(i)*b.FreqSpacing
	}
	return freqs
}

// BitsPerSymbol returns log2(NumFrequencies).
func (b BandConfig) BitsPerSymbol() int {
	return int(math.Round(math.Log2(float64(b.NumFrequencies))))
}

// TimingConfig is the immutable sample-rate/timing configuration chosen
// at construction.
type TimingConfig struct {
	SampleRate       int
	SymbolDuration   float64
	GuardInterval    float64
	PreambleDuration float64
}

// DefaultTiming returns typical timing values for a 44.1kHz audio device.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		SampleRate:       44100,
		SymbolDuration:   0.01,
		GuardInterval:    0.002,
		PreambleDuration: 0.1,
	}
}

// SamplesPerSymbol is floor(SampleRate * SymbolDuration).
func (t TimingConfig) SamplesPerSymbol() int {
	return int(float64(t.SampleRate) * t.SymbolDuration)
}

// GuardSamples is floor(SampleRate * GuardInterval).
func (t TimingConfig) GuardSamples() int {
	return int(float64(t.SampleRate) * t.GuardInterval)
}

// PreambleSamples is floor(SampleRate * PreambleDuration).
func (t TimingConfig) PreambleSamples() int {
	return int(float64(t.SampleRate) * t.PreambleDuration)
}

// SlotStride is the number of samples occupied by one symbol plus its
// trailing guard interval.
func (t TimingConfig) SlotStride() int {
	return t.SamplesPerSymbol() + t.GuardSamples()
}
