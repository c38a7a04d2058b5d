package signalcond

import "github.com/acoumesh/acoumesh/pkg/physical"

// Pipeline chains the four conditioning stages, in order: bandpass ->
// spectral denoise -> echo cancel -> AGC. Each stage owns its own
// state; the pipeline owns none of its own beyond the stage instances.
type Pipeline struct {
	bandpass *BandpassFilter
	denoise  *SpectralDenoiser
	echo     *EchoCanceller
	agc      *AGC
}

// NewPipeline builds a conditioning pipeline tuned to band/timing.
func NewPipeline(band physical.BandConfig, sampleRate int) *Pipeline {
	low := band.BaseFreq - 500
	high := band.BaseFreq + band.Bandwidth + 500

	return &Pipeline{
		bandpass: NewBandpassFilter(low, high, sampleRate),
		denoise:  NewSpectralDenoiser(),
		echo:     NewEchoCanceller(sampleRate),
		agc:      NewAGC(),
	}
}

// PushTransmitted feeds the echo canceller's reference delay line with
// samples the device just transmitted (see the Open Question decision
// in DESIGN.md).
func (p *Pipeline) PushTransmitted(samples []float64) {
	for _, x := range samples {
		p.echo.PushReference(x)
	}
}

// Process runs one block through bandpass, denoise, echo cancel, and AGC.
func (p *Pipeline) Process(block []float64) []float64 {
	b := p.bandpass.Process(block)
	d := p.denoise.Process(b)
	e := p.echo.ProcessBlock(d)
	return p.agc.Process(e)
}
