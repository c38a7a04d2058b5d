package signalcond

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	fftSize    = 2048
	denoiseAlpha  = 0.01
	denoiseSafety = 2.0
)

// SpectralDenoiser performs noise-floor-tracking spectral subtraction
// over fixed-size windowed DFT blocks, using the radix-2 FFT from
// mjibson/go-dsp in place of a naive O(N^2) DFT.
type SpectralDenoiser struct {
	noiseFloor []float64 // len fftSize/2, running per-bin magnitude estimate
	hann       []float64
}

// NewSpectralDenoiser constructs a denoiser with an empty noise floor.
func NewSpectralDenoiser() *SpectralDenoiser {
	return &SpectralDenoiser{
		noiseFloor: make([]float64, fftSize/2),
		hann:       window.Hann(onesOfLen(fftSize)),
	}
}

// Process denoises one block. The block is zero-padded/truncated to
// fftSize for the DFT/IDFT round trip; the returned slice has the same
// length as the input.
func (d *SpectralDenoiser) Process(block []float64) []float64 {
	windowed := make([]complex128, fftSize)
	for i := 0; i < fftSize; i++ {
		var x float64
		if i < len(block) {
			x = block[i]
		}
		windowed[i] = complex(x*d.hann[i], 0)
	}

	spectrum := fft.FFT(windowed)

	clean := make([]complex128, fftSize)
	for k := 0; k < fftSize; k++ {
		mag := cmplx.Abs(spectrum[k])
		phase := cmplx.Phase(spectrum[k])

		bin := k
		if bin >= fftSize/2 {
			bin = fftSize - k // mirror bin shares the noise-floor estimate
			if bin >= len(d.noiseFloor) {
				bin = len(d.noiseFloor) - 1
			}
		}

		if mag < d.noiseFloor[bin] || d.noiseFloor[bin] == 0 {
			d.noiseFloor[bin] = mag
		} else {
			d.noiseFloor[bin] = d.noiseFloor[bin]*(1-denoiseAlpha) + mag*denoiseAlpha*0.5
		}

		cleanMag := mag - denoiseSafety*d.noiseFloor[bin]
		if cleanMag < 0 {
			cleanMag = 0
		}
		clean[k] = cmplx.Rect(cleanMag, phase)
	}

	inverse := fft.IFFT(clean)

	out := make([]float64, len(block))
	for i := range out {
		if i < fftSize {
			out[i] = real(inverse[i])
		}
	}
	return out
}
