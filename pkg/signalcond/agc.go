package signalcond

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	agcTarget       = 0.3
	agcAttackCoeff  = 0.1
	agcReleaseCoeff = 0.01
	agcMinGain      = 0.1
	agcMaxGain      = 10.0
)

// AGC is an automatic gain controller with asymmetric attack/release.
type AGC struct {
	gain float64
}

// NewAGC constructs an AGC starting at unity gain.
func NewAGC() *AGC {
	return &AGC{gain: 1.0}
}

// Process computes the block RMS, updates the smoothed gain toward the
// target level, and scales the block by the resulting gain.
func (a *AGC) Process(block []float64) []float64 {
	rms := blockRMS(block)

	targetGain := a.gain
	if rms > 0 {
		targetGain = agcTarget / rms
	}

	beta := agcReleaseCoeff
	if targetGain < a.gain {
		beta = agcAttackCoeff
	}
	a.gain = a.gain*(1-beta) + targetGain*beta

	if a.gain < agcMinGain {
		a.gain = agcMinGain
	}
	if a.gain > agcMaxGain {
		a.gain = agcMaxGain
	}

	out := make([]float64, len(block))
	for i, x := range block {
		out[i] = a.gain * x
	}
	return out
}

// Gain returns the AGC's current gain.
func (a *AGC) Gain() float64 { return a.gain }

func blockRMS(block []float64) float64 {
	if len(block) == 0 {
		return 0
	}
	squares := make([]float64, len(block))
	for i, x := range block {
		squares[i] = x * x
	}
	meanSquare := floats.Sum(squares) / float64(len(squares))
	return math.Sqrt(meanSquare)
}
