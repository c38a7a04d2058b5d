package signalcond

const (
	EchoTaps = 128
	echoMu   = 0.01
)

// EchoCanceller is an adaptive LMS echo canceller. Per the deviation
// called out in spec.md's Open Questions, its delay line is fed the
// device's own transmitted samples (routed in by the engine), not the
// raw microphone input, so self-transmission echoes actually cancel.
type EchoCanceller struct {
	delay []float64 // ring buffer of the last >=1s of reference samples
	head  int
	taps  []float64 // length EchoTaps
}

// NewEchoCanceller builds a canceller with a delay line sized to hold
// at least one second of audio at sampleRate.
func NewEchoCanceller(sampleRate int) *EchoCanceller {
	return &EchoCanceller{
		delay: make([]float64, sampleRate),
		taps:  make([]float64, EchoTaps),
	}
}

// PushReference feeds one sample of the outgoing (transmitted) signal
// into the delay line, without performing cancellation. Call this for
// every transmitted sample so the canceller has a reference to work
// against while receiving.
func (e *EchoCanceller) PushReference(x float64) {
	e.delay[e.head] = x
	e.head = (e.head + 1) % len(e.delay)
}

// Process cancels estimated echo from one input sample and adapts the
// tap weights against the reference delay line.
func (e *EchoCanceller) Process(x float64) float64 {
	var yHat float64
	for j := 0; j < EchoTaps; j++ {
		yHat += e.taps[j] * e.delayAt(j)
	}

	err := x - yHat

	for j := 0; j < EchoTaps; j++ {
		e.taps[j] += echoMu * err * e.delayAt(j)
	}

	return err
}

// ProcessBlock cancels echo from a full block of input samples.
func (e *EchoCanceller) ProcessBlock(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = e.Process(x)
	}
	return out
}

func (e *EchoCanceller) delayAt(j int) float64 {
	n := len(e.delay)
	idx := ((e.head-j)%n + n) % n
	return e.delay[idx]
}
