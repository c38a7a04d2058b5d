package audio

import (
	"math"
	"sync"
	"time"

	"github.com/mjibson/go-dsp/fft"
)

// LevelData is a real-time audio level measurement.
type LevelData struct {
	Timestamp int64   `json:"timestamp"`
	RMSLevel  float32 `json:"rms"`
	PeakLevel float32 `json:"peak"`
	Clipping  bool    `json:"clipping"`
}

// SpectrumData is an FFT-derived magnitude spectrum.
type SpectrumData struct {
	Timestamp  int64     `json:"timestamp"`
	SampleRate int       `json:"sample_rate"`
	Spectrum   []float32 `json:"spectrum"`
	FreqStep   float32   `json:"freq_step"`
}

// VisualizationData combines level and spectrum data for a UI feed.
type VisualizationData struct {
	LevelData
	SpectrumData
}

// LevelMonitor processes audio blocks into level and spectrum data for
// live monitoring, independent of the demodulation path.
type LevelMonitor struct {
	mutex sync.RWMutex

	sampleRate int
	fftSize    int

	currentRMS   float32
	currentPeak  float32
	peakHold     float32
	peakHoldTime time.Time
	isClipping   bool

	spectrum     []float32
	spectrumTime time.Time

	sampleBuffer []float32
	fftBuffer    []complex128
	window       []float64

	sampleCount int64
	clipCount   int64

	running bool
}

// NewLevelMonitor constructs a monitor with the given FFT size.
func NewLevelMonitor(sampleRate, fftSize int) *LevelMonitor {
	return &LevelMonitor{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		spectrum:   make([]float32, fftSize/2),
		fftBuffer:  make([]complex128, fftSize),
		window:     hannWindow(fftSize),
	}
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// ProcessSamples feeds a block of samples into the level/spectrum
// accumulators. Samples are assumed normalized to [-1, 1].
func (m *LevelMonitor) ProcessSamples(samples []float32) {
	if len(samples) == 0 {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calculateLevels(samples)

	m.sampleBuffer = append(m.sampleBuffer, samples...)
	if len(m.sampleBuffer) >= m.fftSize {
		m.calculateSpectrum()
		if len(m.sampleBuffer) > m.fftSize {
			copy(m.sampleBuffer, m.sampleBuffer[len(m.sampleBuffer)-m.fftSize:])
			m.sampleBuffer = m.sampleBuffer[:m.fftSize]
		}
	}

	m.sampleCount += int64(len(samples))
}

func (m *LevelMonitor) calculateLevels(samples []float32) {
	var sumSquares float64
	var peak float32
	clipping := false

	for _, s := range samples {
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
		if abs >= 0.98 {
			clipping = true
			m.clipCount++
		}
		sumSquares += float64(s) * float64(s)
	}

	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if rms > 0 {
		m.currentRMS = float32(20.0 * math.Log10(rms))
	} else {
		m.currentRMS = -100.0
	}

	if peak > 0 {
		peakDB := float32(20.0 * math.Log10(float64(peak)))
		m.currentPeak = peakDB

		now := time.Now()
		if peakDB > m.peakHold || now.Sub(m.peakHoldTime) > 2*time.Second {
			m.peakHold = peakDB
			m.peakHoldTime = now
		}
	} else {
		m.currentPeak = -100.0
	}

	m.isClipping = clipping
}

func (m *LevelMonitor) calculateSpectrum() {
	if len(m.sampleBuffer) < m.fftSize {
		return
	}

	for i := 0; i < m.fftSize; i++ {
		windowed := float64(m.sampleBuffer[i]) * m.window[i]
		m.fftBuffer[i] = complex(windowed, 0)
	}

	result := fft.FFT(m.fftBuffer)

	for i := 0; i < len(m.spectrum); i++ {
		magnitude := math.Sqrt(real(result[i])*real(result[i]) + imag(result[i])*imag(result[i]))
		if magnitude > 0 {
			m.spectrum[i] = float32(20.0 * math.Log10(magnitude))
		} else {
			m.spectrum[i] = -100.0
		}
	}

	m.spectrumTime = time.Now()
}

// CurrentLevels returns the most recent level measurement.
func (m *LevelMonitor) CurrentLevels() LevelData {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return LevelData{
		Timestamp: time.Now().UnixMilli(),
		RMSLevel:  m.currentRMS,
		PeakLevel: m.currentPeak,
		Clipping:  m.isClipping,
	}
}

// CurrentSpectrum returns a copy of the most recent spectrum.
func (m *LevelMonitor) CurrentSpectrum() SpectrumData {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	spectrum := make([]float32, len(m.spectrum))
	copy(spectrum, m.spectrum)

	return SpectrumData{
		Timestamp:  m.spectrumTime.UnixMilli(),
		SampleRate: m.sampleRate,
		Spectrum:   spectrum,
		FreqStep:   float32(m.sampleRate) / float32(m.fftSize),
	}
}

// VisualizationData returns the combined level+spectrum snapshot.
func (m *LevelMonitor) VisualizationData() VisualizationData {
	return VisualizationData{
		LevelData:    m.CurrentLevels(),
		SpectrumData: m.CurrentSpectrum(),
	}
}

// Statistics reports monitor-wide counters.
func (m *LevelMonitor) Statistics() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	clipRate := 0.0
	if m.sampleCount > 0 {
		clipRate = float64(m.clipCount) / float64(m.sampleCount) * 100.0
	}

	return map[string]interface{}{
		"sample_count":   m.sampleCount,
		"clip_count":     m.clipCount,
		"clip_rate_pct":  clipRate,
		"peak_hold_db":   m.peakHold,
		"sample_rate":    m.sampleRate,
		"fft_size":       m.fftSize,
		"buffer_samples": len(m.sampleBuffer),
	}
}

// Start marks the monitor as running.
func (m *LevelMonitor) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.running = true
	return nil
}

// Stop marks the monitor as stopped.
func (m *LevelMonitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.running = false
}

// IsRunning reports whether the monitor has been started.
func (m *LevelMonitor) IsRunning() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.running
}
