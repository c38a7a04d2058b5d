package audio

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// MockSource simulates a capture device by generating quiet background
// noise at the configured block rate. Useful for running the full
// engine without hardware attached.
type MockSource struct {
	cfg Config

	mu      sync.RWMutex
	running bool
	samples chan []float32
	stop    chan struct{}
}

// NewMockSource constructs a mock capture source.
func NewMockSource(cfg Config) *MockSource {
	return &MockSource{
		cfg:     cfg,
		samples: make(chan []float32, 10),
		stop:    make(chan struct{}),
	}
}

// Start begins the background noise generator.
func (m *MockSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyStarted
	}
	m.running = true
	m.stop = make(chan struct{})
	go m.run()
	log.Printf("audio: mock source started (sr=%d, block=%d)", m.cfg.SampleRate, m.cfg.BufferSize)
	return nil
}

// Stop halts the generator.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotStarted
	}
	m.running = false
	close(m.stop)
	return nil
}

// Samples returns the channel mock blocks are published on.
func (m *MockSource) Samples() <-chan []float32 {
	return m.samples
}

func (m *MockSource) run() {
	blockMs := m.cfg.BufferSize * 1000 / m.cfg.SampleRate
	ticker := time.NewTicker(time.Duration(blockMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			block := make([]float32, m.cfg.BufferSize)
			for i := range block {
				block[i] = (rand.Float32() - 0.5) * 0.002 // very quiet noise floor
			}
			select {
			case m.samples <- block:
			default:
				// drop if consumer is behind
			}
		}
	}
}

// MockSink consumes played blocks without producing sound; it does not
// log them.
type MockSink struct {
	cfg Config

	mu      sync.RWMutex
	running bool
	played  int64
}

// NewMockSink constructs a mock playback sink.
func NewMockSink(cfg Config) *MockSink {
	return &MockSink{cfg: cfg}
}

// Start marks the sink as accepting blocks.
func (m *MockSink) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyStarted
	}
	m.running = true
	return nil
}

// Stop marks the sink as no longer accepting blocks.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotStarted
	}
	m.running = false
	return nil
}

// Play simulates playback by sleeping for the block's real-time
// duration, so engine timing tests see realistic pacing.
func (m *MockSink) Play(samples []float32) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return fmt.Errorf("%w: mock sink not started", ErrNotStarted)
	}

	m.mu.Lock()
	m.played++
	m.mu.Unlock()

	duration := time.Duration(len(samples)) * time.Second / time.Duration(m.cfg.SampleRate)
	time.Sleep(duration)
	return nil
}

// BlocksPlayed reports how many blocks have been accepted by Play.
func (m *MockSink) BlocksPlayed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.played
}
