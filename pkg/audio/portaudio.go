//go:build portaudio

package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortaudioSource captures float32 blocks from a real input device via
// PortAudio. Built only when the "portaudio" build tag is set, since it
// links against the system PortAudio library.
type PortaudioSource struct {
	cfg    Config
	stream *portaudio.Stream
	buf    []float32

	mu      sync.Mutex
	running bool
	samples chan []float32
}

// NewPortaudioSource constructs a PortAudio-backed capture source. It
// does not open the device until Start is called.
func NewPortaudioSource(cfg Config) *PortaudioSource {
	return &PortaudioSource{
		cfg:     cfg,
		buf:     make([]float32, cfg.BufferSize),
		samples: make(chan []float32, 10),
	}
}

// Start opens the default input device and begins streaming blocks.
func (s *PortaudioSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrAudioUnavailable, err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.cfg.SampleRate), len(s.buf), s.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: open input stream: %v", ErrAudioUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start input stream: %v", ErrAudioUnavailable, err)
	}

	s.stream = stream
	s.running = true
	go s.run()
	return nil
}

func (s *PortaudioSource) run() {
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		if err := s.stream.Read(); err != nil {
			continue
		}
		block := make([]float32, len(s.buf))
		copy(block, s.buf)

		select {
		case s.samples <- block:
		default:
		}
	}
}

// Stop closes the input stream and terminates PortAudio.
func (s *PortaudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotStarted
	}
	s.running = false
	s.stream.Stop()
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

// Samples returns the channel captured blocks are published on.
func (s *PortaudioSource) Samples() <-chan []float32 {
	return s.samples
}

// PortaudioSink plays float32 blocks to the default output device.
type PortaudioSink struct {
	cfg    Config
	stream *portaudio.Stream
	buf    []float32

	mu      sync.Mutex
	running bool
}

// NewPortaudioSink constructs a PortAudio-backed playback sink.
func NewPortaudioSink(cfg Config) *PortaudioSink {
	return &PortaudioSink{cfg: cfg, buf: make([]float32, cfg.BufferSize)}
}

// Start opens the default output device.
func (s *PortaudioSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrAudioUnavailable, err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.cfg.SampleRate), len(s.buf), s.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: open output stream: %v", ErrAudioUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start output stream: %v", ErrAudioUnavailable, err)
	}

	s.stream = stream
	s.running = true
	return nil
}

// Stop closes the output stream and terminates PortAudio.
func (s *PortaudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotStarted
	}
	s.running = false
	s.stream.Stop()
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

// Play writes samples to the output stream, looping in block-sized
// chunks matching the stream's configured buffer size.
func (s *PortaudioSink) Play(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotStarted
	}

	for offset := 0; offset < len(samples); offset += len(s.buf) {
		end := offset + len(s.buf)
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(s.buf, samples[offset:end])
		for i := n; i < len(s.buf); i++ {
			s.buf[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("audio: write output stream: %w", err)
		}
	}
	return nil
}
