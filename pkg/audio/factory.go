package audio

import "fmt"

// NewSource builds the AudioSource named by backend ("mock" or
// "portaudio"). Binaries built without the "portaudio" tag still link,
// but asking for that backend fails with ErrAudioUnavailable instead
// of a missing-symbol build error.
func NewSource(backend string, cfg Config) (AudioSource, error) {
	switch backend {
	case "portaudio":
		if s := newPortaudioSource(cfg); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("%w: binary built without portaudio support", ErrAudioUnavailable)
	case "mock", "":
		return NewMockSource(cfg), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", backend)
	}
}

// NewSink builds the AudioSink named by backend ("mock" or "portaudio").
func NewSink(backend string, cfg Config) (AudioSink, error) {
	switch backend {
	case "portaudio":
		if s := newPortaudioSink(cfg); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("%w: binary built without portaudio support", ErrAudioUnavailable)
	case "mock", "":
		return NewMockSink(cfg), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", backend)
	}
}
