//go:build portaudio

package audio

func newPortaudioSource(cfg Config) AudioSource { return NewPortaudioSource(cfg) }
func newPortaudioSink(cfg Config) AudioSink     { return NewPortaudioSink(cfg) }
