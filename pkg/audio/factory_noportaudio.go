//go:build !portaudio

package audio

func newPortaudioSource(cfg Config) AudioSource { return nil }
func newPortaudioSink(cfg Config) AudioSink     { return nil }
