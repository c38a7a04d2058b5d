package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/acoumesh/acoumesh/pkg/physical"
)

var (
	band       = flag.StringP("band", "b", "ultrasonic", "band preset: audible or ultrasonic")
	input      = flag.StringP("input", "i", "", "input file (- or omitted for stdin)")
	output     = flag.StringP("output", "o", "", "output file (- or omitted for stdout)")
	sampleRate = flag.Int("rate", 44100, "sample rate in Hz")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	bandCfg, err := bandConfig(*band)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acoutool: %v\n", err)
		os.Exit(1)
	}
	timing := physical.DefaultTiming()
	timing.SampleRate = *sampleRate

	in, closeIn, err := openInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acoutool: %v\n", err)
		os.Exit(1)
	}
	defer closeIn()

	out, closeOut, err := openOutput(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acoutool: %v\n", err)
		os.Exit(1)
	}
	defer closeOut()

	switch args[0] {
	case "encode":
		err = runEncode(bandCfg, timing, in, out)
	case "decode":
		err = runDecode(bandCfg, timing, in, out)
	default:
		fmt.Fprintf(os.Stderr, "acoutool: unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "acoutool: %v\n", err)
		os.Exit(1)
	}
}

func bandConfig(name string) (physical.BandConfig, error) {
	switch name {
	case "audible":
		return physical.AudibleBand(), nil
	case "ultrasonic":
		return physical.UltrasonicBand(), nil
	default:
		return physical.BandConfig{}, fmt.Errorf("unknown band %q (want audible or ultrasonic)", name)
	}
}

// runEncode reads raw application bytes from in and writes the
// modulated waveform to out as little-endian float32 samples.
func runEncode(band physical.BandConfig, timing physical.TimingConfig, in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	samples := physical.Modulate(band, timing, data)
	fmt.Fprintf(os.Stderr, "encoded %d bytes into %d samples (%.2fs)\n",
		len(data), len(samples), float64(len(samples))/float64(timing.SampleRate))

	return writeSamples(out, samples)
}

// runDecode reads a little-endian float32 waveform from in and writes
// the demodulated application bytes to out.
func runDecode(band physical.BandConfig, timing physical.TimingConfig, in io.Reader, out io.Writer) error {
	samples, err := readSamples(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	result, err := physical.Demodulate(band, timing, samples)
	if err != nil {
		return fmt.Errorf("demodulate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "decoded %d bytes from %d samples, confidence=%v\n",
		len(result.Data), len(samples), result.Confidence)

	_, err = out.Write(result.Data)
	return err
}

func writeSamples(w io.Writer, samples []float32) error {
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	_, err := w.Write(buf)
	return err
}

func readSamples(r io.Reader) ([]float32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of 4 bytes", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func usage() {
	fmt.Println("acoutool - offline physical-layer encode/decode bench tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags] encode < bytes.bin > samples.f32\n", os.Args[0])
	fmt.Printf("  %s [flags] decode < samples.f32 > bytes.bin\n", os.Args[0])
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
