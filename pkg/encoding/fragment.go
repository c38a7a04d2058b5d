package encoding

import (
	"errors"
	"sort"
)

// ErrMissingFragment is returned when reassembly is attempted on an
// incomplete set of fragments.
var ErrMissingFragment = errors.New("encoding: missing fragment")

// Fragment is one piece of a payload split across multiple frames.
type Fragment struct {
	Sequence uint16
	Flags    byte
	Payload  []byte
}

// FragmentPayload splits payload into chunks no larger than MaxPayloadSize,
// tagging the first fragment with FlagFirstFragment and every fragment
// but the last with FlagMoreFragments.
func FragmentPayload(payload []byte) []Fragment {
	if len(payload) == 0 {
		return []Fragment{{Sequence: 0, Flags: FlagFirstFragment, Payload: nil}}
	}

	n := (len(payload) + MaxPayloadSize - 1) / MaxPayloadSize
	fragments := make([]Fragment, 0, n)

	for i := 0; i < n; i++ {
		start := i * MaxPayloadSize
		end := start + MaxPayloadSize
		if end > len(payload) {
			end = len(payload)
		}

		var flags byte
		if i == 0 {
			flags |= FlagFirstFragment
		}
		if i < n-1 {
			flags |= FlagMoreFragments
		}

		chunk := make([]byte, end-start)
		copy(chunk, payload[start:end])

		fragments = append(fragments, Fragment{
			Sequence: uint16(i),
			Flags:    flags,
			Payload:  chunk,
		})
	}

	return fragments
}

// Reassemble concatenates a set of received fragments back into the
// original payload. Fragments may arrive out of order; they are sorted
// by sequence number before concatenation. ErrMissingFragment is
// returned if no fragment carries FlagFirstFragment, no fragment has
// FlagMoreFragments clear, or the sequence run has a gap.
func Reassemble(fragments []Fragment) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, ErrMissingFragment
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	if sorted[0].Flags&FlagFirstFragment == 0 {
		return nil, ErrMissingFragment
	}
	last := sorted[len(sorted)-1]
	if last.Flags&FlagMoreFragments != 0 {
		return nil, ErrMissingFragment
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sequence != sorted[i-1].Sequence+1 {
			return nil, ErrMissingFragment
		}
	}

	var out []byte
	for _, f := range sorted {
		out = append(out, f.Payload...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}
