package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/acoumesh/acoumesh/pkg/audio"
	"github.com/acoumesh/acoumesh/pkg/encoding"
	"github.com/acoumesh/acoumesh/pkg/mesh"
	"github.com/acoumesh/acoumesh/pkg/physical"
	"github.com/acoumesh/acoumesh/pkg/protocol"
)

// fragmentRef is the subset of encoding.Fragment the reassembly buffer
// needs to keep, named to avoid importing encoding's Fragment type
// directly into the Engine struct literal in engine.go.
type fragmentRef = encoding.Fragment

// producerTask owns audio capture: it conditions each block through the
// signal pipeline, accumulates conditioned samples, and periodically
// attempts a demodulation pass, mirroring the bounded accumulate-then-
// decode rhythm the underlying audio pipeline was already built around.
func (e *Engine) producerTask() {
	defer e.wg.Done()

	samples := e.source.Samples()

	minBuffer := e.timing.PreambleSamples() + e.timing.SlotStride()*8
	maxBuffer := e.timing.SampleRate * 6

	var buffer []float64

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return

		case block, ok := <-samples:
			if !ok {
				return
			}
			e.monitor.ProcessSamples(block)
			conditioned := e.pipeline.Process(toFloat64(block))
			buffer = append(buffer, conditioned...)
			if len(buffer) > maxBuffer {
				buffer = buffer[len(buffer)-maxBuffer:]
			}

		case <-ticker.C:
			if len(buffer) < minBuffer {
				continue
			}
			e.tryDecode(buffer)
			buffer = buffer[:0]
		}
	}
}

// tryDecode attempts one demodulation pass over buffer. The float64-to-
// float32 conversion runs on a pooled buffer (pkg/audio.BufferPool)
// rather than a fresh allocation, since this path repeats on every
// decode tick for a buffer that can reach several seconds of audio.
func (e *Engine) tryDecode(buffer []float64) {
	buf := audio.GlobalPool().Get(len(buffer))
	defer buf.Release()
	for i, v := range buffer {
		buf.Data[i] = float32(v)
	}

	result, err := physical.Demodulate(e.band, e.timing, buf.Data)
	if err != nil {
		if err == physical.ErrNoPreamble {
			e.metrics.NoPreambleTotal.Inc()
		}
		return
	}
	e.handleDecodedBytes(result.Data)
}

func (e *Engine) handleDecodedBytes(data []byte) {
	frame, err := encoding.ParseFrame(data)
	if err != nil {
		if err == encoding.ErrCrcMismatch {
			e.metrics.CrcFailuresTotal.Inc()
		}
		return
	}

	slot := e.getCurrentSlot()
	if e.scheduler.Table().IsLocalSlot(slot) {
		select {
		case e.collisionCh <- struct{}{}:
		default:
		}
	}

	decoded, corrected := encoding.DecodeFEC(frame.Payload, encoding.DefaultInterleaveDepth)
	body, ok := trimLength(decoded)
	if !ok {
		return
	}

	frag := encoding.Fragment{Sequence: frame.Sequence, Flags: frame.Flags, Payload: body}
	assembled, totalCorrected, complete := e.reassemble(byte(frame.Type), frag, corrected)
	if !complete {
		return
	}

	e.metrics.FramesRxTotal.Inc()
	e.metrics.CorrectedBitsTotal.Add(float64(totalCorrected))

	switch frame.Type {
	case encoding.MsgBeacon:
		e.handleBeacon(assembled, slot, totalCorrected)
	case encoding.MsgData:
		e.handleData(assembled, slot, totalCorrected)
	case encoding.MsgAck:
		e.handleAck(assembled)
	}
}

// reassemble folds one received fragment into the engine's single
// in-flight reassembly buffer (see reassemblyState's doc comment) and
// reports the completed payload once the last fragment of a message
// has arrived.
func (e *Engine) reassemble(msgType byte, frag encoding.Fragment, corrected int) ([]byte, int, bool) {
	first := frag.Flags&encoding.FlagFirstFragment != 0
	more := frag.Flags&encoding.FlagMoreFragments != 0

	switch {
	case first:
		e.reassembling = &reassemblyState{msgType: msgType, fragments: []fragmentRef{frag}, corrected: corrected}
	case e.reassembling != nil && e.reassembling.msgType == msgType:
		e.reassembling.fragments = append(e.reassembling.fragments, frag)
		e.reassembling.corrected += corrected
	default:
		return nil, 0, false // no open reassembly for this fragment to join
	}

	if more {
		return nil, 0, false
	}

	state := e.reassembling
	e.reassembling = nil

	assembled, err := encoding.Reassemble(state.fragments)
	if err != nil {
		return nil, 0, false
	}
	return assembled, state.corrected, true
}

func (e *Engine) handleBeacon(body []byte, slot, corrected int) {
	b, err := mesh.DecodeBeaconPayload(body)
	if err != nil {
		return
	}
	if b.DeviceID == e.deviceID {
		return
	}

	e.discovery.OnBeacon(body, b.DeviceID)

	rec := protocol.FrameRecord{
		Timestamp: time.Now(),
		Peer:      peerLabel(b.DeviceID, b.Name),
		Payload:   fmt.Sprintf("beacon seq=%d", b.Sequence),
		Slot:      slot,
		Corrected: corrected,
	}
	e.recordFrame(rec, "rx")
}

func (e *Engine) handleData(body []byte, slot, corrected int) {
	to, from, msgID, payload, ok := decodeEnvelope(body)
	if !ok {
		return
	}
	broadcast := to == (uuid.UUID{})
	if !broadcast && to != e.deviceID {
		return // addressed to a different peer; this core does not forward
	}

	rec := protocol.FrameRecord{
		Timestamp: time.Now(),
		Peer:      from.String(),
		Payload:   string(payload),
		Slot:      slot,
		Corrected: corrected,
	}
	e.recordFrame(rec, "rx")

	if !broadcast {
		e.sendAck(from, msgID)
	}
}

func (e *Engine) handleAck(body []byte) {
	to, _, msgID, _, ok := decodeEnvelope(body)
	if !ok || to != e.deviceID {
		return
	}
	e.pendMu.Lock()
	delete(e.pending, msgID)
	e.pendMu.Unlock()
}

func (e *Engine) recordFrame(rec protocol.FrameRecord, direction string) {
	if err := e.store.StoreFrame(rec, direction); err != nil {
		log.Printf("engine: store %s frame: %v", direction, err)
		return
	}
	rec.Direction = direction
	e.publish(rec)
}

func peerLabel(id uuid.UUID, name string) string {
	if name == "" {
		return id.String()
	}
	return fmt.Sprintf("%s (%s)", name, id.String())
}
