package engine

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/acoumesh/acoumesh/pkg/encoding"
	"github.com/acoumesh/acoumesh/pkg/mac"
	"github.com/acoumesh/acoumesh/pkg/mesh"
	"github.com/acoumesh/acoumesh/pkg/physical"
	"github.com/acoumesh/acoumesh/pkg/protocol"
)

// fecChunkSize bounds the pre-FEC chunk size the engine fragments a
// message into. encoding.FragmentPayload's own 256-byte MaxPayloadSize
// chunking is sized for the on-wire frame payload, but here the chunk
// is FEC-tripled and block-interleaved before it becomes a frame's
// payload, so it must be small enough that 3*(chunk+2 length-prefix
// bytes), rounded up to the interleave depth, still fits in
// encoding.MaxPayloadSize.
const fecChunkSize = 64

// schedulerTask owns the TDMA slot clock: it is the sole caller of
// Scheduler.Tick/OnFrameStart/ReportCollision/CurrentSlot, so none of
// those need their own synchronization.
func (e *Engine) schedulerTask() {
	defer e.wg.Done()

	interval := time.Duration(e.config.MAC.SlotDurationMs) * time.Millisecond / 4
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	beaconEvery := time.Duration(e.config.Mesh.GossipIntervalMs) * time.Millisecond
	if beaconEvery <= 0 {
		beaconEvery = 5 * time.Second
	}
	beaconTicker := time.NewTicker(beaconEvery)
	defer beaconTicker.Stop()

	ackTicker := time.NewTicker(500 * time.Millisecond)
	defer ackTicker.Stop()

	lastSlot := -1

	for {
		select {
		case <-e.stopCh:
			return

		case <-e.collisionCh:
			now := time.Now()
			e.scheduler.ReportCollision(now)
			e.queueMu.Lock()
			if qf := e.scheduler.Queue().Dequeue(); qf != nil {
				e.scheduler.Queue().Requeue(qf, now)
			}
			e.queueMu.Unlock()
			e.metrics.CollisionsTotal.Inc()

		case <-beaconTicker.C:
			e.sendBeacon()

		case <-ackTicker.C:
			e.sweepPendingAcks()

		case now := <-ticker.C:
			slot := e.scheduler.CurrentSlot(now)
			e.setCurrentSlot(slot)

			if slot != lastSlot {
				if lastSlot == -1 || slot < lastSlot {
					e.scheduler.OnFrameStart(now)
					e.discovery.Sweep(now)
					e.metrics.SlotUtilization.Set(e.scheduler.Utilization())
				}
				lastSlot = slot
			}

			e.queueMu.Lock()
			qf := e.scheduler.Tick(now)
			e.queueMu.Unlock()
			if qf == nil {
				continue
			}
			e.transmit(qf.Frame)
		}
	}
}

func (e *Engine) transmit(frameBytes []byte) {
	samples := physical.Modulate(e.band, e.timing, frameBytes)
	e.pipeline.PushTransmitted(toFloat64(samples))

	if err := e.sink.Play(samples); err != nil {
		log.Printf("engine: playback failed: %v", err)
	}

	e.queueMu.Lock()
	depth := e.scheduler.Queue().Len()
	e.queueMu.Unlock()
	e.metrics.QueueDepth.Set(float64(depth))
}

func (e *Engine) sweepPendingAcks() {
	now := time.Now()

	e.pendMu.Lock()
	defer e.pendMu.Unlock()

	for id, p := range e.pending {
		if now.Before(p.deadline) {
			continue
		}
		if p.retries >= maxRetries {
			log.Printf("engine: %v: peer=%s msg=%d after %d retries", mac.ErrAckTimeout, p.peer, id, p.retries)
			delete(e.pending, id)
			continue
		}

		p.retries++
		p.deadline = now.Add(ackWindow)

		e.queueMu.Lock()
		for _, f := range p.frames {
			e.scheduler.Queue().Enqueue(f, p.priority, now)
		}
		e.queueMu.Unlock()
	}
}

func (e *Engine) nextMsgID() uint32 {
	return atomic.AddUint32(&e.msgSeq, 1)
}

// fragmentForFEC splits body into fecChunkSize-sized pieces, flagged
// the same way encoding.FragmentPayload flags its own (larger) chunks.
func fragmentForFEC(body []byte) []encoding.Fragment {
	if len(body) == 0 {
		return []encoding.Fragment{{Sequence: 0, Flags: encoding.FlagFirstFragment, Payload: nil}}
	}

	n := (len(body) + fecChunkSize - 1) / fecChunkSize
	out := make([]encoding.Fragment, 0, n)
	for i := 0; i < n; i++ {
		start := i * fecChunkSize
		end := start + fecChunkSize
		if end > len(body) {
			end = len(body)
		}
		var flags byte
		if i == 0 {
			flags |= encoding.FlagFirstFragment
		}
		if i < n-1 {
			flags |= encoding.FlagMoreFragments
		}
		chunk := make([]byte, end-start)
		copy(chunk, body[start:end])
		out = append(out, encoding.Fragment{Sequence: uint16(i), Flags: flags, Payload: chunk})
	}
	return out
}

// enqueueBytes fragments, FEC-encodes, frames and enqueues body for
// transmission at priority, returning the built on-wire frames (kept by
// callers that need to retransmit on ack timeout).
func (e *Engine) enqueueBytes(msgType encoding.MsgType, body []byte, priority int) ([][]byte, error) {
	fragments := fragmentForFEC(body)

	frames := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		fecIn := prefixLength(frag.Payload)
		fec := encoding.EncodeFEC(fecIn, encoding.DefaultInterleaveDepth)
		frameBytes, err := encoding.CreateFrame(msgType, frag.Flags, frag.Sequence, fec)
		if err != nil {
			return nil, fmt.Errorf("engine: build frame: %w", err)
		}
		frames = append(frames, frameBytes)
	}

	now := time.Now()
	e.queueMu.Lock()
	for _, f := range frames {
		e.scheduler.Queue().Enqueue(f, priority, now)
	}
	depth := e.scheduler.Queue().Len()
	e.queueMu.Unlock()

	e.metrics.QueueDepth.Set(float64(depth))
	e.metrics.FramesTxTotal.Add(float64(len(frames)))
	return frames, nil
}

func (e *Engine) sendBeacon() {
	e.beaconSeq++
	b := mesh.BeaconPayload{DeviceID: e.deviceID, Name: e.deviceName, Timestamp: time.Now(), Sequence: e.beaconSeq}
	if _, err := e.enqueueBytes(encoding.MsgBeacon, b.Encode(), beaconPriority); err != nil {
		log.Printf("engine: beacon send: %v", err)
	}
}

func (e *Engine) sendAck(to uuid.UUID, msgID uint32) {
	body := encodeEnvelope(to, e.deviceID, msgID, nil)
	if _, err := e.enqueueBytes(encoding.MsgAck, body, ackPriority); err != nil {
		log.Printf("engine: ack send: %v", err)
	}
}

// SendFrame queues message for peer ("" or "broadcast" for a broadcast
// send) at priority, tracking acknowledgement and retry for unicast
// sends. It returns once the send is queued, not once it is delivered.
func (e *Engine) SendFrame(peer, message string, priority int) error {
	var to uuid.UUID
	broadcast := peer == "" || strings.EqualFold(peer, "broadcast")
	if !broadcast {
		parsed, err := uuid.Parse(peer)
		if err != nil {
			return fmt.Errorf("engine: invalid peer id %q: %w", peer, err)
		}
		to = parsed
	}

	msgID := e.nextMsgID()
	body := encodeEnvelope(to, e.deviceID, msgID, []byte(message))

	frames, err := e.enqueueBytes(encoding.MsgData, body, priority)
	if err != nil {
		return err
	}

	if !broadcast {
		e.pendMu.Lock()
		e.pending[msgID] = &pendingSend{
			frames:   frames,
			priority: priority,
			peer:     to,
			deadline: time.Now().Add(ackWindow),
		}
		e.pendMu.Unlock()
	}

	label := peer
	if broadcast {
		label = "broadcast"
	}
	rec := protocol.FrameRecord{Timestamp: time.Now(), Peer: label, Payload: message, Priority: priority}
	e.recordFrame(rec, "tx")

	return nil
}
