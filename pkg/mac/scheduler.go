package mac

import (
	"math/rand"
	"time"
)

// Mode selects how the local device obtains its slots.
type Mode int

const (
	// ModeContention derives slots from a hash of the device identifier,
	// with no coordinator; collisions are resolved by backoff.
	ModeContention Mode = iota
	// ModeCoordinator expects slots to arrive via Assign/AssignMany from
	// an external coordinator round.
	ModeCoordinator
)

// Scheduler ties together the slot table, the transmit queue, and
// collision backoff, and decides whether the current tick is a
// transmit opportunity for the local device.
type Scheduler struct {
	cfg       Config
	mode      Mode
	localID   DeviceID
	table     *SlotTable
	queue     *TransmitQueue
	backoff   *Backoff
	requested int // slots requested in contention mode
	priority  int

	frameStart time.Time
	lastSlot   int
}

// NewScheduler constructs a scheduler for localID, requesting
// requestedSlots slots at the given priority in contention mode (mode
// is irrelevant to the request count under ModeCoordinator, where
// slots instead arrive via Table().AssignMany).
func NewScheduler(cfg Config, mode Mode, localID DeviceID, requestedSlots, priority int, now time.Time) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		mode:       mode,
		localID:    localID,
		table:      NewSlotTable(localID, cfg.SlotsPerFrame()),
		queue:      NewTransmitQueue(),
		backoff:    NewBackoff(rand.NewSource(now.UnixNano())),
		requested:  requestedSlots,
		priority:   priority,
		frameStart: AlignedFrameStart(cfg, now),
		lastSlot:   -1,
	}
	if mode == ModeContention {
		slots := AssignContention(localID, requestedSlots, priority, cfg.SlotsPerFrame())
		s.table.AssignMany(slots, localID)
	}
	return s
}

// Table exposes the underlying slot table, e.g. for a coordinator to
// call AssignMany/Reset directly.
func (s *Scheduler) Table() *SlotTable { return s.table }

// Queue exposes the underlying transmit queue.
func (s *Scheduler) Queue() *TransmitQueue { return s.queue }

// OnFrameStart re-derives the frame epoch and, in contention mode,
// re-derives local slots (they are a pure function of identifier,
// request size, and priority, so this is idempotent absent a collision
// backoff override already applied this frame).
func (s *Scheduler) OnFrameStart(now time.Time) {
	s.frameStart = AlignedFrameStart(s.cfg, now)
	s.table.Reset()
	if s.mode == ModeContention {
		slots := AssignContention(s.localID, s.requested, s.priority, s.cfg.SlotsPerFrame())
		s.table.AssignMany(slots, s.localID)
	}
}

// Tick evaluates the current slot for now and, if it is a local
// transmit slot and the queue holds a frame, dequeues and returns it.
// It returns nil when there is nothing to transmit this slot.
func (s *Scheduler) Tick(now time.Time) *QueuedFrame {
	slot := s.cfg.CurrentSlot(s.frameStart, now)
	if slot == s.lastSlot {
		return nil // already serviced this slot
	}
	s.lastSlot = slot

	if !s.table.IsLocalSlot(slot) {
		return nil
	}
	qf := s.queue.Dequeue()
	if qf != nil {
		s.backoff.Reset()
	}
	return qf
}

// ReportCollision records a collision on the current slot and, in
// contention mode, replaces the local device's assigned slot set with
// the single backed-off retry slot. The caller is expected to requeue
// the frame that collided via Queue().Requeue.
func (s *Scheduler) ReportCollision(now time.Time) {
	slot := s.cfg.CurrentSlot(s.frameStart, now)
	next := s.backoff.OnCollision(slot, s.cfg.SlotsPerFrame())
	if s.mode == ModeContention {
		s.table.ClearOwner(s.localID)
		s.table.Assign(next, s.localID)
	}
}

// CurrentSlot reports the slot index for now under this scheduler's
// frame epoch.
func (s *Scheduler) CurrentSlot(now time.Time) int {
	return s.cfg.CurrentSlot(s.frameStart, now)
}

// Utilization reports the fraction of slots currently assigned.
func (s *Scheduler) Utilization() float64 {
	return s.table.Utilization()
}
