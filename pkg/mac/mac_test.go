package mac

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsPerFrameDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 20, cfg.SlotsPerFrame())
}

func TestCurrentSlotAdvances(t *testing.T) {
	cfg := DefaultConfig()
	start := time.Unix(0, 0)
	assert.Equal(t, 0, cfg.CurrentSlot(start, start))
	assert.Equal(t, 1, cfg.CurrentSlot(start, start.Add(50*time.Millisecond)))
	assert.Equal(t, 19, cfg.CurrentSlot(start, start.Add(19*50*time.Millisecond)))
	// wraps at frame boundary
	assert.Equal(t, 0, cfg.CurrentSlot(start, start.Add(1000*time.Millisecond)))
}

func TestAssignCoordinatorSpreadsSlots(t *testing.T) {
	devA := uuid.New()
	devB := uuid.New()

	requests := []SlotRequest{
		{Device: devA, Count: 3, Priority: 5},
		{Device: devB, Count: 2, Priority: 1},
	}

	assignments, denied := AssignCoordinator(requests, 20)
	require.Empty(t, denied)
	require.Len(t, assignments[devA], 3)
	require.Len(t, assignments[devB], 2)

	seen := make(map[int]bool)
	for _, slots := range assignments {
		for _, s := range slots {
			assert.False(t, seen[s], "slot %d double-assigned", s)
			seen[s] = true
			assert.GreaterOrEqual(t, s, 0)
			assert.Less(t, s, 20)
		}
	}
}

func TestAssignCoordinatorDeniesOversizedRequest(t *testing.T) {
	dev := uuid.New()
	requests := []SlotRequest{{Device: dev, Count: 25, Priority: 1}}

	assignments, denied := AssignCoordinator(requests, 20)
	assert.Empty(t, assignments)
	require.Len(t, denied, 1)
	assert.Equal(t, dev, denied[0])
}

func TestAssignCoordinatorHonorsPriorityOrder(t *testing.T) {
	low := uuid.New()
	high := uuid.New()

	// Only 5 free slots; the low-priority request alone would fit, but
	// once the high-priority request is served first there may not be
	// room left, so it should be denied rather than partially filled.
	requests := []SlotRequest{
		{Device: low, Count: 5, Priority: 1},
		{Device: high, Count: 5, Priority: 10},
	}

	assignments, denied := AssignCoordinator(requests, 5)
	assert.Contains(t, assignments, high)
	assert.Len(t, assignments[high], 5)
	assert.Contains(t, denied, low)
}

func TestAssignContentionDeterministic(t *testing.T) {
	dev := uuid.New()
	a := AssignContention(dev, 2, 4, 20)
	b := AssignContention(dev, 2, 4, 20)
	assert.Equal(t, a, b)
	for _, s := range a {
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 20)
	}
}

func TestAssignContentionDiffersAcrossDevices(t *testing.T) {
	a := AssignContention(uuid.New(), 1, 0, 20)
	b := AssignContention(uuid.New(), 1, 0, 20)
	// Not a strict guarantee for arbitrary UUIDs, but collisions across
	// two random v4 UUIDs at 20 slots are rare enough to assert on.
	assert.NotEqual(t, a, b)
}

func TestBackoffWindowGrowsAndWraps(t *testing.T) {
	b := NewBackoff(rand.NewSource(1))
	slot := b.OnCollision(19, 20)
	assert.GreaterOrEqual(t, slot, 0)
	assert.Less(t, slot, 20)
	assert.Equal(t, 1, b.Collisions())

	for i := 0; i < 5; i++ {
		b.OnCollision(0, 20)
	}
	assert.Equal(t, 6, b.Collisions())

	b.Reset()
	assert.Equal(t, 0, b.Collisions())
}

func TestTransmitQueueOrdersByPriorityThenAge(t *testing.T) {
	q := NewTransmitQueue()
	base := time.Unix(100, 0)

	low := q.Enqueue([]byte("low"), 1, base)
	high := q.Enqueue([]byte("high"), 9, base.Add(time.Second))
	midEarly := q.Enqueue([]byte("mid-early"), 5, base)
	midLate := q.Enqueue([]byte("mid-late"), 5, base.Add(time.Second))

	require.Equal(t, 4, q.Len())
	assert.Equal(t, high, q.Dequeue())
	assert.Equal(t, midEarly, q.Dequeue())
	assert.Equal(t, midLate, q.Dequeue())
	assert.Equal(t, low, q.Dequeue())
	assert.Nil(t, q.Dequeue())
}

func TestTransmitQueueRequeueBumpsRetries(t *testing.T) {
	q := NewTransmitQueue()
	qf := q.Enqueue([]byte("frame"), 3, time.Unix(0, 0))
	q.Dequeue()
	q.Requeue(qf, time.Unix(1, 0))
	assert.Equal(t, 1, qf.Retries)
	assert.Equal(t, 1, q.Len())
}

func TestSlotTableUtilization(t *testing.T) {
	local := uuid.New()
	table := NewSlotTable(local, 20)
	assert.Equal(t, 0.0, table.Utilization())

	table.AssignMany([]int{0, 1, 2}, local)
	assert.InDelta(t, 3.0/20.0, table.Utilization(), 0.0001)
	assert.True(t, table.IsLocalSlot(0))
	assert.False(t, table.IsLocalSlot(5))
	assert.Equal(t, []int{0, 1, 2}, table.LocalSlots())
}

func TestSchedulerDequeuesOnLocalSlot(t *testing.T) {
	local := uuid.New()
	cfg := DefaultConfig()
	start := time.Unix(0, 0)

	sched := NewScheduler(cfg, ModeCoordinator, local, 0, 0, start)
	sched.Table().AssignMany([]int{2}, local)
	sched.Queue().Enqueue([]byte("payload"), 5, start)

	// slot 0: not our slot
	assert.Nil(t, sched.Tick(start))
	// slot 2: our slot, frame ready to go
	got := sched.Tick(start.Add(2 * cfg.SlotDuration))
	require.NotNil(t, got)
	assert.Equal(t, []byte("payload"), got.Frame)
}

func TestSchedulerCollisionAppliesBackoff(t *testing.T) {
	local := uuid.New()
	cfg := DefaultConfig()
	start := time.Unix(0, 0)

	sched := NewScheduler(cfg, ModeContention, local, 1, 0, start)
	before := sched.Table().LocalSlots()
	require.Len(t, before, 1)

	sched.ReportCollision(start)
	after := sched.Table().LocalSlots()
	require.Len(t, after, 1)
}
