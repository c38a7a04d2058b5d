package mac

import (
	"container/heap"
	"time"
)

// QueuedFrame is a frame waiting for a transmit slot, ordered by
// Priority (higher first) then by EnqueueTime (earlier first).
type QueuedFrame struct {
	Frame       []byte
	Priority    int
	EnqueueTime time.Time
	Retries     int

	index int // heap.Interface bookkeeping
}

type frameHeap []*QueuedFrame

func (h frameHeap) Len() int { return len(h) }

func (h frameHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].EnqueueTime.Before(h[j].EnqueueTime)
}

func (h frameHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *frameHeap) Push(x any) {
	qf := x.(*QueuedFrame)
	qf.index = len(*h)
	*h = append(*h, qf)
}

func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// TransmitQueue is a priority queue of frames awaiting a transmit slot.
// Higher-priority frames drain first; frames of equal priority drain
// FIFO. Not safe for concurrent use without external locking.
type TransmitQueue struct {
	h frameHeap
}

// NewTransmitQueue constructs an empty transmit queue.
func NewTransmitQueue() *TransmitQueue {
	q := &TransmitQueue{}
	heap.Init(&q.h)
	return q
}

// Enqueue adds a frame to the queue at the given priority.
func (q *TransmitQueue) Enqueue(frame []byte, priority int, now time.Time) *QueuedFrame {
	qf := &QueuedFrame{Frame: frame, Priority: priority, EnqueueTime: now}
	heap.Push(&q.h, qf)
	return qf
}

// Dequeue removes and returns the highest-priority queued frame, or nil
// if the queue is empty.
func (q *TransmitQueue) Dequeue() *QueuedFrame {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*QueuedFrame)
}

// Requeue reinserts a frame after a collision, bumping its retry count.
// Its position in the heap reflects its original priority, not age, so
// a retried frame does not automatically cut ahead of fresher ones at
// the same priority.
func (q *TransmitQueue) Requeue(qf *QueuedFrame, now time.Time) {
	qf.Retries++
	qf.EnqueueTime = now
	heap.Push(&q.h, qf)
}

// Len reports the number of frames currently queued.
func (q *TransmitQueue) Len() int { return q.h.Len() }

// Peek returns the highest-priority queued frame without removing it,
// or nil if the queue is empty.
func (q *TransmitQueue) Peek() *QueuedFrame {
	if q.h.Len() == 0 {
		return nil
	}
	return q.h[0]
}
