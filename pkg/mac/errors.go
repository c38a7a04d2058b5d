package mac

import "errors"

// ErrQueueFull is the error for a frame enqueued past a caller-imposed
// capacity. TransmitQueue itself is unbounded and never returns it,
// and the engine's outbound path does not cap the queue.
var ErrQueueFull = errors.New("mac: transmit queue full")

// ErrNoFreeSlots describes a coordinator request that cannot be served
// because the free slot pool is smaller than the number of slots
// requested. AssignCoordinator reports such requests in its denied
// list rather than returning this error.
var ErrNoFreeSlots = errors.New("mac: no free slots for request")

// ErrAckTimeout marks a unicast frame whose acknowledgement window
// elapsed without an ACK after retries were exhausted. The engine logs
// it and drops the frame; it is not returned to the caller of the send.
var ErrAckTimeout = errors.New("mac: acknowledgement timeout")
