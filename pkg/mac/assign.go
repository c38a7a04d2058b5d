package mac

import (
	"sort"

	"github.com/google/uuid"
)

// DeviceID identifies a device on the mesh for slot-assignment purposes.
type DeviceID = uuid.UUID

// SlotRequest is one device's bid for a number of TDMA slots, carrying
// the priority the coordinator should weigh it by.
type SlotRequest struct {
	Device   DeviceID
	Count    int
	Priority int
}

// AssignCoordinator runs the coordinator-mode slot assignment algorithm:
// requests are served highest-priority first, each request's k slots
// spread evenly across the pool of slots still free at the time that
// request is served. A request that cannot be fully satisfied from the
// remaining free pool is denied outright rather than partially filled.
func AssignCoordinator(requests []SlotRequest, slotsPerFrame int) (assignments map[DeviceID][]int, denied []DeviceID) {
	free := make([]int, slotsPerFrame)
	for i := range free {
		free[i] = i
	}

	ordered := make([]SlotRequest, len(requests))
	copy(ordered, requests)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	assignments = make(map[DeviceID][]int)
	for _, req := range ordered {
		if req.Count <= 0 {
			continue
		}
		if req.Count > len(free) {
			denied = append(denied, req.Device)
			continue
		}

		chosen := make([]int, req.Count)
		removeIdx := make([]int, req.Count)
		for i := 0; i < req.Count; i++ {
			idx := (len(free) * (i + 1)) / (req.Count + 1)
			if idx >= len(free) {
				idx = len(free) - 1
			}
			chosen[i] = free[idx]
			removeIdx[i] = idx
		}

		sort.Sort(sort.Reverse(sort.IntSlice(removeIdx)))
		prevIdx := -1
		for _, idx := range removeIdx {
			if idx == prevIdx {
				continue // duplicate pick from integer-division collision
			}
			free = append(free[:idx], free[idx+1:]...)
			prevIdx = idx
		}

		assignments[req.Device] = chosen
	}

	return assignments, denied
}

// contentionHash computes a rolling hash of a device identifier's bytes
// (h = h*31 + b), used to derive a deterministic contention-mode slot
// pick without coordination.
func contentionHash(id DeviceID) uint32 {
	var h uint32
	for _, b := range id {
		h = h*31 + uint32(b)
	}
	return h
}

// AssignContention derives k slot indices for a device in contention
// mode, deterministically from its identifier and priority so that two
// devices with the same identifier always land on the same slots, but
// distinct devices are spread around the frame. Two different devices
// may still collide; that is resolved by backoff, not by this function.
func AssignContention(id DeviceID, count, priority, slotsPerFrame int) []int {
	if count <= 0 || slotsPerFrame <= 0 {
		return nil
	}
	base := contentionHash(id)
	slots := make([]int, count)
	for i := 0; i < count; i++ {
		v := int(base) + 7*i + priority/2
		v %= slotsPerFrame
		if v < 0 {
			v += slotsPerFrame
		}
		slots[i] = v
	}
	return slots
}
