// Package mac implements the time-slotted medium access layer: TDMA
// frame/slot timing, coordinator and contention slot assignment,
// collision backoff, and the priority-ordered transmit queue.
package mac

import "time"

// Config is the MAC layer's immutable timing configuration.
type Config struct {
	FrameDuration time.Duration
	SlotDuration  time.Duration
}

// DefaultConfig returns a 1000ms frame divided into 20 slots of 50ms each.
func DefaultConfig() Config {
	return Config{
		FrameDuration: 1000 * time.Millisecond,
		SlotDuration:  50 * time.Millisecond,
	}
}

// SlotsPerFrame is FrameDuration/SlotDuration.
func (c Config) SlotsPerFrame() int {
	return int(c.FrameDuration / c.SlotDuration)
}

// CurrentSlot derives the slot index in [0, SlotsPerFrame) for now,
// given the frame grid's epoch (frameStart), from the local monotonic
// clock.
func (c Config) CurrentSlot(frameStart, now time.Time) int {
	elapsed := now.Sub(frameStart)
	slot := int(elapsed/c.SlotDuration) % c.SlotsPerFrame()
	if slot < 0 {
		slot += c.SlotsPerFrame()
	}
	return slot
}

// AlignedFrameStart rounds down `now` to the nearest wall-clock multiple
// of FrameDuration, giving independently started devices a common grid.
func AlignedFrameStart(cfg Config, now time.Time) time.Time {
	unixNanos := now.UnixNano()
	frameNanos := cfg.FrameDuration.Nanoseconds()
	aligned := (unixNanos / frameNanos) * frameNanos
	return time.Unix(0, aligned)
}
