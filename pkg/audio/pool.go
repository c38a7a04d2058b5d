package audio

import (
	"log"
	"sync"
	"sync/atomic"
)

// SampleBuffer is a reusable float32 sample block with metadata for
// returning it to the pool it came from.
type SampleBuffer struct {
	Data []float32
	Size int
	pool *BufferPool
}

// Reset zeroes the buffer's contents so a reused buffer never leaks a
// previous block's samples into new data.
func (b *SampleBuffer) Reset() {
	for i := range b.Data {
		b.Data[i] = 0
	}
	b.Size = 0
}

// Release returns the buffer to its owning pool.
func (b *SampleBuffer) Release() {
	if b.pool != nil {
		b.pool.Put(b)
	}
}

// BufferPool manages size-tiered pools of sample buffers, avoiding an
// allocation on every block the physical/signalcond pipeline touches.
type BufferPool struct {
	smallPool  *sync.Pool // <= 1024 samples
	mediumPool *sync.Pool // <= 4096 samples
	largePool  *sync.Pool // <= 16384 samples

	smallHits, mediumHits, largeHits int64
	smallMiss, mediumMiss, largeMiss int64

	maxBufferSize int
	statistics    bool
}

// NewBufferPool constructs a buffer pool. Buffers requested larger than
// maxBufferSize are allocated directly instead of being drawn from a
// size tier.
func NewBufferPool(maxBufferSize int, statistics bool) *BufferPool {
	p := &BufferPool{maxBufferSize: maxBufferSize, statistics: statistics}

	p.smallPool = &sync.Pool{New: func() any {
		if statistics {
			atomic.AddInt64(&p.smallMiss, 1)
		}
		return &SampleBuffer{Data: make([]float32, 1024), pool: p}
	}}
	p.mediumPool = &sync.Pool{New: func() any {
		if statistics {
			atomic.AddInt64(&p.mediumMiss, 1)
		}
		return &SampleBuffer{Data: make([]float32, 4096), pool: p}
	}}
	p.largePool = &sync.Pool{New: func() any {
		if statistics {
			atomic.AddInt64(&p.largeMiss, 1)
		}
		return &SampleBuffer{Data: make([]float32, 16384), pool: p}
	}}

	return p
}

var (
	globalPool     *BufferPool
	globalPoolOnce sync.Once
)

// GlobalPool returns the process-wide sample buffer pool.
func GlobalPool() *BufferPool {
	globalPoolOnce.Do(func() {
		globalPool = NewBufferPool(16384, true)
	})
	return globalPool
}

// Get retrieves a buffer of at least size samples from the appropriate
// size tier.
func (p *BufferPool) Get(size int) *SampleBuffer {
	if size <= 0 {
		log.Printf("audio: invalid buffer size requested: %d", size)
		return &SampleBuffer{Data: make([]float32, 0), pool: p}
	}
	if size > p.maxBufferSize {
		return &SampleBuffer{Data: make([]float32, size), Size: size, pool: p}
	}

	var buf *SampleBuffer
	switch {
	case size <= 1024:
		buf = p.smallPool.Get().(*SampleBuffer)
		if p.statistics {
			atomic.AddInt64(&p.smallHits, 1)
		}
	case size <= 4096:
		buf = p.mediumPool.Get().(*SampleBuffer)
		if p.statistics {
			atomic.AddInt64(&p.mediumHits, 1)
		}
	default:
		buf = p.largePool.Get().(*SampleBuffer)
		if p.statistics {
			atomic.AddInt64(&p.largeHits, 1)
		}
	}

	if cap(buf.Data) < size {
		buf.Data = make([]float32, size)
	}
	buf.Data = buf.Data[:size]
	buf.Size = size
	return buf
}

// Put returns a buffer to its size tier, or drops it if oversized.
func (p *BufferPool) Put(buf *SampleBuffer) {
	if buf == nil || buf.Data == nil {
		return
	}
	buf.Reset()

	switch capacity := cap(buf.Data); {
	case capacity <= 1024:
		p.smallPool.Put(buf)
	case capacity <= 4096:
		p.mediumPool.Put(buf)
	case capacity <= 16384:
		p.largePool.Put(buf)
	default:
		// oversized buffers are left for the garbage collector
	}
}

// Stats reports hit/miss counters per size tier.
func (p *BufferPool) Stats() map[string]int64 {
	if !p.statistics {
		return map[string]int64{}
	}
	return map[string]int64{
		"small_hits":  atomic.LoadInt64(&p.smallHits),
		"medium_hits": atomic.LoadInt64(&p.mediumHits),
		"large_hits":  atomic.LoadInt64(&p.largeHits),
		"small_miss":  atomic.LoadInt64(&p.smallMiss),
		"medium_miss": atomic.LoadInt64(&p.mediumMiss),
		"large_miss":  atomic.LoadInt64(&p.largeMiss),
	}
}
