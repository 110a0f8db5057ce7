// Package audio jitter buffer.
//
// This file implements the bounded frame queue between the backend producer
// and the playout goroutine. The backend may push from several internal
// tasks, so enqueue is multi-producer safe; the pump is the only consumer.
package audio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultQueueCap bounds the playout queue at roughly 100 seconds of audio.
// The backend has no flow-control channel, so overflow drops the oldest
// frame instead of applying back-pressure.
const DefaultQueueCap = 5000

// JitterBuffer is a mutex-guarded bounded FIFO of 20ms PCM frames.
type JitterBuffer struct {
	mu      sync.Mutex
	frames  [][]int16
	cap     int
	dropped uint64
}

// NewJitterBuffer creates a buffer bounded at capacity frames; zero or
// negative selects DefaultQueueCap.
func NewJitterBuffer(capacity int) *JitterBuffer {
	if capacity <= 0 {
		capacity = DefaultQueueCap
	}
	return &JitterBuffer{
		frames: make([][]int16, 0, 64),
		cap:    capacity,
	}
}

// Push appends a frame, dropping the oldest queued frame first when the
// buffer is full. It reports whether a drop occurred. Push never blocks.
func (b *JitterBuffer) Push(frame []int16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if len(b.frames) >= b.cap {
		b.frames = b.frames[1:]
		b.dropped++
		dropped = true
		if b.dropped == 1 || b.dropped%100 == 0 {
			logrus.WithFields(logrus.Fields{
				"function":      "JitterBuffer.Push",
				"capacity":      b.cap,
				"total_dropped": b.dropped,
			}).Warn("Playout queue overflow, dropping oldest frame")
		}
	}
	b.frames = append(b.frames, frame)
	return dropped
}

// Pop removes and returns the oldest frame, reporting whether one existed.
func (b *JitterBuffer) Pop() ([]int16, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return nil, false
	}
	frame := b.frames[0]
	b.frames[0] = nil
	b.frames = b.frames[1:]
	return frame, true
}

// Len returns the current queue depth in frames.
func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Clear discards all queued frames and returns how many were discarded.
func (b *JitterBuffer) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.frames)
	b.frames = b.frames[:0]
	return n
}

// Dropped returns the total number of frames dropped to overflow.
func (b *JitterBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
