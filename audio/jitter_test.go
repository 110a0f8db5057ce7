package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterBufferFIFO(t *testing.T) {
	b := NewJitterBuffer(10)

	for i := int16(0); i < 5; i++ {
		b.Push([]int16{i})
	}
	assert.Equal(t, 5, b.Len())

	for i := int16(0); i < 5; i++ {
		frame, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, i, frame[0], "frames must come out in push order")
	}
	_, ok := b.Pop()
	assert.False(t, ok)
}

func TestJitterBufferOverflowDropsOldest(t *testing.T) {
	b := NewJitterBuffer(3)

	for i := int16(0); i < 3; i++ {
		assert.False(t, b.Push([]int16{i}))
	}
	assert.True(t, b.Push([]int16{3}), "push past capacity must report the drop")

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(1), b.Dropped())

	frame, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, int16(1), frame[0], "the oldest frame is the one dropped")
}

func TestJitterBufferNeverExceedsCap(t *testing.T) {
	b := NewJitterBuffer(50)
	for i := 0; i < 500; i++ {
		b.Push([]int16{int16(i)})
		assert.LessOrEqual(t, b.Len(), 50)
	}
	assert.Equal(t, uint64(450), b.Dropped())
}

func TestJitterBufferClear(t *testing.T) {
	b := NewJitterBuffer(10)
	b.Push([]int16{1})
	b.Push([]int16{2})

	assert.Equal(t, 2, b.Clear())
	assert.Equal(t, 0, b.Len())
	_, ok := b.Pop()
	assert.False(t, ok)
}

func TestJitterBufferDefaultCap(t *testing.T) {
	b := NewJitterBuffer(0)
	for i := 0; i < DefaultQueueCap+10; i++ {
		b.Push([]int16{0})
	}
	assert.Equal(t, DefaultQueueCap, b.Len())
}

func TestJitterBufferConcurrentProducers(t *testing.T) {
	b := NewJitterBuffer(1000)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Push([]int16{0})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, b.Len())
	assert.Equal(t, uint64(600), b.Dropped())
}
