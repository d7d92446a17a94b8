package shadermap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderQueueOrder(t *testing.T) {
	q := NewRenderQueue()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(func() { got = append(got, i) })
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 5, q.DrainFrame())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, q.Len())
}

func TestRenderQueueEnqueueDuringDrain(t *testing.T) {
	q := NewRenderQueue()
	ran := false
	q.Enqueue(func() {
		q.Enqueue(func() { ran = true })
	})

	// A command enqueued while draining belongs to the next frame.
	assert.Equal(t, 1, q.DrainFrame())
	assert.False(t, ran)
	assert.Equal(t, 1, q.DrainFrame())
	assert.True(t, ran)
}

func TestRenderQueueConcurrentEnqueue(t *testing.T) {
	q := NewRenderQueue()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(func() {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, q.DrainFrame())
	assert.Equal(t, 100, count)
}
