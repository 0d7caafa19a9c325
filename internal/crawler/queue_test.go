package crawler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.Push(PageJob{Number: 1}))
	assert.True(t, q.Push(PageJob{Number: 2}))

	q.Stop()
	assert.False(t, q.Push(PageJob{Number: 3}), "stopped queue rejects jobs")

	job, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, job.Number)
	job, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, job.Number)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueStopWakesWaiters(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	results := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Pop()
			results <- ok
		}()
	}

	q.Push(PageJob{Number: 7})
	q.Stop()
	wg.Wait()
	close(results)

	got := 0
	for ok := range results {
		if ok {
			got++
		}
	}
	assert.Equal(t, 1, got)
}
