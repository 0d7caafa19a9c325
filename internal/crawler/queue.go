package crawler

import (
	"sync"
)

// PageJob is one listing page waiting to be processed
type PageJob struct {
	Number int
}

// Queue implements a thread-safe FIFO of page jobs
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []PageJob
	stopped bool
}

// NewQueue creates a new page queue
func NewQueue() *Queue {
	q := &Queue{
		items: make([]PageJob, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a job
// Returns false once the queue is stopped
func (q *Queue) Push(job PageJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	q.items = append(q.items, job)

	// Signal waiting workers
	q.cond.Signal()

	return true
}

// Pop removes and returns the first job from the queue
// Blocks if queue is empty and not stopped
// Returns (job, true) if successful, (empty, false) if stopped and empty
func (q *Queue) Pop() (PageJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.items) > 0 {
			job := q.items[0]
			q.items = q.items[1:]
			return job, true
		}

		if q.stopped {
			return PageJob{}, false
		}

		q.cond.Wait()
	}
}

// Stop closes the queue for new jobs
// Workers blocked on Pop() will drain remaining jobs, then receive false
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}
