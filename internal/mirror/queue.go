package mirror

import "sync"

// Queue is the hand-off between classification workers and the download
// drain loop: many concurrent producers, one consumer. It is unbounded so
// producers never block behind slow downloads, and carries an explicit
// end-of-production signal.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Job
	closed bool
}

// NewQueue creates an empty open queue
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a job. Safe for concurrent producers while the queue is open;
// pushing after Close is a programming error.
func (q *Queue) Push(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		panic("mirror: push on closed queue")
	}

	q.items = append(q.items, job)
	q.cond.Signal()
}

// Close signals that no further jobs will be pushed. Called exactly once,
// after all producers have finished.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Pop blocks until a job is available or the queue is closed and drained,
// in which case ok is false. Arrival order is arbitrary from the consumer's
// point of view; no ordering is guaranteed.
func (q *Queue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return Job{}, false
	}

	job := q.items[0]
	q.items = q.items[1:]
	return job, true
}

// Len reports the current backlog size
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
