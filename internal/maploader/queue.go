package maploader

import "sync"

// Queue is the unbounded FIFO carrying result events from the worker to the
// sync loop. Push never blocks the producer; TryPop never blocks the
// consumer. Single producer, single consumer: Finished is always observed
// after every preceding event of its batch.
type Queue struct {
	mu    sync.Mutex
	items []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest event, or ok=false when empty.
func (q *Queue) TryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
