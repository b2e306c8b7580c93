package das

import (
	"context"
	"errors"
	"sync"
)

var errQueueClosed = errors.New("das: queue closed")

// queue is an unbounded FIFO safe for many producers and consumers. Pushes
// never block.
type queue[T any] struct {
	lk     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

func (q *queue[T]) push(item T) error {
	q.lk.Lock()
	if q.closed {
		q.lk.Unlock()
		return errQueueClosed
	}
	q.items = append(q.items, item)
	q.lk.Unlock()

	q.signal()
	return nil
}

// pop blocks until an item is available, the queue is closed and drained, or
// ctx is done.
func (q *queue[T]) pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.lk.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.lk.Unlock()
			if more {
				// wake another consumer
				q.signal()
			}
			return item, nil
		}
		closed := q.closed
		q.lk.Unlock()
		if closed {
			q.signal()
			return zero, errQueueClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (q *queue[T]) close() {
	q.lk.Lock()
	q.closed = true
	q.lk.Unlock()
	q.signal()
}

func (q *queue[T]) len() int {
	q.lk.Lock()
	defer q.lk.Unlock()
	return len(q.items)
}

func (q *queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
