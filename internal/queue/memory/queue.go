// Package memory provides the in-process scan request queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/civicwire/videoscan/internal/worker"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan worker.ScanRequest
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan worker.ScanRequest, capacity),
	}
}

// Enqueue pushes a scan request or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, req worker.ScanRequest) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- req:
		return nil
	}
}

// Dequeue pops the next request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (worker.ScanRequest, error) {
	select {
	case <-ctx.Done():
		return worker.ScanRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return worker.ScanRequest{}, errors.New("queue closed")
		}
		return req, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
