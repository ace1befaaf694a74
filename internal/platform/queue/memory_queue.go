package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// MemoryQueue is the single process fallback used when Redis is not configured.
type MemoryQueue struct {
	mu    sync.Mutex
	items jobHeap
	known map[string]struct{}
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{known: map[string]struct{}{}}
}

func (q *MemoryQueue) Add(ctx context.Context, job Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.known[job.ID]; dup {
		return false, nil
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	q.known[job.ID] = struct{}{}
	heap.Push(&q.items, job)
	return true, nil
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return nil, ErrEmpty
	}
	job := heap.Pop(&q.items).(Job)
	return &job, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.known, id)
	return nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(q.items.Len()), nil
}

type jobHeap []Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return score(h[i]) < score(h[j]) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)        { *h = append(*h, x.(Job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
