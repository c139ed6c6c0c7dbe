package reduce

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
)

// candidateHeap implements heap.Interface, ordered so the candidate with
// the highest score pops first. Ties break toward the candidate enqueued
// first (FIFO within a score band), matching the original's queue being a
// simple FIFO when no oracle history distinguishes two reducers yet.
type candidateHeap []*queuedCandidate

type queuedCandidate struct {
	reduction PotentialReduction
	score     float64
	seq       int64
}

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(*queuedCandidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// ReductionQueue is the supervisor's work queue of unjudged candidates,
// dispatched in order of oracle score. It pairs a priority heap (for
// ordering) with a buffered channel (for bounded depth and backpressure),
// so a burst of candidates from a fast reducer cannot grow memory without
// bound while a slow predicate catches up.
type ReductionQueue struct {
	oracle   *Oracle
	capacity int

	mu   sync.Mutex
	cond *sync.Cond
	heap candidateHeap
	sema chan struct{}
	seq  int64

	totalEnqueued atomic.Int64
	totalDequeued atomic.Int64
}

// NewReductionQueue returns a ReductionQueue bounded to capacity entries,
// scoring candidates against oracle.
func NewReductionQueue(oracle *Oracle, capacity int) *ReductionQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &ReductionQueue{
		oracle:   oracle,
		capacity: capacity,
		sema:     make(chan struct{}, capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.heap)
	return q
}

// Enqueue adds a candidate to the queue, blocking if the queue is at
// capacity until space frees up or ctx is done.
func (q *ReductionQueue) Enqueue(ctx context.Context, reduction PotentialReduction) error {
	select {
	case q.sema <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	q.seq++
	heap.Push(&q.heap, &queuedCandidate{
		reduction: reduction,
		score:     q.oracle.Score(reduction.ReducerID),
		seq:       q.seq,
	})
	q.mu.Unlock()
	q.cond.Signal()

	q.totalEnqueued.Add(1)
	return nil
}

// Dequeue removes and returns the highest-scoring candidate, blocking
// until one is available or ctx is done.
func (q *ReductionQueue) Dequeue(ctx context.Context) (PotentialReduction, error) {
	var zero PotentialReduction

	// Wake this Dequeue's cond.Wait if ctx is cancelled while the heap is
	// empty; sync.Cond has no native context support.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-done:
		}
	}()

	q.mu.Lock()
	for q.heap.Len() == 0 {
		if ctx.Err() != nil {
			q.mu.Unlock()
			return zero, ctx.Err()
		}
		q.cond.Wait()
	}
	item := heap.Pop(&q.heap).(*queuedCandidate)
	q.mu.Unlock()

	<-q.sema
	q.totalDequeued.Add(1)
	return item.reduction, nil
}

// Len returns the number of unjudged candidates currently queued.
func (q *ReductionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Filter evicts every queued candidate for which keep returns false,
// releasing their reserved capacity slots, and returns the evicted
// candidates so the caller can release their temp files. Used by the
// supervisor to drop candidates whose parent commit is no longer on the
// path to the current smallest.
func (q *ReductionQueue) Filter(keep func(PotentialReduction) bool) []PotentialReduction {
	q.mu.Lock()
	var kept candidateHeap
	var removed []PotentialReduction
	for _, item := range q.heap {
		if keep(item.reduction) {
			kept = append(kept, item)
		} else {
			removed = append(removed, item.reduction)
		}
	}
	q.heap = kept
	heap.Init(&q.heap)
	q.mu.Unlock()

	for range removed {
		<-q.sema
	}
	return removed
}

// Stats returns cumulative enqueue/dequeue counts.
func (q *ReductionQueue) Stats() (enqueued, dequeued int64) {
	return q.totalEnqueued.Load(), q.totalDequeued.Load()
}
