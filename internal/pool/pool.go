// Package pool implements the BSGS engine's worker pool: a priority task
// queue executed by a fixed set of goroutines, with pause/resume and
// parallel_for/parallel_reduce helpers built on top (§4.4).
package pool

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Priority is a 2-bit priority level; the queue is a max-heap on priority
// with FIFO ordering among equal priorities.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

// Task is a unit of work submitted to the pool.
type Task func(ctx context.Context)

type taskItem struct {
	task     Task
	priority Priority
	seq      int64
	submitAt time.Time
}

// taskHeap is a max-heap on (priority, then earliest seq first).
type taskHeap []*taskItem

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(*taskItem)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Pool is a fixed-size worker pool with a priority queue, pause/resume,
// and atomic wait/execution-time accounting.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    taskHeap
	nextSeq  int64
	paused   bool
	shutdown bool
	workers  int

	wg sync.WaitGroup

	totalWaitNanos int64
	totalExecNanos int64
	tasksRun       int64

	doneCh chan struct{} // allocated by New; nothing closes or reads it
}

// New starts a pool with the given number of worker goroutines.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{doneCh: make(chan struct{}), workers: workers}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	return p
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		item, ok := p.popBlocking()
		if !ok {
			return
		}
		waited := time.Since(item.submitAt)
		atomic.AddInt64(&p.totalWaitNanos, int64(waited))

		start := time.Now()
		item.task(context.Background())
		atomic.AddInt64(&p.totalExecNanos, int64(time.Since(start)))
		atomic.AddInt64(&p.tasksRun, 1)
	}
}

// popBlocking waits for a task while respecting pause and shutdown state.
// Pause is checked before every pop so queued tasks wait, per §4.4.
func (p *Pool) popBlocking() (*taskItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.shutdown && p.queue.Len() == 0 {
			return nil, false
		}
		if !p.paused && p.queue.Len() > 0 {
			item := heap.Pop(&p.queue).(*taskItem)
			return item, true
		}
		p.cond.Wait()
	}
}

// Submit enqueues a task at the given priority.
func (p *Pool) Submit(task Task, priority Priority) {
	p.mu.Lock()
	p.nextSeq++
	heap.Push(&p.queue, &taskItem{task: task, priority: priority, seq: p.nextSeq, submitAt: time.Now()})
	p.mu.Unlock()
	p.cond.Signal()
}

// SubmitBatch enqueues many tasks at the same priority.
func (p *Pool) SubmitBatch(tasks []Task, priority Priority) {
	p.mu.Lock()
	for _, t := range tasks {
		p.nextSeq++
		heap.Push(&p.queue, &taskItem{task: t, priority: priority, seq: p.nextSeq, submitAt: time.Now()})
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Pause blocks worker pops until Resume is called; queued tasks remain
// queued.
func (p *Pool) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume un-pauses the pool.
func (p *Pool) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Shutdown marks the pool shut down, wakes every worker, and waits for all
// queued and in-flight tasks to complete. Submit does not check the
// shut-down state; a task submitted after the workers have exited is
// never run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Wait blocks until the queue has drained; tasks already taken by a worker
// may still be executing when it returns. It is a best-effort drain check: callers that need a hard barrier should use
// WaitFor with an explicit external completion signal instead.
func (p *Pool) Wait() {
	for {
		p.mu.Lock()
		empty := p.queue.Len() == 0
		p.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// WaitFor blocks until the queue drains or timeout elapses, returning
// false on deadline without cancelling outstanding tasks.
func (p *Pool) WaitFor(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		empty := p.queue.Len() == 0
		p.mu.Unlock()
		if empty {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Stats reports cumulative wait/execution time and completed task count.
type Stats struct {
	TasksRun       int64
	TotalWait      time.Duration
	TotalExecution time.Duration
}

// Stats returns a snapshot of the pool's atomic counters.
func (p *Pool) Stats() Stats {
	return Stats{
		TasksRun:       atomic.LoadInt64(&p.tasksRun),
		TotalWait:      time.Duration(atomic.LoadInt64(&p.totalWaitNanos)),
		TotalExecution: time.Duration(atomic.LoadInt64(&p.totalExecNanos)),
	}
}

// QueueLen returns the current queue depth, for tests and diagnostics.
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Workers returns the number of worker goroutines the pool was started
// with, used to size default chunk widths in ParallelFor/ParallelReduce.
func (p *Pool) Workers() int {
	return p.workers
}
