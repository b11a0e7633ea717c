// Package sched runs deferred one-shot tasks, such as the self-deleting
// exclusivity warning. Everything here is best-effort: a task that cannot
// fire is logged, never escalated.
package sched

import (
	"container/heap"
	"log"
	"sync"
	"time"
)

// Scheduler defers fn by d. Implementations are fire-once and
// cancellation-agnostic.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type task struct {
	at time.Time
	fn func()
}

type taskHeap []task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)         { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Queue is a deadline-queue scheduler: one goroutine sleeps until the
// earliest deadline and runs due tasks in order.
type Queue struct {
	mu      sync.Mutex
	tasks   taskHeap
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

// After schedules fn to run once, roughly d from now. Tasks scheduled after
// Stop are dropped with a log line.
func (q *Queue) After(d time.Duration, fn func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		log.Printf("sched: queue stopped, dropping deferred task")
		return
	}
	heap.Push(&q.tasks, task{at: time.Now().Add(d), fn: fn})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Stop shuts the loop down. Pending tasks are dropped; in this service they
// are all cosmetic deletes.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return
		}
		var wait time.Duration
		if len(q.tasks) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(q.tasks[0].at)
		}
		q.mu.Unlock()

		if wait > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-q.wake:
				continue
			}
		}

		for {
			q.mu.Lock()
			if q.stopped {
				q.mu.Unlock()
				return
			}
			if len(q.tasks) == 0 || q.tasks[0].at.After(time.Now()) {
				q.mu.Unlock()
				break
			}
			t := heap.Pop(&q.tasks).(task)
			q.mu.Unlock()
			runTask(t.fn)
		}
	}
}

func runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sched: deferred task panicked: %v", r)
		}
	}()
	fn()
}

var _ Scheduler = (*Queue)(nil)
