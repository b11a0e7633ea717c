package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueFiresInDeadlineOrder(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	var order []int
	done := make(chan struct{})

	q.After(60*time.Millisecond, func() {
		order = append(order, 2)
		close(done)
	})
	q.After(10*time.Millisecond, func() {
		order = append(order, 1)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("tasks did not fire")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("fire order = %v, want [1 2]", order)
	}
}

func TestQueueSurvivesPanickingTask(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	fired := make(chan struct{})
	q.After(time.Millisecond, func() { panic("boom") })
	q.After(20*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("queue died after a panicking task")
	}
}

func TestStopDropsPendingTasks(t *testing.T) {
	q := NewQueue()
	var fired atomic.Bool
	q.After(time.Hour, func() { fired.Store(true) })
	q.Stop()

	// After Stop, late submissions are dropped too.
	q.After(time.Millisecond, func() { fired.Store(true) })
	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("no task should fire after Stop")
	}
}
