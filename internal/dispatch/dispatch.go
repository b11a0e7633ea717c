// Package dispatch serializes inbound events per user: one logical worker
// per user id, events handled in arrival order, users fully concurrent with
// each other.
package dispatch

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/kirill3224/privacy-sentry/internal/gateway"
)

// queueSize bounds one user's backlog; a full queue applies backpressure to
// the transport read loop rather than dropping events.
const queueSize = 16

// Handler processes one inbound event to completion.
type Handler func(ctx context.Context, u gateway.Update)

// Dispatcher fans events out to per-user queues.
type Dispatcher struct {
	handle Handler

	mu     sync.Mutex
	queues map[int64]chan gateway.Update
	wg     sync.WaitGroup
}

func New(handle Handler) *Dispatcher {
	return &Dispatcher{
		handle: handle,
		queues: make(map[int64]chan gateway.Update),
	}
}

// Run consumes the transport's event stream until it closes or ctx is done,
// then drains every per-user queue before returning.
func (d *Dispatcher) Run(ctx context.Context, src <-chan gateway.Update) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case u, ok := <-src:
			if !ok {
				d.drain()
				return
			}
			if u.TurnID == "" {
				u.TurnID = uuid.NewString()
			}
			d.queue(u.UserID) <- u
		}
	}
}

// queue returns the user's event channel, starting its worker on first use.
func (d *Dispatcher) queue(userID int64) chan gateway.Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.queues[userID]
	if !ok {
		q = make(chan gateway.Update, queueSize)
		d.queues[userID] = q
		d.wg.Add(1)
		go d.worker(userID, q)
	}
	return q
}

func (d *Dispatcher) worker(userID int64, q chan gateway.Update) {
	defer d.wg.Done()
	for u := range q {
		d.handleSafe(u)
	}
	log.Printf("dispatch: worker for user %d drained", userID)
}

// handleSafe keeps a panicking handler from taking the worker down with it.
func (d *Dispatcher) handleSafe(u gateway.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: turn %s: handler panic for user %d: %v", u.TurnID, u.UserID, r)
		}
	}()
	d.handle(context.Background(), u)
}

// drain closes all queues and waits for the workers to finish their
// backlogs.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	for _, q := range d.queues {
		close(q)
	}
	d.queues = make(map[int64]chan gateway.Update)
	d.mu.Unlock()
	d.wg.Wait()
}
