package treegrid

import (
	"context"
	"sync"

	"github.com/bdlm/log"
	"golang.org/x/sync/semaphore"
)

// Pager runs "load more" requests one at a time. A request made while one is
// in flight is dropped; once the fetch returns (with or without an error)
// the next scroll to the end can start another.
//
// The fetch runs on its own goroutine, never inside the call that asked for
// it, so a burst of renders hitting the last row can't stack up fetches.
type Pager struct {
	fetch func(ctx context.Context) error
	done  func(err error)

	mu     sync.Mutex
	slot   *semaphore.Weighted
	cancel context.CancelFunc
}

// NewPager creates a pager around fetch.
func NewPager(fetch func(ctx context.Context) error) *Pager {
	return &Pager{
		fetch: fetch,
		slot:  semaphore.NewWeighted(1),
	}
}

// OnDone sets a callback run on the fetch goroutine after each request, once
// the slot is free again.
func (p *Pager) OnDone(fn func(err error)) *Pager {
	p.done = fn
	return p
}

// Request starts a fetch unless one is already running. It reports whether
// a fetch was started.
func (p *Pager) Request(ctx context.Context) bool {
	if p == nil || p.fetch == nil {
		return false
	}
	p.mu.Lock()
	slot := p.slot
	if !slot.TryAcquire(1) {
		p.mu.Unlock()
		log.Debug("load more already in flight")
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer cancel()
		err := p.fetch(ctx)
		slot.Release(1)

		if err != nil {
			log.WithFields(log.Fields{"err": err}).Warn("load more failed")
		}
		if p.done != nil {
			p.done(err)
		}
	}()
	return true
}

// Reset cancels a fetch in flight and frees the guard, so the next request
// starts at once. The old fetch still runs OnDone when it returns.
func (p *Pager) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.slot = semaphore.NewWeighted(1)
}

// Busy reports whether a fetch is in flight.
func (p *Pager) Busy() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slot.TryAcquire(1) {
		p.slot.Release(1)
		return false
	}
	return true
}
