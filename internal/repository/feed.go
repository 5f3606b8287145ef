package repository

import (
	"context"
	"sync"

	"branchdesk-server/internal/domain"
)

// SnapshotEvent carries either a full collection snapshot or a subscription
// error. An error never ends the feed.
type SnapshotEvent struct {
	Docs []domain.Document
	Err  error
}

// Feed delivers snapshot events for one subscription in emission order.
// Snapshots are complete, so an unread snapshot is replaced by a newer one
// rather than queued behind it.
type Feed struct {
	mu      sync.Mutex
	pending *SnapshotEvent
	signal  chan struct{}
	out     chan SnapshotEvent
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	onClose func()
}

func NewFeed(parent context.Context) *Feed {
	ctx, cancel := context.WithCancel(parent)
	f := &Feed{
		signal: make(chan struct{}, 1),
		out:    make(chan SnapshotEvent),
		ctx:    ctx,
		cancel: cancel,
	}
	go f.run()
	return f
}

func (f *Feed) Events() <-chan SnapshotEvent {
	return f.out
}

func (f *Feed) Context() context.Context {
	return f.ctx
}

func (f *Feed) Publish(docs []domain.Document) {
	f.push(SnapshotEvent{Docs: docs})
}

func (f *Feed) Fail(err error) {
	f.push(SnapshotEvent{Err: err})
}

// Close stops delivery without waiting for the consumer.
func (f *Feed) Close() {
	f.once.Do(func() {
		f.cancel()
		if f.onClose != nil {
			f.onClose()
		}
	})
}

func (f *Feed) push(ev SnapshotEvent) {
	if f.ctx.Err() != nil {
		return
	}

	f.mu.Lock()
	f.pending = &ev
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *Feed) run() {
	defer close(f.out)

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-f.signal:
		}

		f.mu.Lock()
		ev := f.pending
		f.pending = nil
		f.mu.Unlock()

		if ev == nil {
			continue
		}

		select {
		case f.out <- *ev:
		case <-f.ctx.Done():
			return
		}
	}
}
