package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

func nextEvent(t *testing.T, feed *Feed) SnapshotEvent {
	t.Helper()
	select {
	case ev, ok := <-feed.Events():
		if !ok {
			t.Fatal("feed closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return SnapshotEvent{}
}

func TestMemoryGateway_AddGetUpdate(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	id, err := g.Add(ctx, domain.CollectionTasks, sanitize.Fields{"text": "Water plants", "assignee": nil})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if id == "" {
		t.Fatal("Add() returned empty id")
	}

	if err := g.Update(ctx, domain.CollectionTasks, id, sanitize.Fields{"status": "done"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	doc, err := g.Get(ctx, domain.CollectionTasks, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Fields["text"] != "Water plants" {
		t.Errorf("merge lost text, got %v", doc.Fields["text"])
	}
	if doc.Fields["status"] != "done" {
		t.Errorf("status = %v, want done", doc.Fields["status"])
	}
	if v, ok := doc.Fields["assignee"]; !ok || v != nil {
		t.Errorf("null assignee should be stored as null, got %v (present %v)", v, ok)
	}
}

func TestMemoryGateway_MissingDocument(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	if err := g.Update(ctx, domain.CollectionNotes, "missing", sanitize.Fields{"content": "x"}); !IsNotFound(err) {
		t.Errorf("Update() error = %v, want not found", err)
	}
	if err := g.Delete(ctx, domain.CollectionNotes, "missing"); !IsNotFound(err) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}

func TestMemoryGateway_SubscribePushesFullSnapshots(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	older := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	g.Add(ctx, domain.CollectionDeliveries, sanitize.Fields{"client": "Ana", "createdAt": older})

	feed, err := g.Subscribe(ctx, domain.CollectionDeliveries, domain.FieldCreatedAt)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer feed.Close()

	first := nextEvent(t, feed)
	if len(first.Docs) != 1 {
		t.Fatalf("initial snapshot has %d docs, want 1", len(first.Docs))
	}

	g.Add(ctx, domain.CollectionDeliveries, sanitize.Fields{"client": "Luis", "createdAt": newer})

	second := nextEvent(t, feed)
	if len(second.Docs) != 2 {
		t.Fatalf("second snapshot has %d docs, want 2", len(second.Docs))
	}
	if second.Docs[0].Fields["client"] != "Luis" {
		t.Errorf("snapshot not ordered by createdAt desc: first = %v", second.Docs[0].Fields["client"])
	}
}

func TestMemoryGateway_ReadFailureKeepsSubscriptionAlive(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	feed, _ := g.Subscribe(ctx, domain.CollectionNotes, domain.FieldCreatedAt)
	defer feed.Close()
	nextEvent(t, feed)

	denied := errors.New("permission denied")
	g.FailReads(domain.CollectionNotes, denied)
	g.Add(ctx, domain.CollectionNotes, sanitize.Fields{"content": "x"})

	ev := nextEvent(t, feed)
	if !errors.Is(ev.Err, denied) {
		t.Fatalf("expected error event, got %+v", ev)
	}

	g.FailReads(domain.CollectionNotes, nil)
	g.Add(ctx, domain.CollectionNotes, sanitize.Fields{"content": "y"})

	ev = nextEvent(t, feed)
	if ev.Err != nil || len(ev.Docs) != 2 {
		t.Fatalf("expected recovered snapshot with 2 docs, got %+v", ev)
	}
}

func TestMemoryGateway_ConcurrentWritersEndOnNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	feed, _ := g.Subscribe(ctx, domain.CollectionTasks, domain.FieldCreatedAt)
	defer feed.Close()

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Add(ctx, domain.CollectionTasks, sanitize.Fields{"text": "restock"})
		}()
	}
	wg.Wait()

	// the feed keeps only the latest pending snapshot; once it goes quiet
	// that snapshot must hold every write
	var last SnapshotEvent
	for {
		select {
		case ev := <-feed.Events():
			last = ev
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}

	if len(last.Docs) != writers {
		t.Errorf("final snapshot has %d docs, want %d", len(last.Docs), writers)
	}
}

func TestMemoryGateway_CloseRemovesSubscriber(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	feed, _ := g.Subscribe(ctx, domain.CollectionTasks, domain.FieldCreatedAt)
	if n := g.SubscriberCount(domain.CollectionTasks); n != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", n)
	}

	feed.Close()
	feed.Close()

	if n := g.SubscriberCount(domain.CollectionTasks); n != 0 {
		t.Errorf("SubscriberCount() after close = %d, want 0", n)
	}
}

func TestMemoryGateway_WriteFailure(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.FailWrites(errors.New("offline"))

	if _, err := g.Add(ctx, domain.CollectionScripts, sanitize.Fields{"title": "x"}); err == nil {
		t.Error("Add() expected error")
	}
}
