package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

type memoryDoc struct {
	id     string
	seq    int64
	fields map[string]interface{}
}

// MemoryGateway is an in-process Gateway. Stored fields go through the same
// JSON normalisation as the CouchDB gateway so readers see identical shapes.
type MemoryGateway struct {
	// publishMu is held from snapshot to Publish so feeds see snapshots in
	// the order they were taken. It is always acquired before mu.
	publishMu sync.Mutex

	mu          sync.Mutex
	collections map[domain.Collection]map[string]*memoryDoc
	subscribers map[domain.Collection]map[*Feed]string
	seq         int64
	now         func() time.Time

	readErrors map[domain.Collection]error
	writeErr   error
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		collections: make(map[domain.Collection]map[string]*memoryDoc),
		subscribers: make(map[domain.Collection]map[*Feed]string),
		readErrors:  make(map[domain.Collection]error),
		now:         time.Now,
	}
}

// FailReads makes reads of c fail with err until cleared with a nil err.
func (g *MemoryGateway) FailReads(c domain.Collection, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.readErrors, c)
		return
	}
	g.readErrors[c] = err
}

// FailWrites makes every write fail with err until cleared with a nil err.
func (g *MemoryGateway) FailWrites(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeErr = err
}

// SubscriberCount reports live subscriptions on c.
func (g *MemoryGateway) SubscriberCount(c domain.Collection) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subscribers[c])
}

func (g *MemoryGateway) Add(ctx context.Context, c domain.Collection, fields sanitize.Fields) (string, error) {
	normalized, err := normalizeFields(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	g.mu.Lock()
	if g.writeErr != nil {
		err := g.writeErr
		g.mu.Unlock()
		return "", err
	}

	g.seq++
	id := NewID(g.now())
	if g.collections[c] == nil {
		g.collections[c] = make(map[string]*memoryDoc)
	}
	g.collections[c][id] = &memoryDoc{id: id, seq: g.seq, fields: normalized}
	g.mu.Unlock()

	g.notify(c)
	return id, nil
}

func (g *MemoryGateway) Get(ctx context.Context, c domain.Collection, id string) (domain.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.readErrors[c]; err != nil {
		return domain.Document{}, err
	}

	doc, ok := g.collections[c][id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	return doc.document(), nil
}

func (g *MemoryGateway) Update(ctx context.Context, c domain.Collection, id string, fields sanitize.Fields) error {
	normalized, err := normalizeFields(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	g.mu.Lock()
	if g.writeErr != nil {
		err := g.writeErr
		g.mu.Unlock()
		return err
	}

	doc, ok := g.collections[c][id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	for key, value := range normalized {
		doc.fields[key] = value
	}
	g.mu.Unlock()

	g.notify(c)
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, c domain.Collection, id string) error {
	g.mu.Lock()
	if g.writeErr != nil {
		err := g.writeErr
		g.mu.Unlock()
		return err
	}

	if _, ok := g.collections[c][id]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	delete(g.collections[c], id)
	g.mu.Unlock()

	g.notify(c)
	return nil
}

func (g *MemoryGateway) GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked(c, "")
}

func (g *MemoryGateway) Subscribe(ctx context.Context, c domain.Collection, orderField string) (*Feed, error) {
	feed := NewFeed(ctx)

	g.publishMu.Lock()
	defer g.publishMu.Unlock()

	g.mu.Lock()
	if g.subscribers[c] == nil {
		g.subscribers[c] = make(map[*Feed]string)
	}
	g.subscribers[c][feed] = orderField
	docs, err := g.snapshotLocked(c, orderField)
	g.mu.Unlock()

	feed.onClose = func() {
		g.mu.Lock()
		delete(g.subscribers[c], feed)
		g.mu.Unlock()
	}

	if err != nil {
		feed.Fail(err)
	} else {
		feed.Publish(docs)
	}

	return feed, nil
}

// notify pushes a fresh snapshot to every subscriber of c. A failing read is
// delivered as an error event and the subscriber keeps its last snapshot.
func (g *MemoryGateway) notify(c domain.Collection) {
	g.publishMu.Lock()
	defer g.publishMu.Unlock()

	g.mu.Lock()
	type delivery struct {
		feed *Feed
		docs []domain.Document
		err  error
	}
	var pending []delivery
	for feed, orderField := range g.subscribers[c] {
		docs, err := g.snapshotLocked(c, orderField)
		pending = append(pending, delivery{feed: feed, docs: docs, err: err})
	}
	g.mu.Unlock()

	for _, d := range pending {
		if d.err != nil {
			d.feed.Fail(d.err)
			continue
		}
		d.feed.Publish(d.docs)
	}
}

func (g *MemoryGateway) snapshotLocked(c domain.Collection, orderField string) ([]domain.Document, error) {
	if err := g.readErrors[c]; err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(g.collections[c]))
	ordered := make([]*memoryDoc, 0, len(g.collections[c]))
	for _, doc := range g.collections[c] {
		ordered = append(ordered, doc)
	}
	// insertion order first, so ties on orderField keep it
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].seq < ordered[j].seq
	})
	for _, doc := range ordered {
		docs = append(docs, doc.document())
	}

	if orderField != "" {
		sortDocsDesc(docs, orderField)
	}
	return docs, nil
}

func (d *memoryDoc) document() domain.Document {
	fields := make(map[string]interface{}, len(d.fields))
	for key, value := range d.fields {
		fields[key] = value
	}
	return domain.Document{ID: d.id, Fields: fields}
}
