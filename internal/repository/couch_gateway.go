package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"

	"github.com/go-kivik/kivik/v4"
)

// maxWriteAttempts bounds the read-merge-write loop when concurrent writers
// keep moving the revision.
const maxWriteAttempts = 5

// couchBackend is the slice of a CouchDB database the gateway uses. Errors
// are already translated to ErrNotFound/ErrConflict.
type couchBackend interface {
	get(ctx context.Context, key string) (map[string]interface{}, error)
	put(ctx context.Context, key string, doc map[string]interface{}) error
	remove(ctx context.Context, key, rev string) error
	find(ctx context.Context, c domain.Collection) ([]domain.Document, error)
	updateSeq(ctx context.Context) (string, error)
	changes(ctx context.Context, since string) changeIterator
}

// changeIterator is satisfied by *kivik.Changes.
type changeIterator interface {
	Next() bool
	ID() string
	Err() error
	Close() error
}

type couchGateway struct {
	backend        couchBackend
	reconnectDelay time.Duration
	now            func() time.Time
}

// NewCouchGateway stores every collection in one CouchDB database, keyed
// "<collection>:<id>". Live subscriptions follow the database _changes feed.
func NewCouchGateway(client *kivik.Client, dbName string, reconnectDelay time.Duration) Gateway {
	return newCouchGateway(&kivikBackend{client: client, dbName: dbName}, reconnectDelay)
}

func newCouchGateway(backend couchBackend, reconnectDelay time.Duration) *couchGateway {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &couchGateway{
		backend:        backend,
		reconnectDelay: reconnectDelay,
		now:            time.Now,
	}
}

func (g *couchGateway) Add(ctx context.Context, c domain.Collection, fields sanitize.Fields) (string, error) {
	id := NewID(g.now())
	if err := g.backend.put(ctx, docID(c, id), map[string]interface{}(fields)); err != nil {
		return "", err
	}
	return id, nil
}

func (g *couchGateway) Get(ctx context.Context, c domain.Collection, id string) (domain.Document, error) {
	existing, err := g.backend.get(ctx, docID(c, id))
	if err != nil {
		return domain.Document{}, err
	}
	return toDocument(id, existing), nil
}

// Update merges fields into the latest revision. A conflict means another
// writer got in first; the merge is redone on top of its revision so the
// later write wins.
func (g *couchGateway) Update(ctx context.Context, c domain.Collection, id string, fields sanitize.Fields) error {
	key := docID(c, id)

	return retryOnConflict(func() error {
		existing, err := g.backend.get(ctx, key)
		if err != nil {
			return err
		}
		for k, value := range fields {
			existing[k] = value
		}
		return g.backend.put(ctx, key, existing)
	})
}

func (g *couchGateway) Delete(ctx context.Context, c domain.Collection, id string) error {
	key := docID(c, id)

	return retryOnConflict(func() error {
		existing, err := g.backend.get(ctx, key)
		if err != nil {
			return err
		}
		rev, _ := existing["_rev"].(string)
		return g.backend.remove(ctx, key, rev)
	})
}

func retryOnConflict(write func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if err = write(); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}

func (g *couchGateway) GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error) {
	return g.backend.find(ctx, c)
}

func (g *couchGateway) Subscribe(ctx context.Context, c domain.Collection, orderField string) (*Feed, error) {
	feed := NewFeed(ctx)
	go g.watch(feed, c, orderField)
	return feed, nil
}

// watch pushes a fresh ordered snapshot on attach and whenever the changes
// feed reports a document of the collection. The feed starts at the update
// sequence read before the snapshot, so a write landing between the two is
// replayed rather than lost. Connection loss is reported to the feed and
// retried after reconnectDelay.
func (g *couchGateway) watch(feed *Feed, c domain.Collection, orderField string) {
	ctx := feed.Context()

	push := func() bool {
		docs, err := g.backend.find(ctx, c)
		if err != nil {
			if ctx.Err() == nil {
				feed.Fail(fmt.Errorf("snapshot of %s: %w", c, err))
			}
			return false
		}
		sortDocsDesc(docs, orderField)
		feed.Publish(docs)
		return true
	}

	for ctx.Err() == nil {
		since, err := g.backend.updateSeq(ctx)
		if err != nil {
			if ctx.Err() == nil {
				feed.Fail(fmt.Errorf("update sequence for %s: %w", c, err))
			}
			if !sleepCtx(ctx, g.reconnectDelay) {
				return
			}
			continue
		}

		if !push() {
			if !sleepCtx(ctx, g.reconnectDelay) {
				return
			}
			continue
		}

		changes := g.backend.changes(ctx, since)
		for changes.Next() {
			if _, ok := splitDocID(c, changes.ID()); !ok {
				continue
			}
			push()
		}

		err = changes.Err()
		changes.Close()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			feed.Fail(fmt.Errorf("changes feed for %s: %w", c, err))
		}
		if !sleepCtx(ctx, g.reconnectDelay) {
			return
		}
	}
}

type kivikBackend struct {
	client *kivik.Client
	dbName string
}

func (b *kivikBackend) get(ctx context.Context, key string) (map[string]interface{}, error) {
	var existing map[string]interface{}
	if err := b.client.DB(b.dbName).Get(ctx, key).ScanDoc(&existing); err != nil {
		return nil, translate(err)
	}
	return existing, nil
}

func (b *kivikBackend) put(ctx context.Context, key string, doc map[string]interface{}) error {
	if _, err := b.client.DB(b.dbName).Put(ctx, key, doc); err != nil {
		return translate(err)
	}
	return nil
}

func (b *kivikBackend) remove(ctx context.Context, key, rev string) error {
	if _, err := b.client.DB(b.dbName).Delete(ctx, key, rev); err != nil {
		return translate(err)
	}
	return nil
}

func (b *kivikBackend) find(ctx context.Context, c domain.Collection) ([]domain.Document, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"_id": map[string]interface{}{
				"$gt": string(c) + ":",
				"$lt": string(c) + ":\ufff0",
			},
		},
		"limit": math.MaxInt32,
	}

	rows := b.client.DB(b.dbName).Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var raw map[string]interface{}
		if err := rows.ScanDoc(&raw); err != nil {
			log.Printf("[Store] skipping unreadable document in %s: %v", c, err)
			continue
		}
		rawID, _ := raw["_id"].(string)
		id, ok := splitDocID(c, rawID)
		if !ok {
			continue
		}
		docs = append(docs, toDocument(id, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}

	return docs, nil
}

func (b *kivikBackend) updateSeq(ctx context.Context) (string, error) {
	stats, err := b.client.DB(b.dbName).Stats(ctx)
	if err != nil {
		return "", translate(err)
	}
	return stats.UpdateSeq, nil
}

func (b *kivikBackend) changes(ctx context.Context, since string) changeIterator {
	return b.client.DB(b.dbName).Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":      "continuous",
		"since":     since,
		"heartbeat": 30000,
	}))
}

func toDocument(id string, raw map[string]interface{}) domain.Document {
	fields := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		if strings.HasPrefix(key, "_") {
			continue
		}
		fields[key] = value
	}
	return domain.Document{ID: id, Fields: fields}
}

func translate(err error) error {
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
