package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/repository"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockObjectStorage struct {
	uploads int32
	err     error
	release chan struct{}
}

func (m *mockObjectStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (repository.ObjectRef, error) {
	atomic.AddInt32(&m.uploads, 1)
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return repository.ObjectRef{}, m.err
	}
	content, _ := io.ReadAll(body)
	return repository.ObjectRef{Path: path, ContentType: contentType, Size: int64(len(content))}, nil
}

func (m *mockObjectStorage) DownloadURL(ctx context.Context, ref repository.ObjectRef) (string, error) {
	return "https://files.test/" + ref.Path, nil
}

func (m *mockObjectStorage) Open(ctx context.Context, path string) (io.ReadCloser, repository.ObjectRef, error) {
	return nil, repository.ObjectRef{}, repository.ErrNotFound
}

func (m *mockObjectStorage) count() int {
	return int(atomic.LoadInt32(&m.uploads))
}

func newTestData(t *testing.T) (*DataService, *repository.MemoryGateway, *mockObjectStorage, *fixedClock) {
	t.Helper()

	gateway := repository.NewMemoryGateway()
	objects := &mockObjectStorage{}
	clock := &fixedClock{now: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)}

	data := NewDataService(gateway, objects, "")
	data.SetClock(clock.Now)
	return data, gateway, objects, clock
}

func mustList(t *testing.T, data *DataService, c domain.Collection) []domain.Record {
	t.Helper()

	records, err := data.List(context.Background(), c)
	if err != nil {
		t.Fatalf("List(%s) error = %v", c, err)
	}
	return records
}

var errStoreDown = errors.New("permission denied")
