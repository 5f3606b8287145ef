package repository

import (
	"context"
	"errors"
	"io"

	"branchdesk-server/internal/domain"
	"branchdesk-server/pkg/sanitize"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document update conflict")
)

// Gateway is the remote document store. Documents live in named collections;
// every write is a merge, never a wholesale replacement.
type Gateway interface {
	Add(ctx context.Context, c domain.Collection, fields sanitize.Fields) (string, error)
	Get(ctx context.Context, c domain.Collection, id string) (domain.Document, error)
	Update(ctx context.Context, c domain.Collection, id string, fields sanitize.Fields) error
	Delete(ctx context.Context, c domain.Collection, id string) error
	GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error)
	// Subscribe opens a live query ordered descending by orderField. The feed
	// pushes the entire result set on attach and after every change.
	Subscribe(ctx context.Context, c domain.Collection, orderField string) (*Feed, error)
}

// ObjectRef names a stored binary object.
type ObjectRef struct {
	Path        string
	ContentType string
	Size        int64
}

type ObjectStorage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) (ObjectRef, error)
	DownloadURL(ctx context.Context, ref ObjectRef) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, ObjectRef, error)
}

// PreferenceStore is durable key-value storage scoped to one client device.
type PreferenceStore interface {
	Get(ctx context.Context, owner, key string) (string, bool, error)
	Set(ctx context.Context, owner, key, value string) error
}
