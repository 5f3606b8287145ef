package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kivik/kivik/v4"
)

const objectAttachment = "content"

type couchObjectStorage struct {
	client        *kivik.Client
	dbName        string
	publicBaseURL string
}

// NewCouchObjectStorage keeps each object as the single attachment of an
// "object:<path>" document. Download URLs point at the server's /files route.
func NewCouchObjectStorage(client *kivik.Client, dbName, publicBaseURL string) ObjectStorage {
	return &couchObjectStorage{
		client:        client,
		dbName:        dbName,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *couchObjectStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (ObjectRef, error) {
	db := s.client.DB(s.dbName)

	content, err := io.ReadAll(body)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("failed to read upload: %w", err)
	}

	id := "object:" + path
	rev, err := db.Put(ctx, id, map[string]interface{}{
		"path":         path,
		"content_type": contentType,
		"size":         len(content),
		"uploaded_at":  time.Now(),
	})
	if err != nil {
		return ObjectRef{}, translate(err)
	}

	att := &kivik.Attachment{
		Filename:    objectAttachment,
		ContentType: contentType,
		Content:     io.NopCloser(bytes.NewReader(content)),
	}
	if _, err := db.PutAttachment(ctx, id, att, kivik.Rev(rev)); err != nil {
		return ObjectRef{}, translate(err)
	}

	return ObjectRef{Path: path, ContentType: contentType, Size: int64(len(content))}, nil
}

func (s *couchObjectStorage) DownloadURL(ctx context.Context, ref ObjectRef) (string, error) {
	return objectURL(s.publicBaseURL, ref.Path), nil
}

func (s *couchObjectStorage) Open(ctx context.Context, path string) (io.ReadCloser, ObjectRef, error) {
	db := s.client.DB(s.dbName)

	att, err := db.GetAttachment(ctx, "object:"+path, objectAttachment)
	if err != nil {
		return nil, ObjectRef{}, translate(err)
	}

	return att.Content, ObjectRef{Path: path, ContentType: att.ContentType, Size: att.Size}, nil
}

func objectURL(base, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/files/%s", base, strings.Join(segments, "/"))
}

type memoryObject struct {
	contentType string
	content     []byte
}

// MemoryObjectStorage keeps uploaded objects in process.
type MemoryObjectStorage struct {
	mu            sync.Mutex
	objects       map[string]memoryObject
	publicBaseURL string
}

func NewMemoryObjectStorage(publicBaseURL string) *MemoryObjectStorage {
	return &MemoryObjectStorage{
		objects:       make(map[string]memoryObject),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *MemoryObjectStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (ObjectRef, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ObjectRef{}, err
	}

	s.mu.Lock()
	s.objects[path] = memoryObject{contentType: contentType, content: content}
	s.mu.Unlock()

	return ObjectRef{Path: path, ContentType: contentType, Size: int64(len(content))}, nil
}

func (s *MemoryObjectStorage) DownloadURL(ctx context.Context, ref ObjectRef) (string, error) {
	return objectURL(s.publicBaseURL, ref.Path), nil
}

func (s *MemoryObjectStorage) Open(ctx context.Context, path string) (io.ReadCloser, ObjectRef, error) {
	s.mu.Lock()
	obj, ok := s.objects[path]
	s.mu.Unlock()

	if !ok {
		return nil, ObjectRef{}, fmt.Errorf("%w: object %s", ErrNotFound, path)
	}
	ref := ObjectRef{Path: path, ContentType: obj.contentType, Size: int64(len(obj.content))}
	return io.NopCloser(bytes.NewReader(obj.content)), ref, nil
}
