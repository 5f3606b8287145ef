package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kivik/kivik/v4"
)

type couchPreferenceStore struct {
	client *kivik.Client
	dbName string
}

func NewCouchPreferenceStore(client *kivik.Client, dbName string) PreferenceStore {
	return &couchPreferenceStore{
		client: client,
		dbName: dbName,
	}
}

func (r *couchPreferenceStore) Get(ctx context.Context, owner, key string) (string, bool, error) {
	db := r.client.DB(r.dbName)

	var doc map[string]interface{}
	if err := db.Get(ctx, fmt.Sprintf("prefs:%s", owner)).ScanDoc(&doc); err != nil {
		err = translate(err)
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load preferences: %w", err)
	}

	values, _ := doc["values"].(map[string]interface{})
	value, ok := values[key].(string)
	return value, ok, nil
}

func (r *couchPreferenceStore) Set(ctx context.Context, owner, key, value string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("prefs:%s", owner)

	doc := map[string]interface{}{}
	if err := db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		if err = translate(err); !IsNotFound(err) {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
	}

	values, _ := doc["values"].(map[string]interface{})
	if values == nil {
		values = map[string]interface{}{}
	}
	values[key] = value
	doc["values"] = values
	doc["updated_at"] = time.Now()

	if _, err := db.Put(ctx, docID, doc); err != nil {
		return fmt.Errorf("failed to save preferences: %w", translate(err))
	}

	return nil
}

type MemoryPreferenceStore struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[string]map[string]string)}
}

func (r *MemoryPreferenceStore) Get(ctx context.Context, owner, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.values[owner][key]
	return value, ok, nil
}

func (r *MemoryPreferenceStore) Set(ctx context.Context, owner, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values[owner] == nil {
		r.values[owner] = make(map[string]string)
	}
	r.values[owner][key] = value
	return nil
}
