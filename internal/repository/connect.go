package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

// Stores bundles the backends the services run on.
type Stores struct {
	Gateway     Gateway
	Objects     ObjectStorage
	Preferences PreferenceStore
	close       func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenCouch connects to CouchDB and creates dbName when it is missing and
// autoCreate is set.
func OpenCouch(ctx context.Context, couchURL, dbName string, autoCreate bool, reconnectDelay time.Duration, publicBaseURL string) (*Stores, error) {
	client, err := kivik.New("couch", couchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if !autoCreate {
			client.Close()
			return nil, fmt.Errorf("database %s does not exist", dbName)
		}
		if err := client.CreateDB(ctx, dbName); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		log.Printf("[Store] created database: %s", dbName)
	}

	return &Stores{
		Gateway:     NewCouchGateway(client, dbName, reconnectDelay),
		Objects:     NewCouchObjectStorage(client, dbName, publicBaseURL),
		Preferences: NewCouchPreferenceStore(client, dbName),
		close:       client.Close,
	}, nil
}

// OpenMemory returns process-local stores. Nothing survives a restart.
func OpenMemory(publicBaseURL string) *Stores {
	return &Stores{
		Gateway:     NewMemoryGateway(),
		Objects:     NewMemoryObjectStorage(publicBaseURL),
		Preferences: NewMemoryPreferenceStore(),
	}
}
