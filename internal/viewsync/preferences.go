package viewsync

import (
	"context"

	"branchdesk-server/internal/repository"
)

const (
	prefUserName = "username"
	prefBranch   = "branch"
)

// Preferences is durable key-value storage that survives restarts of the
// client.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type devicePreferences struct {
	store  repository.PreferenceStore
	device string
}

// DevicePreferences scopes a preference store to one client device.
func DevicePreferences(store repository.PreferenceStore, device string) Preferences {
	return &devicePreferences{store: store, device: device}
}

func (p *devicePreferences) Get(ctx context.Context, key string) (string, bool, error) {
	return p.store.Get(ctx, p.device, key)
}

func (p *devicePreferences) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.device, key, value)
}
