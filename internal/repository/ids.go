package repository

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"branchdesk-server/internal/domain"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexically time-ordered identifier.
func NewID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(now), entropy).String())
}

func docID(c domain.Collection, id string) string {
	return fmt.Sprintf("%s:%s", c, id)
}

func splitDocID(c domain.Collection, docID string) (string, bool) {
	prefix := string(c) + ":"
	if !strings.HasPrefix(docID, prefix) {
		return "", false
	}
	return strings.TrimPrefix(docID, prefix), true
}
