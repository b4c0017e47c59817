// Package credstore holds implementations of publish.CredentialStore.
package credstore

import (
	"context"
	"sync"

	"github.com/blacktop/postkit/internal/publish"
)

// Writer is implemented by stores that can persist tokens obtained through
// the OAuth callback.
type Writer interface {
	Save(ctx context.Context, userID string, creds publish.Credentials) error
}

type key struct {
	user     string
	platform publish.Platform
}

// Memory is a process-local store.
type Memory struct {
	mu    sync.RWMutex
	creds map[key]publish.Credentials
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{creds: map[key]publish.Credentials{}}
}

func (m *Memory) Lookup(_ context.Context, userID string, platform publish.Platform) (publish.Credentials, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[key{userID, platform}]
	return c, ok, nil
}

func (m *Memory) Save(_ context.Context, userID string, creds publish.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[key{userID, creds.Platform()}] = creds
	return nil
}

// Delete forgets the credentials for one platform.
func (m *Memory) Delete(_ context.Context, userID string, platform publish.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, key{userID, platform})
	return nil
}
