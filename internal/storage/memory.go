package storage

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Ensure MemoryStorage implements required interfaces
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps credentials for the lifetime of the process
type MemoryStorage struct {
	mu          sync.RWMutex
	credentials *Credentials
	flags       map[string]string
}

// NewMemoryStorage creates a new storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		flags: make(map[string]string),
	}
}

// GetCredentials returns a copy of the stored token pair
func (s *MemoryStorage) GetCredentials(_ context.Context) (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credentials == nil {
		return nil, ErrCredentialsNotFound
	}
	return copyCredentials(s.credentials), nil
}

// SetCredentials replaces the stored token pair
func (s *MemoryStorage) SetCredentials(_ context.Context, creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyCredentials(creds)
	stored.UpdatedAt = time.Now()
	s.credentials = stored
	return nil
}

// DeleteCredentials removes the token pair
func (s *MemoryStorage) DeleteCredentials(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials = nil
	return nil
}

// GetFlags returns a copy of all session flags
func (s *MemoryStorage) GetFlags(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.flags), nil
}

// SetFlag stores one session flag
func (s *MemoryStorage) SetFlag(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags[name] = value
	return nil
}

// DeleteFlags removes the named flags; missing names are ignored
func (s *MemoryStorage) DeleteFlags(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		delete(s.flags, name)
	}
	return nil
}

// Close is a no-op
func (s *MemoryStorage) Close() error {
	return nil
}
