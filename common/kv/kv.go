// Package kv provides the small string-keyed byte store behind the
// key-value tag backend.
package kv

import (
	"context"
	"errors"
	"sync"

	"github.com/lyzr/explorer/common/logger"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("kv store closed")

// Store interface for key-value storage
type Store interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	data map[string][]byte
	mu   sync.RWMutex
	log  *logger.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		log:  log,
	}
}

// Get retrieves a copy of the stored value
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, false, ErrClosed
	}

	value, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores a copy of value
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return ErrClosed
	}

	delete(s.data, key)
	return nil
}

// Close drops all data
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	s.log.Info("memory kv store closed")
	return nil
}

// Stats returns store statistics
func (s *MemoryStore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"entries": len(s.data),
		"type":    "memory",
	}
}
