// Package kv provides the key/value substrate the local stores persist into.
package kv

import (
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed storage.
var ErrClosed = errors.New("storage closed")

// Storage is a flat string-keyed blob store.
// Get reports ok=false when the key has never been written.
type Storage interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// MemoryStorage keeps values in process memory. Used by tests and throwaway runs.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemoryStorage constructs an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.values, key)
	return nil
}

// Close marks the storage closed. Values are kept so tests can reopen via Reopen.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Reopen returns a fresh storage sharing a copy of the current values.
func (s *MemoryStorage) Reopen() *MemoryStorage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := NewMemoryStorage()
	for k, v := range s.values {
		next.values[k] = append([]byte(nil), v...)
	}
	return next
}
