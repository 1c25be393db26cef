// Package store defines the key-value persistence capability used for the
// user display-name cache, and its implementations.
package store

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("key not found")

// Store is a flat key-value store.  Values are JSON-serializable.
type Store interface {
	// Get decodes the value stored under key into v.  Returns ErrNotFound
	// if the key is absent.
	Get(key string, v any) error
	// Set stores v under key, overwriting any previous value.
	Set(key string, v any) error
	// Remove deletes the key.  Removing an absent key is not an error.
	Remove(key string) error
}

// Memory is an in-process Store.  Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ Store = &Memory{}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(key string, v any) error {
	s.mu.RLock()
	data, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return unmarshal(data, v)
}

func (s *Memory) Set(key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.m[key] = data
	s.mu.Unlock()
	return nil
}

func (s *Memory) Remove(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
