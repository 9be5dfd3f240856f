// Package keystore holds key material for the format-preserving strategy.
// Keys are shared, externally managed resources: they outlive any single
// masking engine and must be registered or generated before a masking run
// that uses them.
package keystore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
)

// ErrKeyNotFound is returned when a strategy references a key ID that was
// never registered. Masking fails closed on it.
var ErrKeyNotFound = errors.New("key not found")

// KeyStore maps key IDs to key material.
type KeyStore interface {
	// RegisterKey stores key material under the given ID, replacing any
	// previous key with that ID.
	RegisterKey(id string, key []byte) error

	// GenerateKey creates new random key material under the given ID and
	// returns it.
	GenerateKey(id string) ([]byte, error)

	// Key returns the key material for the given ID, or ErrKeyNotFound.
	Key(id string) ([]byte, error)
}

const generatedKeySize = 32

// MemoryKeyStore is an in-memory KeyStore, safe for concurrent use.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string][]byte)}
}

// RegisterKey stores key material under the given ID.
func (s *MemoryKeyStore) RegisterKey(id string, key []byte) error {
	if id == "" {
		return fmt.Errorf("key id must not be empty")
	}
	if len(key) == 0 {
		return fmt.Errorf("key material must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(key))
	copy(stored, key)
	s.keys[id] = stored
	return nil
}

// GenerateKey creates a random 256-bit key under the given ID.
func (s *MemoryKeyStore) GenerateKey(id string) ([]byte, error) {
	key := make([]byte, generatedKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := s.RegisterKey(id, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Key returns a copy of the key material for the given ID.
func (s *MemoryKeyStore) Key(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}

	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}
