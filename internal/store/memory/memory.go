// Package memory is the in-process ArtifactStore backend for DEV run
// intents, grounded in the teacher's internal/storage/memory and
// internal/storage/ephemeral idiom: a single RWMutex guarding plain Go
// maps, no durability across process restarts.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/darianrosebrook/sterling/internal/store"
	"github.com/darianrosebrook/sterling/internal/sterlingerr"
)

type addr struct {
	schemaID string
	hash     string
}

// Store is a RWMutex-guarded in-memory ArtifactStore.
type Store struct {
	mu      sync.RWMutex
	byHash  map[addr]store.Artifact
	byKey   map[addr]store.Artifact // addr.hash field repurposed to hold Key here
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		byHash: map[addr]store.Artifact{},
		byKey:  map[addr]store.Artifact{},
	}
}

// Put implements store.ArtifactStore.
func (s *Store) Put(_ context.Context, a store.Artifact) error {
	if a.ContentHash == "" {
		a.ContentHash = store.ComputeContentHash(a.Payload)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[addr{a.SchemaID, a.ContentHash}] = a
	if a.Key != "" {
		s.byKey[addr{a.SchemaID, a.Key}] = a
	}
	return nil
}

// Get implements store.ArtifactStore, verifying the stored payload
// still matches its content hash before returning it.
func (s *Store) Get(_ context.Context, schemaID, contentHash string) (store.Artifact, error) {
	s.mu.RLock()
	a, ok := s.byHash[addr{schemaID, contentHash}]
	s.mu.RUnlock()
	if !ok {
		return store.Artifact{}, fmt.Errorf("store/memory.Get: %w", sterlingerr.ErrNotFound)
	}
	if err := store.Verify(a); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

// GetByKey implements store.ArtifactStore.
func (s *Store) GetByKey(_ context.Context, schemaID, key string) (store.Artifact, error) {
	s.mu.RLock()
	a, ok := s.byKey[addr{schemaID, key}]
	s.mu.RUnlock()
	if !ok {
		return store.Artifact{}, fmt.Errorf("store/memory.GetByKey: %w", sterlingerr.ErrNotFound)
	}
	if err := store.Verify(a); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

// Close is a no-op for the memory backend.
func (s *Store) Close() error { return nil }

var _ store.ArtifactStore = (*Store)(nil)
