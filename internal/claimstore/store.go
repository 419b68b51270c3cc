// Package claimstore owns claim rows and the signature index that
// deduplicates them (spec.md §3.3 ownership model). It is mutated only
// through internal/ledger's transactional apply; readers may query it
// concurrently against a stable snapshot.
package claimstore

import (
	"sync"

	"github.com/darianrosebrook/sterling/internal/claim"
)

// Row is one claim-store entry: a claim plus its lifecycle bookkeeping.
// Deletion tombstones a row rather than removing it (I5): the row remains
// dereferencable by signature, marked Deleted, and is excluded from
// live-index queries (list/conflict scans) but retained for audit/replay.
type Row struct {
	Claim     claim.ClaimInstance
	Deleted   bool
	UpdatedBy string // op_id of the most recent op that touched this row
}

// Store is claimstore's in-memory backing structure: an RWMutex-guarded
// map keyed by signature, matching the teacher's in-memory storage idiom
// (internal/storage/memory: a single mutex guarding several maps).
type Store struct {
	mu   sync.RWMutex
	rows map[string]*Row
}

// New constructs an empty Store.
func New() *Store {
	return &Store{rows: make(map[string]*Row)}
}

// Get returns the row for signature, including tombstoned rows (I5:
// "signatures remain dereferencable").
func (s *Store) Get(signature string) (*Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[signature]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// Put inserts a new live row, or — if a live or tombstoned row with the
// same signature already exists — unions support sets onto the existing
// row and revives it if it was tombstoned (I6: dedup unions support,
// never two rows for one signature).
func (s *Store) Put(c claim.ClaimInstance, opID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(c, opID)
}

func (s *Store) putLocked(c claim.ClaimInstance, opID string) {
	existing, ok := s.rows[c.CanonicalSignature]
	if !ok {
		s.rows[c.CanonicalSignature] = &Row{Claim: c, UpdatedBy: opID}
		return
	}
	merged := c
	merged.SupportSet = unionSupport(existing.Claim.SupportSet, c.SupportSet)
	s.rows[c.CanonicalSignature] = &Row{Claim: merged, UpdatedBy: opID}
}

// unionSupport combines two evidence-atom ID sequences, preserving
// first-seen order and appending any new IDs from b (spec.md scenario 1).
func unionSupport(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Delete tombstones the row for signature (I5). Deleting an
// already-tombstoned signature is idempotent (no double tombstone).
func (s *Store) Delete(signature, opID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(signature, opID)
}

func (s *Store) deleteLocked(signature, opID string) {
	r, ok := s.rows[signature]
	if !ok {
		return // nothing to tombstone; deleting an unknown signature is a no-op at this layer
	}
	r.Deleted = true
	r.UpdatedBy = opID
}

// Update replaces the slots of the row for the claim's prior signature
// with the new claim. If the new content hashes to a different signature,
// the caller (internal/ledger) is responsible for treating this as a
// tombstone of the old row plus an add of the new one within the same op
// (spec.md §4.4 Update semantics; DESIGN.md Open Question #1).
func (s *Store) Update(priorSignature string, c claim.ClaimInstance, opID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if priorSignature != c.CanonicalSignature {
		s.deleteLocked(priorSignature, opID)
		s.putLocked(c, opID)
		return
	}
	s.rows[c.CanonicalSignature] = &Row{Claim: c, UpdatedBy: opID}
}

// List returns every live (non-tombstoned) row, optionally filtered by
// schema_id (empty string = all schemas).
func (s *Store) List(schemaID string) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		if r.Deleted {
			continue
		}
		if schemaID != "" && r.Claim.SchemaID != schemaID {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// All returns every row including tombstones, for replay/audit.
func (s *Store) All() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	return out
}

// RestoreFrom replaces the store's contents with rows, used by
// internal/ledger to roll back a strict-mode commit that failed partway
// through (spec.md §5 fail-closed rule).
func (s *Store) RestoreFrom(rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]*Row, len(rows))
	for i := range rows {
		r := rows[i]
		s.rows[r.Claim.CanonicalSignature] = &r
	}
}
