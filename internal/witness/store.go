package witness

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Store is an append-only witness log. Writes are idempotent by semantic
// hash: re-recording the same underlying condition is a no-op rather than
// a duplicate line, matching spec.md §6.4/§5 ("Witness store: append-only;
// writes are idempotent by semantic hash").
type Store struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	seen    map[string]string // semantic_hash -> record_id
	records map[string]FailureWitness // record_id -> witness, for CLI lookup
	durable bool
}

// Open opens (creating if absent) the witness log at path and replays it
// to rebuild the dedup index. A Store opened this way reports Durable()
// true; use NewInMemory for a DEV-mode, non-durable sink.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("witness.Open: %w", err)
	}
	s := &Store{path: path, f: f, seen: map[string]string{}, records: map[string]FailureWitness{}, durable: true}
	if err := s.replay(); err != nil {
		f.Close()
		return nil, fmt.Errorf("witness.Open: replay: %w", err)
	}
	return s, nil
}

// NewInMemory constructs a non-durable witness sink suitable for DEV run
// intents, where missing prerequisites are SKIPPED rather than FAILed.
func NewInMemory() *Store {
	return &Store{seen: map[string]string{}, records: map[string]FailureWitness{}, durable: false}
}

// Durable implements governance.WitnessSink.
func (s *Store) Durable() bool { return s.durable }

func (s *Store) replay() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	scanner := bufio.NewScanner(s.f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var w FailureWitness
		if err := json.Unmarshal(scanner.Bytes(), &w); err != nil {
			continue // tolerate a partially-written trailing line from a prior crash
		}
		s.seen[w.SemanticHash] = w.RecordID
		s.records[w.RecordID] = w
	}
	if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return scanner.Err()
}

// Record appends w (computing RecordID and SemanticHash if unset). If a
// witness with the same semantic hash was already recorded, Record
// returns the existing RecordID without writing a new line.
func (s *Store) Record(w FailureWitness) (FailureWitness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := w.ComputeSemanticHash()
	if err != nil {
		return FailureWitness{}, fmt.Errorf("witness.Record: %w", err)
	}
	w.SemanticHash = h

	if existingID, ok := s.seen[h]; ok {
		w.RecordID = existingID
		return w, nil
	}
	if w.RecordID == "" {
		w.RecordID = uuid.NewString()
	}

	if s.f != nil {
		if err := s.writeWithRetry(w); err != nil {
			return FailureWitness{}, fmt.Errorf("witness.Record: %w", err)
		}
	}
	s.seen[h] = w.RecordID
	s.records[w.RecordID] = w
	return w, nil
}

// Lookup returns the witness recorded under recordID, used by
// `sterling failure show` to inspect a specific occurrence.
func (s *Store) Lookup(recordID string) (FailureWitness, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.records[recordID]
	return w, ok
}

// All returns every distinct witness recorded, for `sterling failure
// list`-style auditing.
func (s *Store) All() []FailureWitness {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FailureWitness, 0, len(s.records))
	for _, w := range s.records {
		out = append(out, w)
	}
	return out
}

// writeWithRetry appends one JSON line, retrying transient I/O errors
// (e.g. the backing store being momentarily unavailable on a networked
// filesystem) with capped exponential backoff before giving up.
func (s *Store) writeWithRetry(w FailureWitness) error {
	line, err := json.Marshal(w)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		_, err := s.f.Write(line)
		return err
	}, b)
}

// Close closes the underlying file, if any.
func (s *Store) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
