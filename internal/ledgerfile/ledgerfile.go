// Package ledgerfile is the on-disk persistence for committed
// SemanticOps: one JSON object per line, append-only, read back in full
// by ReadAll to reconstruct ledger state (spec.md §6.6 replay); Open
// itself does not read the file. Grounded in
// the teacher's internal/jsonl package (ReadIssuesFromFile's
// bufio.Scanner-with-large-buffer read idiom) and internal/witness's
// writeWithRetry (cenkalti/backoff-wrapped append).
package ledgerfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/darianrosebrook/sterling/internal/ledger"
)

const maxLineBytes = 64 * 1024 * 1024

// Store is an append-only SemanticOp log backed by a JSONL file.
type Store struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (creating if absent) the ledger file at path.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledgerfile.Open: %w", err)
	}
	return &Store{path: path, f: f}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Append writes op as one JSON line, retrying transient I/O errors with
// capped exponential backoff (the teacher's witness.writeWithRetry
// idiom) before giving up.
func (s *Store) Append(op *ledger.SemanticOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("ledgerfile.Append: marshal: %w", err)
	}
	line = append(line, '\n')

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(func() error {
		_, err := s.f.Write(line)
		return err
	}, b)
}

// ReadAll replays every committed SemanticOp from the ledger file in
// commit order, tolerating a partially-written trailing line the way
// the teacher's witness.replay does for a crash mid-append.
func ReadAll(path string) ([]*ledger.SemanticOp, error) {
	f, err := os.Open(path) // #nosec G304 - path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledgerfile.ReadAll: open: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readAllFrom(f)
}

func readAllFrom(r io.Reader) ([]*ledger.SemanticOp, error) {
	var ops []*ledger.SemanticOp
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var op ledger.SemanticOp
		if err := json.Unmarshal(line, &op); err != nil {
			break // tolerate a partial trailing line from a prior crash
		}
		ops = append(ops, &op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ledgerfile.ReadAll: scan: %w", err)
	}
	return ops, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
