// Package store defines the content-addressed artifact store contract
// of spec.md §6.5: every artifact (schema, claim row, operator row,
// conflict row, packet, failure) is addressed by (schema_id,
// content_hash, optional key) and verified on read. internal/store/memory
// backs DEV run intents; internal/store/sql backs PROMOTION/CERTIFYING
// intents that require a durable store (spec.md §7's
// ArtifactStoreRequired escalation).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/darianrosebrook/sterling/internal/sterlingerr"
)

// artifactHashPrefix domain-separates raw artifact payload hashes from
// the structured canon.Hash prefixes (schema/claim/op/conflict/packet/
// failure), since an Artifact's Payload is already-serialized bytes
// rather than a Go value canon.Serialize would normalize.
const artifactHashPrefix = "artifact_bytes/v1:"

// Artifact is one content-addressed unit of storage.
type Artifact struct {
	SchemaID      string
	ContentHash   string
	Key           string // optional secondary addressing, e.g. a claim signature
	SchemaVersion string
	Payload       []byte
}

// ComputeContentHash returns the artifact's expected content hash given
// its payload, independent of Key/SchemaVersion (those are addressing
// metadata, not part of the artifact's identity).
func ComputeContentHash(payload []byte) string {
	sum := sha256.Sum256(append([]byte(artifactHashPrefix), payload...))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes a's content hash from its payload and compares it
// against a.ContentHash, the read-time verification spec.md §6.5 requires.
func Verify(a Artifact) error {
	want := ComputeContentHash(a.Payload)
	if want != a.ContentHash {
		return fmt.Errorf("store.Verify: content hash mismatch for schema %q: stored %q, recomputed %q", a.SchemaID, a.ContentHash, want)
	}
	return nil
}

// ArtifactStore is the backend-agnostic contract every store
// implementation satisfies.
type ArtifactStore interface {
	// Put writes a, computing ContentHash from Payload if unset.
	Put(ctx context.Context, a Artifact) error
	// Get retrieves by (schema_id, content_hash), verifying on read.
	Get(ctx context.Context, schemaID, contentHash string) (Artifact, error)
	// GetByKey retrieves the current artifact addressed by
	// (schema_id, key) — e.g. the live row for a claim signature.
	GetByKey(ctx context.Context, schemaID, key string) (Artifact, error)
	// Close releases backend resources.
	Close() error
}

// ErrNotFound is returned (wrapped) when no artifact matches the
// requested address.
var ErrNotFound = sterlingerr.ErrNotFound
