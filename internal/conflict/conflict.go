// Package conflict implements Sterling's conflict engine (spec.md C5):
// identity-key and signature indexes over asserted ACTUAL claims, and
// polarity/temporal conflict detection.
package conflict

import "time"

// Reason enumerates why two claims were found to conflict.
type Reason string

const (
	ReasonPolarityMismatch Reason = "polarity_mismatch"
	ReasonTemporalOverlap  Reason = "temporal_overlap"
)

// KeyPair is one (role, canonical value) pair in an identity key.
type KeyPair struct {
	Role  string `json:"role"`
	Value any    `json:"value"`
}

// Set is a committed conflict between two or more claim signatures sharing
// an identity key under one schema.
type Set struct {
	ConflictID         string    `json:"conflict_id"`
	ConflictContentHash string   `json:"conflict_content_hash"`
	SchemaID           string    `json:"schema_id"`
	PolicyID           string    `json:"policy_id"`
	IdentityKeyRoles   []string  `json:"identity_key_roles"`
	IdentityKeyValues  []any     `json:"identity_key_values"`
	ClaimSignatures    []string  `json:"claim_signatures"`
	ConflictReason     Reason    `json:"conflict_reason"`
	Scope              map[string]any `json:"scope,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedByOpID      string    `json:"created_by_op_id"`
}
