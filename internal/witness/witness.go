// Package witness implements Sterling's append-only audit trail (spec.md
// §6.4): structured records of a failure or governance event, written
// idempotently by semantic hash.
package witness

import (
	"sort"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// FailureWitness is the record shape of spec.md §6.4. The hash-critical
// allowlist excludes timestamps, stack traces, and RecordID itself —
// identical occurrences of the same underlying condition hash identically
// regardless of when or how many times they're observed.
type FailureWitness struct {
	RecordID            string         `json:"record_id"`
	SemanticHash         string         `json:"semantic_hash"`
	FailureType          string         `json:"failure_type"`
	GateID               string         `json:"gate_id"`
	Verdict              string         `json:"verdict"`
	RequiredArtifact     string         `json:"required_artifact,omitempty"`
	SearchKeys           []string       `json:"search_keys,omitempty"`
	ArtifactIDsChecked   []string       `json:"artifact_ids_checked,omitempty"`
	Context              map[string]any `json:"context,omitempty"`
}

var hashAllowlist = []string{"failure_type", "gate_id", "verdict", "required_artifact", "search_keys", "artifact_ids_checked", "context"}

// ComputeSemanticHash derives w.SemanticHash deterministically from the
// hash-critical fields, sorting SearchKeys/ArtifactIDsChecked so ordering
// differences don't produce distinct hashes for the same occurrence.
func (w FailureWitness) ComputeSemanticHash() (string, error) {
	keys := append([]string{}, w.SearchKeys...)
	sort.Strings(keys)
	checked := append([]string{}, w.ArtifactIDsChecked...)
	sort.Strings(checked)

	payload := map[string]any{
		"failure_type":         w.FailureType,
		"gate_id":              w.GateID,
		"verdict":              w.Verdict,
		"required_artifact":    w.RequiredArtifact,
		"search_keys":          toAny(keys),
		"artifact_ids_checked": toAny(checked),
		"context":              w.Context,
	}
	return canon.SemanticHash(payload, hashAllowlist, "witness_canon/v1:")
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
