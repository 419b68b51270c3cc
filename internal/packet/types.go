// Package packet implements Sterling's decision packet assembler (spec.md
// C6): bounded, salience-ranked claim retrieval under a task spec and
// budget, producing either a DecisionPacket or a CertifiedFailure.
package packet

import (
	"time"

	"github.com/darianrosebrook/sterling/internal/claim"
)

// TaskSpec describes what a packet assembly request is asking for.
type TaskSpec struct {
	SchemaIDs   []string             `json:"schema_ids,omitempty"`
	AllowMeta   bool                 `json:"allow_meta,omitempty"`
	Window      *claim.TemporalScope `json:"window,omitempty"`
	Strict      bool                 `json:"strict,omitempty"`
}

// PacketBudget bounds one assembly run.
type PacketBudget struct {
	MaxClaims         int `json:"max_claims"`
	MaxOpsFetched     int `json:"max_ops_fetched"`
	MaxAssemblyTimeMs int `json:"max_assembly_time_ms"`
}

// SliceKind enumerates the three shapes a packet slice can take (P7).
type SliceKind string

const (
	SliceAtomic    SliceKind = "atomic"
	SliceAbstract  SliceKind = "abstract"
	SliceDrilldown SliceKind = "drilldown"
)

// Slice is one claim projection included in a packet.
type Slice struct {
	Signature          string    `json:"signature"`
	SchemaID           string    `json:"schema_id"`
	Kind               SliceKind `json:"slice_kind"`
	InclusionRationale string    `json:"inclusion_rationale"`
	Salience           float64   `json:"salience"`
	ParentSignature    string    `json:"parent_signature,omitempty"`
	Rank               *int      `json:"rank,omitempty"`
}

// Valid enforces P7: a drilldown slice must carry a non-empty parent
// signature and a non-nil rank; any other slice kind must not.
func (s Slice) Valid() bool {
	if s.Kind == SliceDrilldown {
		return s.ParentSignature != "" && s.Rank != nil
	}
	return s.ParentSignature == "" && s.Rank == nil
}

// Metrics records the bookkeeping fields of one assembly.
type Metrics struct {
	ClaimsIncluded   int    `json:"claims_included"`
	ClaimsConsidered int    `json:"claims_considered"`
	BudgetExhausted  bool   `json:"budget_exhausted"`
	ExhaustionReason string `json:"exhaustion_reason,omitempty"` // "max_claims" | "max_assembly_time_ms"
	IndexedRetrieval bool   `json:"indexed_retrieval"`
	OpsFetched       int    `json:"ops_fetched"`        // run-local, excluded from identity hash
	AssemblyTimeMs   int64  `json:"assembly_time_ms"`   // run-local, excluded from identity hash
}

// DecisionPacket is the bounded, ranked result of one assembly run.
type DecisionPacket struct {
	PacketID    string         `json:"packet_id"` // run-local, excluded from identity hash
	SchemaID    string         `json:"schema_id"` // packet-format identity, not a claim schema
	Version     string         `json:"version"`
	TaskSpec    TaskSpec       `json:"task_spec"`
	Slices      []Slice        `json:"slices"`
	Conflicts   []ConflictRef  `json:"conflicts"`
	Metrics     Metrics        `json:"metrics"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"` // run-local, excluded from identity hash
	CreatedAt   time.Time      `json:"created_at"`            // run-local, excluded from identity hash
}

// ConflictRef is the packet-local projection of a conflict.Set.
type ConflictRef struct {
	ConflictID      string   `json:"conflict_id"`
	SchemaID        string   `json:"schema_id"`
	ClaimSignatures []string `json:"claim_signatures"`
	ConflictReason  string   `json:"conflict_reason"`
}

// PacketFormatVersion identifies the packet wire format, independent of
// any single claim schema (spec.md §4.6 packet identity hash's "schema_id"
// field names the packet's own format, not a claim's).
const PacketFormatVersion = "sterling.decision_packet/v1"
