// Package failure implements Sterling's certified failure (spec.md C7): a
// first-class, hash-identified outcome produced instead of a decision
// packet when reasoning cannot complete.
package failure

import (
	"sort"
	"time"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// Reason is the closed set of typed failure reasons (spec.md §4.7).
type Reason string

const (
	ReasonMissingEvidence               Reason = "MISSING_EVIDENCE"
	ReasonUnresolvedConflict            Reason = "UNRESOLVED_CONFLICT"
	ReasonBudgetExhausted               Reason = "BUDGET_EXHAUSTED"
	ReasonPartialObservability          Reason = "PARTIAL_OBSERVABILITY"
	ReasonPolicyBlocked                 Reason = "POLICY_BLOCKED"
	ReasonToolFailure                   Reason = "TOOL_FAILURE"
	ReasonAbstractionExpansionExhausted Reason = "ABSTRACTION_EXPANSION_EXHAUSTED"
)

// Severity is the closed set of typed failure severities.
type Severity string

const (
	SeverityBlocking    Severity = "BLOCKING"
	SeverityDegraded    Severity = "DEGRADED"
	SeverityRecoverable Severity = "RECOVERABLE"
)

// RecoveryOption is a string drawn from the closed recovery-option set.
type RecoveryOption string

const (
	RecoveryAddEvidence         RecoveryOption = "add_evidence"
	RecoveryDowngradeHypothesis RecoveryOption = "downgrade_to_hypothesis"
	RecoveryIncreaseBudget      RecoveryOption = "increase_budget"
	RecoveryNarrowScope         RecoveryOption = "narrow_scope"
)

// CertifiedFailure is a produced value (not mutable state) representing a
// reasoning request that could not be satisfied.
type CertifiedFailure struct {
	FailureID          string           `json:"failure_id"`
	FailureContentHash string           `json:"failure_content_hash"`
	TaskSpec           map[string]any   `json:"task_spec"`
	FailureReason      Reason           `json:"failure_reason"`
	FailureSeverity    Severity         `json:"failure_severity"`
	Explanation        string           `json:"explanation"`
	EvidenceRefs       []string         `json:"evidence_refs,omitempty"`
	BlockingClaims     []string         `json:"blocking_claims,omitempty"`
	BlockingConflicts  []string         `json:"blocking_conflicts,omitempty"`
	BudgetAtFailure    map[string]any   `json:"budget_at_failure,omitempty"`
	MemoryStateRef     string           `json:"memory_state_ref,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
	CreatedByOpID      string           `json:"created_by_op_id,omitempty"`
	RecoveryOptions    []RecoveryOption `json:"recovery_options,omitempty"`
	CanRetry           bool             `json:"can_retry"`
}

// ContentHash computes the failure's identity hash per spec.md §4.7:
// {task_spec, failure_reason, failure_severity, sorted evidence_refs,
// sorted blocking_claims, sorted blocking_conflicts, budget_at_failure,
// memory_state_ref, created_by_op_id, recovery_options}, prefix
// failure_canon/v1:. Timestamps and stack summaries are excluded.
func (f *CertifiedFailure) ContentHash() (string, error) {
	recovery := make([]string, len(f.RecoveryOptions))
	for i, r := range f.RecoveryOptions {
		recovery[i] = string(r)
	}

	payload := map[string]any{
		"task_spec":          f.TaskSpec,
		"failure_reason":     string(f.FailureReason),
		"failure_severity":   string(f.FailureSeverity),
		"evidence_refs":      toAny(sortedCopy(f.EvidenceRefs)),
		"blocking_claims":    toAny(sortedCopy(f.BlockingClaims)),
		"blocking_conflicts": toAny(sortedCopy(f.BlockingConflicts)),
		"budget_at_failure":  f.BudgetAtFailure,
		"memory_state_ref":   f.MemoryStateRef,
		"created_by_op_id":   f.CreatedByOpID,
		"recovery_options":   toAny(recovery), // not re-sorted: order here is part of operator guidance, not identity noise
	}
	return canon.Hash(payload, canon.PrefixFailure)
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
