package ledger

import (
	"sort"
	"time"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// SkippedEntry annotates one delta entry dropped under a permissive
// governance context, so a committed op with skips remains auditable
// (spec.md §4.4 Failure modes: "permissive mode a witness is recorded and
// the offending entry is skipped, but the whole op is still hashed and
// committed (with skipped entries annotated)").
type SkippedEntry struct {
	Kind   string `json:"kind"` // "add" | "update" | "delete" | "merge" | "split"
	Ref    string `json:"ref"`  // signature or other identifying value
	Reason string `json:"reason"`
}

// SemanticOp is one committed, append-only ledger entry.
type SemanticOp struct {
	OpID        string         `json:"op_id"`
	OperatorID  string         `json:"operator_id"`
	Args        map[string]any `json:"args,omitempty"`
	Delta       ClaimDelta     `json:"delta"`
	Timestamp   time.Time      `json:"timestamp"`
	ContentHash string         `json:"content_hash"`
	Support     []string       `json:"support,omitempty"`
	Skipped     []SkippedEntry `json:"skipped,omitempty"`
}

// ComputeContentHash computes the op's deterministic identity per spec.md
// §4.4: {operator_id, args, delta: {adds: sorted signatures, updates:
// sorted signatures, deletes: sorted strings, merges: sorted signature
// tuples, splits: sorted signature tuples}}, prefix op_canon/v1:.
// Timestamps never enter the preimage.
func (op *SemanticOp) ComputeContentHash() (string, error) {
	addSigs := make([]string, len(op.Delta.Adds))
	for i, c := range op.Delta.Adds {
		addSigs[i] = c.CanonicalSignature
	}
	sort.Strings(addSigs)

	updateSigs := make([]string, len(op.Delta.Updates))
	for i, u := range op.Delta.Updates {
		updateSigs[i] = u.PriorSignature
	}
	sort.Strings(updateSigs)

	deletes := append([]string{}, op.Delta.Deletes...)
	sort.Strings(deletes)

	mergeTuples := make([]string, len(op.Delta.Merges))
	for i, m := range op.Delta.Merges {
		srcs := append([]string{}, m.Sources...)
		sort.Strings(srcs)
		mergeTuples[i] = joinTuple(srcs) + "=>" + m.MergedClaim.CanonicalSignature
	}
	sort.Strings(mergeTuples)

	splitTuples := make([]string, len(op.Delta.Splits))
	for i, sp := range op.Delta.Splits {
		sigs := make([]string, len(sp.SplitClaims))
		for j, c := range sp.SplitClaims {
			sigs[j] = c.CanonicalSignature
		}
		sort.Strings(sigs)
		splitTuples[i] = sp.Source + "=>" + joinTuple(sigs)
	}
	sort.Strings(splitTuples)

	payload := map[string]any{
		"operator_id": op.OperatorID,
		"args":        op.Args,
		"delta": map[string]any{
			"adds":    toAny(addSigs),
			"updates": toAny(updateSigs),
			"deletes": toAny(deletes),
			"merges":  toAny(mergeTuples),
			"splits":  toAny(splitTuples),
		},
	}
	return canon.Hash(payload, canon.PrefixOp)
}

func joinTuple(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
