package packet

import (
	"sort"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// ComputeContentHash computes the packet's identity hash per spec.md §4.6:
// {schema_id, version, task_spec, slices, conflicts, claims_included,
// claims_considered, budget_exhausted, exhaustion_reason,
// indexed_retrieval}, prefix packet_canon/v1:. packet_id, ops_fetched,
// assembly_time_ms, and diagnostics are run-local and excluded.
func (p *DecisionPacket) ComputeContentHash() (string, error) {
	slices := make([]any, len(p.Slices))
	for i, s := range p.Slices {
		slices[i] = slicePayload(s)
	}

	conflicts := append([]ConflictRef{}, p.Conflicts...)
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].ConflictID < conflicts[j].ConflictID })
	conflictPayloads := make([]any, len(conflicts))
	for i, c := range conflicts {
		sigs := append([]string{}, c.ClaimSignatures...)
		sort.Strings(sigs)
		conflictPayloads[i] = map[string]any{
			"conflict_id":      c.ConflictID,
			"schema_id":        c.SchemaID,
			"claim_signatures": toAny(sigs),
			"conflict_reason":  c.ConflictReason,
		}
	}

	payload := map[string]any{
		"schema_id": p.SchemaID,
		"version":   p.Version,
		"task_spec": taskSpecPayload(p.TaskSpec),
		"slices":    slices,
		"conflicts": conflictPayloads,
		"metrics": map[string]any{
			"claims_included":   p.Metrics.ClaimsIncluded,
			"claims_considered": p.Metrics.ClaimsConsidered,
			"budget_exhausted":  p.Metrics.BudgetExhausted,
			"exhaustion_reason": p.Metrics.ExhaustionReason,
			"indexed_retrieval": p.Metrics.IndexedRetrieval,
		},
	}
	return canon.Hash(payload, canon.PrefixPacket)
}

func slicePayload(s Slice) map[string]any {
	out := map[string]any{
		"signature":           s.Signature,
		"schema_id":           s.SchemaID,
		"slice_kind":          string(s.Kind),
		"inclusion_rationale": s.InclusionRationale,
		"salience":            s.Salience,
	}
	if s.Kind == SliceDrilldown {
		out["parent_signature"] = s.ParentSignature
		out["rank"] = *s.Rank
	}
	return out
}

func taskSpecPayload(t TaskSpec) map[string]any {
	ids := append([]string{}, t.SchemaIDs...)
	sort.Strings(ids)
	out := map[string]any{
		"schema_ids": toAny(ids),
		"allow_meta": t.AllowMeta,
		"strict":     t.Strict,
	}
	if t.Window != nil {
		out["window"] = map[string]any{
			"valid_from":  t.Window.ValidFrom,
			"valid_until": t.Window.ValidUntil,
			"granularity": string(t.Window.Granularity),
		}
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
