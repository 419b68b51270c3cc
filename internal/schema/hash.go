package schema

import (
	"sort"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// SemanticHash computes the schema's identity hash per spec.md §3.1:
// {schema_id, kind, slots sorted by role, constraints sorted,
// evidence_policy, migration_policy}. index_policy, description, and
// external_anchors are excluded.
func (s *SchemaDef) SemanticHash() (string, error) {
	slots := make([]SlotDef, len(s.Slots))
	copy(slots, s.Slots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Role < slots[j].Role })

	slotCores := make([]any, len(slots))
	for i, sl := range slots {
		slotCores[i] = sl.semanticCore()
	}

	constraints := make([]string, len(s.Constraints))
	copy(constraints, s.Constraints)
	sort.Strings(constraints)
	constraintsAny := make([]any, len(constraints))
	for i, c := range constraints {
		constraintsAny[i] = c
	}

	payload := map[string]any{
		"schema_id": s.SchemaID,
		"kind":      string(s.Kind),
		"slots":     slotCores,
		"constraints": constraintsAny,
		"evidence_policy": map[string]any{
			"min_evidence":       s.EvidencePolicy.MinEvidence,
			"allowed_modalities": stringsToAny(sortedCopy(s.EvidencePolicy.AllowedModalities)),
		},
		"migration_policy": migrationPolicyPayload(s.MigrationPolicy),
	}

	return canon.Hash(payload, canon.PrefixSchema)
}

func migrationPolicyPayload(mp *MigrationPolicy) any {
	if mp == nil {
		return nil
	}
	return map[string]any{
		"from_version": mp.FromVersion,
		"slot_renames": mp.SlotRenames,
		"notes":        mp.Notes,
	}
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
