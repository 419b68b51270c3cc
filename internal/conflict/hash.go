package conflict

import (
	"sort"

	"github.com/darianrosebrook/sterling/internal/canon"
)

// ContentHash computes the conflict's content-addressed identity per
// spec.md §4.5 step 4: {schema_id, policy_id, identity_key_roles,
// identity_key_values, sorted claim_signatures, conflict_reason, scope},
// prefix conflict_canon/v1:.
func (s *Set) ContentHash() (string, error) {
	sigs := make([]string, len(s.ClaimSignatures))
	copy(sigs, s.ClaimSignatures)
	sort.Strings(sigs)
	sigsAny := make([]any, len(sigs))
	for i, v := range sigs {
		sigsAny[i] = v
	}

	payload := map[string]any{
		"schema_id":           s.SchemaID,
		"policy_id":           s.PolicyID,
		"identity_key_roles":  toAny(s.IdentityKeyRoles),
		"identity_key_values": s.IdentityKeyValues,
		"claim_signatures":    sigsAny,
		"conflict_reason":     string(s.ConflictReason),
		"scope":               s.Scope,
	}
	return canon.Hash(payload, canon.PrefixConflict)
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
