package packet

import "github.com/darianrosebrook/sterling/internal/claim"

// factors holds the bounded, deterministic salience inputs of spec.md §4.6.
type factors struct {
	taskMatch          float64
	trustTier          float64
	abstractionStatus  float64
	temporalRelevance  float64
	supportMass        float64
	conflictAttention  float64
}

// salience computes the composite score of spec.md §4.6:
//
//	salience = task_match × trust_tier × abstraction_status
//	         × (0.5 + 0.5×temporal_relevance) × (0.5 + 0.5×support_mass)
//	         + conflict_attention
func salience(f factors) float64 {
	return f.taskMatch*f.trustTier*f.abstractionStatus*
		(0.5+0.5*f.temporalRelevance)*(0.5+0.5*f.supportMass) + f.conflictAttention
}

// computeFactors derives the bounded factor set for one candidate claim.
// trust_tier and source_claim_count are read from the claim's qualifiers
// map (handover metadata), defaulting to the neutral values spec.md
// implies when absent.
func computeFactors(c claim.ClaimInstance, inTaskSchemas bool, window *claim.TemporalScope, touchesConflict bool) factors {
	trust := 1.0
	if v, ok := c.Qualifiers["trust_tier"]; ok {
		if f, ok := toFloat(v); ok {
			trust = clamp(f, 0.8, 1.0)
		}
	}

	abstraction := 1.0
	if v, ok := c.Qualifiers["source_claim_count"]; ok {
		if n, ok := toFloat(v); ok {
			abstraction = 1.0 + n/100.0
		}
	}

	temporal := 1.0
	if window != nil {
		if c.TemporalScope == nil {
			temporal = 0.1
		} else if c.TemporalScope.Overlaps(*window) {
			temporal = 1.0
		} else {
			temporal = 0.1
		}
	}

	supportMass := float64(len(c.SupportSet)) / 3.0
	if supportMass > 1.0 {
		supportMass = 1.0
	}

	taskMatch := 0.0
	if inTaskSchemas {
		taskMatch = 1.0
	}

	conflictAttention := 0.0
	if touchesConflict {
		conflictAttention = 1.0
	}

	return factors{
		taskMatch:         taskMatch,
		trustTier:         trust,
		abstractionStatus: abstraction,
		temporalRelevance: temporal,
		supportMass:       supportMass,
		conflictAttention: conflictAttention,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
