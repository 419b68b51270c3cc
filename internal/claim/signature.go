package claim

import (
	"fmt"
	"sort"

	"github.com/darianrosebrook/sterling/internal/canon"
	"github.com/darianrosebrook/sterling/internal/schema"
)

// Canonicalizer transforms a raw slot value into its canonical form before
// it enters the signature preimage. Named canonicalizers are looked up via
// Canonicalizers and applied when a SlotDef declares one.
type Canonicalizer func(v any) (any, error)

// Canonicalizers holds the process-wide named canonicalizer registry.
// Callers register domain-specific canonicalizers (e.g. normalizing an
// EntityID's casing) at startup; an unregistered name is a no-op identity
// transform rather than an error, since canonicalizer is metadata and must
// never block signature computation.
var Canonicalizers = map[string]Canonicalizer{}

// RegisterCanonicalizer adds or replaces a named canonicalizer.
func RegisterCanonicalizer(name string, fn Canonicalizer) {
	Canonicalizers[name] = fn
}

// Signature computes the claim's canonical signature per spec.md §4.3.
// def must be the schema the claim was validated against; it supplies
// slot ordering/cardinality/canonicalizer metadata.
func Signature(def *schema.SchemaDef, c ClaimInstance) (string, error) {
	canonSlots, err := canonicalizeSlots(def, c.Slots)
	if err != nil {
		return "", fmt.Errorf("claim.Signature: %w", err)
	}

	preimage := map[string]any{
		"schema_id":        c.SchemaID,
		"slots":            canonSlots,
		"epistemic_status": string(c.EpistemicStatus),
		"polarity":         string(c.Polarity),
		"qualifiers":       sortedQualifiers(c.Qualifiers),
		"modal_scope":      string(c.ModalScope),
		"temporal_scope":   temporalScopePayload(c.TemporalScope),
	}

	return canon.Hash(preimage, canon.PrefixClaim)
}

// canonicalizeSlots applies each slot's declared canonicalizer, then sorts
// unordered multi-valued slots by canonical string form (lexicographic on
// the value's own canonical JSON encoding, per spec.md's resolution of its
// Open Question on unordered-slot ordering; ordered slots keep their
// original order).
func canonicalizeSlots(def *schema.SchemaDef, slots map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(slots))
	for role, raw := range slots {
		sl, declared := def.Slot(role)
		val := raw

		if declared && sl.Canonicalizer != "" {
			if fn, ok := Canonicalizers[sl.Canonicalizer]; ok {
				v, err := fn(val)
				if err != nil {
					return nil, fmt.Errorf("canonicalize slot %q: %w", role, err)
				}
				val = v
			}
		}

		if declared && sl.Cardinality.Multi() && !sl.Ordered {
			list, ok := val.([]any)
			if ok {
				val = sortByCanonicalString(list)
			}
		}

		out[role] = val
	}
	return out, nil
}

func sortByCanonicalString(list []any) []any {
	type keyed struct {
		key string
		val any
	}
	keyedList := make([]keyed, len(list))
	for i, v := range list {
		b, err := canon.Serialize(v)
		k := string(b)
		if err != nil {
			k = fmt.Sprintf("%v", v)
		}
		keyedList[i] = keyed{key: k, val: v}
	}
	sort.Slice(keyedList, func(i, j int) bool { return keyedList[i].key < keyedList[j].key })
	out := make([]any, len(keyedList))
	for i, k := range keyedList {
		out[i] = k.val
	}
	return out
}

func sortedQualifiers(q Qualifiers) map[string]any {
	out := make(map[string]any, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out // canon.Serialize already sorts map keys; nothing further needed
}

func temporalScopePayload(t *TemporalScope) any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"valid_from":  t.ValidFrom,
		"valid_until": t.ValidUntil,
		"granularity": string(t.Granularity),
	}
}
