package claim

import (
	"fmt"

	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/sterlingerr"
)

// Validate runs the 8-step validation procedure of spec.md §4.2 against an
// incoming claim, using def as the (possibly migrated) live schema. On
// success it returns the claim with its canonical signature recomputed and
// substituted for any input-provided value (I1); any mismatch between an
// input-provided signature and the recomputed one is reported via
// sigWarning so the caller can log it without failing validation.
func Validate(def *schema.SchemaDef, c ClaimInstance) (out ClaimInstance, sigWarning string, err error) {
	// 1. Schema must be registered: the caller is expected to have already
	// resolved def via Registry.Get/GetVersion, which fails closed on an
	// unknown schema_id. A nil def here is a programming error upstream.
	if def == nil {
		return ClaimInstance{}, "", fmt.Errorf("claim.Validate: %w", sterlingerr.ErrSchemaUnknown)
	}

	// 3. No slot names outside schema declaration (fail-closed).
	for role := range c.Slots {
		if _, ok := def.Slot(role); !ok {
			return ClaimInstance{}, "", sterlingerr.Wrapf(sterlingerr.ErrUnknownSlot, "claim.Validate: slot %q not declared on schema %q", role, def.SchemaID)
		}
	}

	// 2 & 5. Required slots present; cardinality bounds respected.
	for _, sl := range def.Slots {
		val, present := c.Slots[sl.Role]
		if sl.Cardinality.Required() && !present {
			return ClaimInstance{}, "", sterlingerr.Wrapf(sterlingerr.ErrCardinalityViolation, "claim.Validate: required slot %q missing", sl.Role)
		}
		if !present {
			continue
		}
		if err := checkCardinality(sl, val); err != nil {
			return ClaimInstance{}, "", sterlingerr.Wrap("claim.Validate", err)
		}
		// 4. Values conform to declared types.
		if err := checkType(sl, val); err != nil {
			return ClaimInstance{}, "", sterlingerr.Wrap("claim.Validate", err)
		}
	}

	// 6. Evidence policy, asserted claims only. AllowedModalities is not
	// enforced here: SupportSet carries opaque evidence-atom references
	// (strings), not atoms with a resolvable modality (see DESIGN.md).
	if c.EpistemicStatus == StatusAsserted {
		if len(c.SupportSet) < def.EvidencePolicy.MinEvidence {
			return ClaimInstance{}, "", sterlingerr.Wrapf(sterlingerr.ErrEvidenceInsufficient,
				"claim.Validate: asserted claim has %d support atoms, schema %q requires %d",
				len(c.SupportSet), def.SchemaID, def.EvidencePolicy.MinEvidence)
		}
	}

	// 7. Temporal scope internal consistency.
	if c.TemporalScope != nil && !c.TemporalScope.Valid() {
		return ClaimInstance{}, "", sterlingerr.Wrapf(sterlingerr.ErrTemporalInvalid,
			"claim.Validate: temporal_scope start %q after end %q", c.TemporalScope.ValidFrom, c.TemporalScope.ValidUntil)
	}

	// 8. Canonical signature recomputed and replaces any input-supplied
	// value (I1); a warning is surfaced (not an error) if they differ.
	sig, err := Signature(def, c)
	if err != nil {
		return ClaimInstance{}, "", sterlingerr.Wrap("claim.Validate: compute signature", err)
	}
	if c.CanonicalSignature != "" && c.CanonicalSignature != sig {
		sigWarning = fmt.Sprintf("input-supplied signature %q discarded in favor of recomputed %q", c.CanonicalSignature, sig)
	}
	out = c
	out.CanonicalSignature = sig
	return out, sigWarning, nil
}

func checkCardinality(sl schema.SlotDef, val any) error {
	list, isList := val.([]any)
	if !sl.Cardinality.Multi() {
		if isList {
			return fmt.Errorf("%w: slot %q has cardinality %q but received a list", sterlingerr.ErrCardinalityViolation, sl.Role, sl.Cardinality)
		}
		return nil
	}
	if !isList {
		return nil // a bare scalar in a "0..*"/"1..*" slot is treated as a singleton list by callers; nothing further to check here
	}
	if sl.Cardinality.Required() && len(list) == 0 {
		return fmt.Errorf("%w: slot %q requires at least one value", sterlingerr.ErrCardinalityViolation, sl.Role)
	}
	return nil
}

func checkType(sl schema.SlotDef, val any) error {
	list, isList := val.([]any)
	if isList {
		for _, v := range list {
			if err := checkScalarType(sl, v); err != nil {
				return err
			}
		}
		return nil
	}
	return checkScalarType(sl, val)
}

// checkScalarType enforces that identity-typed slots (EntityID, ConceptID,
// LiteralID, SchemaRef) carry string-shaped values; the registry's
// resolver/canonicalizer hooks are responsible for deeper domain
// validation and are out of scope for this structural check.
func checkScalarType(sl schema.SlotDef, val any) error {
	switch sl.Type {
	case schema.TypeEntityID, schema.TypeConceptID, schema.TypeLiteralID, schema.TypeSchemaRef:
		if _, ok := val.(string); !ok {
			if _, ok := val.(map[string]any); ok {
				return nil // a structured identity reference (e.g. {id, source}) is acceptable
			}
			return fmt.Errorf("%w: slot %q (%s) requires a string or structured identity value, got %T", sterlingerr.ErrTypeMismatch, sl.Role, sl.Type, val)
		}
	}
	return nil
}
