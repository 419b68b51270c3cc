package claim_test

import (
	"testing"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "sterling.person.v1",
		Kind:     schema.KindEntity,
		Slots: []schema.SlotDef{
			{Role: "name", Type: schema.TypeLiteralID, Cardinality: schema.CardinalityOne},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
	}
}

func factSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "sterling.fact.v1",
		Kind:     schema.KindRelation,
		Slots: []schema.SlotDef{
			{Role: "subject", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne, Indexable: true},
			{Role: "object", Type: schema.TypeLiteralID, Cardinality: schema.CardinalityOne, Indexable: true},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
		IndexPolicy:    schema.IndexPolicy{PrimarySlots: []string{"subject", "object"}},
	}
}

func TestSignatureStableAcrossEquivalentContent(t *testing.T) {
	def := personSchema()
	c := claim.ClaimInstance{
		SchemaID:        def.SchemaID,
		Slots:           map[string]any{"name": "Alice"},
		EpistemicStatus: claim.StatusAsserted,
		Polarity:        claim.PolarityPos,
		ModalScope:      claim.ModalActual,
		SupportSet:      []string{"e1"},
	}
	s1, err := claim.Signature(&def, c)
	require.NoError(t, err)
	s2, err := claim.Signature(&def, c)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	c.SupportSet = []string{"e1", "e2"} // support_set excluded from preimage
	s3, err := claim.Signature(&def, c)
	require.NoError(t, err)
	assert.Equal(t, s1, s3)
}

func TestSignatureChangesWithSemanticContent(t *testing.T) {
	def := personSchema()
	base := claim.ClaimInstance{
		SchemaID:        def.SchemaID,
		Slots:           map[string]any{"name": "Alice"},
		EpistemicStatus: claim.StatusAsserted,
		Polarity:        claim.PolarityPos,
		ModalScope:      claim.ModalActual,
		SupportSet:      []string{"e1"},
	}
	changed := base
	changed.Slots = map[string]any{"name": "Bob"}

	s1, err := claim.Signature(&def, base)
	require.NoError(t, err)
	s2, err := claim.Signature(&def, changed)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestUnorderedMultiValuedSlotSortsLexicographically(t *testing.T) {
	def := schema.SchemaDef{
		SchemaID: "sterling.tagged.v1",
		Kind:     schema.KindEntity,
		Slots: []schema.SlotDef{
			{Role: "tags", Type: schema.TypeLiteralID, Cardinality: schema.CardinalityZeroOrMore, Ordered: false},
		},
	}
	c1 := claim.ClaimInstance{SchemaID: def.SchemaID, Slots: map[string]any{"tags": []any{"b", "a", "c"}}, ModalScope: claim.ModalActual}
	c2 := claim.ClaimInstance{SchemaID: def.SchemaID, Slots: map[string]any{"tags": []any{"c", "b", "a"}}, ModalScope: claim.ModalActual}

	s1, err := claim.Signature(&def, c1)
	require.NoError(t, err)
	s2, err := claim.Signature(&def, c2)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestTemporalScopeOverlap(t *testing.T) {
	a := claim.TemporalScope{ValidFrom: "2020-01-01", ValidUntil: "2020-12-31"}
	b := claim.TemporalScope{ValidFrom: "2020-06-01", ValidUntil: "2021-06-01"}
	assert.True(t, a.Overlaps(b))

	c := claim.TemporalScope{ValidFrom: "2021-01-01", ValidUntil: "2021-12-31"}
	assert.False(t, a.Overlaps(c))

	unbounded := claim.TemporalScope{ValidFrom: "", ValidUntil: ""}
	assert.True(t, unbounded.Overlaps(a))
}

func TestTemporalScopeValid(t *testing.T) {
	assert.True(t, claim.TemporalScope{ValidFrom: "2020-01-01", ValidUntil: "2020-12-31"}.Valid())
	assert.False(t, claim.TemporalScope{ValidFrom: "2021-01-01", ValidUntil: "2020-01-01"}.Valid())
}

func TestValidateRejectsUnknownSlot(t *testing.T) {
	def := personSchema()
	_, _, err := claim.Validate(&def, claim.ClaimInstance{
		SchemaID: def.SchemaID,
		Slots:    map[string]any{"nickname": "Al"},
	})
	require.Error(t, err)
}

func TestValidateRejectsMissingRequiredSlot(t *testing.T) {
	def := personSchema()
	_, _, err := claim.Validate(&def, claim.ClaimInstance{SchemaID: def.SchemaID, Slots: map[string]any{}})
	require.Error(t, err)
}

func TestValidateRejectsInsufficientEvidence(t *testing.T) {
	def := personSchema()
	_, _, err := claim.Validate(&def, claim.ClaimInstance{
		SchemaID:        def.SchemaID,
		Slots:           map[string]any{"name": "Alice"},
		EpistemicStatus: claim.StatusAsserted,
		ModalScope:      claim.ModalActual,
	})
	require.Error(t, err)
}

func TestValidateAllowsHypothesisWithoutEvidence(t *testing.T) {
	def := personSchema()
	out, _, err := claim.Validate(&def, claim.ClaimInstance{
		SchemaID:        def.SchemaID,
		Slots:           map[string]any{"name": "Alice"},
		EpistemicStatus: claim.StatusHypothesis,
		ModalScope:      claim.ModalActual,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.CanonicalSignature)
}

func TestValidateRecomputesSignatureAndWarnsOnMismatch(t *testing.T) {
	def := personSchema()
	out, warn, err := claim.Validate(&def, claim.ClaimInstance{
		SchemaID:           def.SchemaID,
		Slots:              map[string]any{"name": "Alice"},
		EpistemicStatus:    claim.StatusHypothesis,
		ModalScope:         claim.ModalActual,
		CanonicalSignature: "not-the-real-signature",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "not-the-real-signature", out.CanonicalSignature)
	assert.NotEmpty(t, warn)
}

func TestValidateRejectsTemporalInconsistency(t *testing.T) {
	def := factSchema()
	bad := claim.TemporalScope{ValidFrom: "2021-01-01", ValidUntil: "2020-01-01"}
	_, _, err := claim.Validate(&def, claim.ClaimInstance{
		SchemaID:        def.SchemaID,
		Slots:           map[string]any{"subject": "sun", "object": "hot"},
		EpistemicStatus: claim.StatusAsserted,
		SupportSet:      []string{"e1"},
		ModalScope:      claim.ModalActual,
		TemporalScope:   &bad,
	})
	require.Error(t, err)
}

func TestIsActualAsserted(t *testing.T) {
	assert.True(t, claim.ClaimInstance{ModalScope: claim.ModalActual, EpistemicStatus: claim.StatusAsserted}.IsActualAsserted())
	assert.False(t, claim.ClaimInstance{ModalScope: claim.ModalHypothetical, EpistemicStatus: claim.StatusAsserted}.IsActualAsserted())
	assert.False(t, claim.ClaimInstance{ModalScope: claim.ModalActual, EpistemicStatus: claim.StatusHypothesis}.IsActualAsserted())
}
